package auth

import "github.com/golang-jwt/jwt/v5"

type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the only supported JWT claims shape for this service.
// Scope invariant: staff tokens carry Office (a RIO code), vendor tokens carry VendorID.
// At least one of the two must be present.
type Claims struct {
	jwt.RegisteredClaims

	UserID    string    `json:"user_id"`
	Office    string    `json:"office,omitempty"`
	VendorID  string    `json:"vendor_id,omitempty"`
	Role      string    `json:"role"`
	TokenType TokenType `json:"token_type"`
}

// Identity is the caller as seen by handlers and the history log.
type Identity struct {
	UserID   string
	Office   string
	VendorID string
	Role     string
}

func (c Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Office: c.Office, VendorID: c.VendorID, Role: c.Role}
}
