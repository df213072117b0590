package auth

import (
	"context"
	"errors"
)

type ctxKey int

const ctxIdentity ctxKey = iota

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxIdentity, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxIdentity).(Identity)
	return id, ok
}

func UserID(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.UserID != "" {
		return id.UserID, nil
	}
	return "", errors.New("user_id not in context")
}

func Office(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.Office != "" {
		return id.Office, nil
	}
	return "", errors.New("office not in context")
}

func VendorID(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.VendorID != "" {
		return id.VendorID, nil
	}
	return "", errors.New("vendor_id not in context")
}

func Role(ctx context.Context) (string, error) {
	if id, ok := IdentityFrom(ctx); ok && id.Role != "" {
		return id.Role, nil
	}
	return "", errors.New("role not in context")
}
