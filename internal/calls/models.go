package calls

import "time"

// Call represents one vendor inspection request.
//
// Lifecycle invariant: Status always maps to exactly one Bucket (see BucketOf).
// Only internal/lifecycle mutates Status, RIO, SubmissionCount, ReturnReason and FlaggedFields.
// Descriptive fields are written once by the vendor submission and are read-only afterwards.
type Call struct {
	ID         string  `json:"id" yaml:"id" db:"id"`
	CallNumber string  `json:"call_number" yaml:"call_number" db:"call_number"`
	Product    Product `json:"product" yaml:"product" db:"product"`
	Stage      Stage   `json:"stage" yaml:"stage" db:"stage"`

	Status Status `json:"status" yaml:"status" db:"status"`
	// RIO is the code of the regional inspection office currently owning the call.
	RIO             string `json:"rio" yaml:"rio" db:"rio"`
	SubmissionCount int    `json:"submission_count" yaml:"submission_count" db:"submission_count"`

	// ReturnReason and FlaggedFields are only set while Status == StatusReturned.
	ReturnReason  string         `json:"return_reason,omitempty" yaml:"return_reason,omitempty" db:"return_reason"`
	FlaggedFields []FlaggedField `json:"flagged_fields,omitempty" yaml:"flagged_fields,omitempty" db:"flagged_fields"`

	Details Details `json:"details" yaml:"details" db:"details"`

	// Version is bumped by every successful transition and guards concurrent writers.
	Version   int64     `json:"version" yaml:"version" db:"version"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at" db:"updated_at"`
}

// Details holds the vendor-submitted descriptive data. The engine never mutates it.
type Details struct {
	VendorID          string     `json:"vendor_id" yaml:"vendor_id"`
	VendorName        string     `json:"vendor_name" yaml:"vendor_name"`
	PONumber          string     `json:"po_number" yaml:"po_number"`
	PODate            string     `json:"po_date,omitempty" yaml:"po_date,omitempty"`
	MANumber          string     `json:"ma_number,omitempty" yaml:"ma_number,omitempty"`
	SubPONumber       string     `json:"sub_po_number,omitempty" yaml:"sub_po_number,omitempty"`
	QuantityOffered   int        `json:"quantity_offered" yaml:"quantity_offered"`
	QuantityOrdered   int        `json:"quantity_ordered" yaml:"quantity_ordered"`
	DeliveryPeriod    string     `json:"delivery_period,omitempty" yaml:"delivery_period,omitempty"`
	DesiredInspection string     `json:"desired_inspection_date,omitempty" yaml:"desired_inspection_date,omitempty"`
	PlaceOfInspection string     `json:"place_of_inspection" yaml:"place_of_inspection"`
	Documents         []Document `json:"documents,omitempty" yaml:"documents,omitempty"`
}

type Document struct {
	Name string `json:"name" yaml:"name"`
	URL  string `json:"url,omitempty" yaml:"url,omitempty"`
}

// Bucket returns the lifecycle bucket of the call's current status.
func (c Call) Bucket() Bucket { return BucketOf(c.Status) }

// Clone returns a deep copy so callers never share slices with the registry.
func (c Call) Clone() Call {
	out := c
	if c.FlaggedFields != nil {
		out.FlaggedFields = append([]FlaggedField(nil), c.FlaggedFields...)
	}
	if c.Details.Documents != nil {
		out.Details.Documents = append([]Document(nil), c.Details.Documents...)
	}
	return out
}

// Validate checks the record-level invariants. It does not check bucket placement.
func (c Call) Validate() error {
	if c.ID == "" || c.CallNumber == "" {
		return invariantf("call id and call number are required")
	}
	if !c.Status.Valid() {
		return invariantf("call %s has unknown status %q", c.CallNumber, c.Status)
	}
	if c.SubmissionCount < 1 {
		return invariantf("call %s has submission count %d", c.CallNumber, c.SubmissionCount)
	}
	if c.Status == StatusReturned {
		if c.ReturnReason == "" || len(c.FlaggedFields) == 0 {
			return invariantf("returned call %s must carry a reason and flagged fields", c.CallNumber)
		}
	} else if c.ReturnReason != "" || len(c.FlaggedFields) > 0 {
		return invariantf("call %s carries return data outside the returned status", c.CallNumber)
	}
	return nil
}

type Product string

const (
	ProductERC        Product = "erc"
	ProductSleeper    Product = "sleeper"
	ProductGRSP       Product = "grsp"
	ProductLinerPlate Product = "liner_plate"
	ProductHTSWire    Product = "hts_wire"
)

type Stage string

const (
	StageRawMaterial Stage = "raw_material"
	StageProcess     Stage = "process"
	StageFinal       Stage = "final"
)

func (s Stage) Valid() bool {
	switch s {
	case StageRawMaterial, StageProcess, StageFinal:
		return true
	default:
		return false
	}
}

// RegionalOffice is reference data; only used as the reroute target set.
type RegionalOffice struct {
	ID       string `json:"id" yaml:"id" db:"id"`
	Name     string `json:"name" yaml:"name" db:"name"`
	Location string `json:"location" yaml:"location" db:"location"`
	Code     string `json:"code" yaml:"code" db:"code"`
}

// HistoryEntry is one immutable audit record for a call.
type HistoryEntry struct {
	ID         string    `json:"id" yaml:"id" db:"id"`
	CallNumber string    `json:"call_number" yaml:"call_number" db:"call_number"`
	Timestamp  time.Time `json:"timestamp" yaml:"timestamp" db:"ts"`
	Action     string    `json:"action" yaml:"action" db:"action"`
	Actor      string    `json:"actor" yaml:"actor" db:"actor"`
	Remarks    string    `json:"remarks,omitempty" yaml:"remarks,omitempty" db:"remarks"`
}
