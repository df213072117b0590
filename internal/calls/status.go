package calls

import (
	"sort"
	"strings"
)

type Status string

const (
	StatusFreshSubmission Status = "fresh_submission"
	StatusResubmission    Status = "resubmission"
	StatusReturned        Status = "returned"

	StatusVerifiedRegistered  Status = "verified_registered"
	StatusIEAssignmentPending Status = "ie_assignment_pending"
	StatusAssignedToIE        Status = "assigned_to_ie"
	StatusScheduled           Status = "scheduled"
	StatusUnderInspection     Status = "under_inspection"
	StatusUnderLabTesting     Status = "under_lab_testing"
	StatusICPending           Status = "ic_pending"
	StatusBillingPending      Status = "billing_pending"
	StatusPaymentPending      Status = "payment_pending"

	StatusCompleted              Status = "completed"
	StatusWithdrawn              Status = "withdrawn"
	StatusCancelledChargeable    Status = "cancelled_chargeable"
	StatusCancelledNonChargeable Status = "cancelled_non_chargeable"
	StatusRejectedClosed         Status = "rejected_closed"
)

// Bucket is the coarse lifecycle group a status belongs to.
type Bucket string

const (
	BucketPendingVerification Bucket = "pending_verification"
	BucketVerifiedOpen        Bucket = "verified_open"
	BucketDisposed            Bucket = "disposed"

	// BucketNone is returned for statuses outside the closed set.
	BucketNone Bucket = ""
)

// Buckets lists the three buckets in lifecycle order.
var Buckets = []Bucket{BucketPendingVerification, BucketVerifiedOpen, BucketDisposed}

var statusBuckets = map[Status]Bucket{
	StatusFreshSubmission: BucketPendingVerification,
	StatusResubmission:    BucketPendingVerification,
	StatusReturned:        BucketPendingVerification,

	StatusVerifiedRegistered:  BucketVerifiedOpen,
	StatusIEAssignmentPending: BucketVerifiedOpen,
	StatusAssignedToIE:        BucketVerifiedOpen,
	StatusScheduled:           BucketVerifiedOpen,
	StatusUnderInspection:     BucketVerifiedOpen,
	StatusUnderLabTesting:     BucketVerifiedOpen,
	StatusICPending:           BucketVerifiedOpen,
	StatusBillingPending:      BucketVerifiedOpen,
	StatusPaymentPending:      BucketVerifiedOpen,

	StatusCompleted:              BucketDisposed,
	StatusWithdrawn:              BucketDisposed,
	StatusCancelledChargeable:    BucketDisposed,
	StatusCancelledNonChargeable: BucketDisposed,
	StatusRejectedClosed:         BucketDisposed,
}

// BucketOf maps a status to its bucket, or BucketNone if the status is unknown.
func BucketOf(s Status) Bucket {
	return statusBuckets[s]
}

func (s Status) Valid() bool {
	_, ok := statusBuckets[s]
	return ok
}

// Terminal reports whether the status belongs to the read-only disposed archive.
func (s Status) Terminal() bool {
	return BucketOf(s) == BucketDisposed
}

func (b Bucket) Valid() bool {
	switch b {
	case BucketPendingVerification, BucketVerifiedOpen, BucketDisposed:
		return true
	default:
		return false
	}
}

// StatusesIn returns the statuses of a bucket in a stable order.
func StatusesIn(b Bucket) []Status {
	var out []Status
	for s, sb := range statusBuckets {
		if sb == b {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FlaggedField names a section of a call the vendor must correct.
type FlaggedField string

const (
	FieldPODetails         FlaggedField = "poDetails"
	FieldDeliveryPeriod    FlaggedField = "deliveryPeriod"
	FieldMADetails         FlaggedField = "maDetails"
	FieldQuantity          FlaggedField = "quantity"
	FieldPlaceOfInspection FlaggedField = "placeOfInspection"
	FieldSubPODetails      FlaggedField = "subPoDetails"
)

// FlaggableFields is the fixed set accepted by return-for-rectification, in display order.
var FlaggableFields = []FlaggedField{
	FieldPODetails,
	FieldDeliveryPeriod,
	FieldMADetails,
	FieldQuantity,
	FieldPlaceOfInspection,
	FieldSubPODetails,
}

func (f FlaggedField) Valid() bool {
	for _, known := range FlaggableFields {
		if f == known {
			return true
		}
	}
	return false
}

// NormalizeFlaggedFields drops duplicates and orders the set by FlaggableFields.
// Unknown fields are returned separately so the caller can reject them.
func NormalizeFlaggedFields(in []FlaggedField) (known []FlaggedField, unknown []FlaggedField) {
	seen := make(map[FlaggedField]bool, len(in))
	for _, f := range in {
		if !f.Valid() {
			unknown = append(unknown, f)
			continue
		}
		seen[f] = true
	}
	for _, f := range FlaggableFields {
		if seen[f] {
			known = append(known, f)
		}
	}
	return known, unknown
}

// NormalizeOfficeCode is the canonical form of a regional office code: trimmed, upper case.
func NormalizeOfficeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
