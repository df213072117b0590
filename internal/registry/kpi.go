package registry

import "inspection-platform/internal/calls"

// Kpis is the dashboard aggregate. It is never stored; Kpis() recomputes it from
// the live buckets on every call.
type Kpis struct {
	PendingVerification PendingKpis  `json:"pending_verification"`
	VerifiedOpen        VerifiedKpis `json:"verified_open"`
	Disposed            DisposedKpis `json:"disposed"`
}

type PendingKpis struct {
	Total        int `json:"total"`
	Fresh        int `json:"fresh"`
	Resubmission int `json:"resubmission"`
	Returned     int `json:"returned"`
}

type VerifiedKpis struct {
	Total       int `json:"total"`
	RawMaterial int `json:"raw_material"`
	Process     int `json:"process"`
	Final       int `json:"final"`
}

type DisposedKpis struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Withdrawn int `json:"withdrawn"`
	Cancelled int `json:"cancelled"`
	Rejected  int `json:"rejected"`
}

// Kpis computes the aggregate under a single read lock so the three groups are consistent.
func (r *Registry) Kpis() Kpis {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return computeKpis(
		r.buckets[calls.BucketPendingVerification],
		r.buckets[calls.BucketVerifiedOpen],
		r.buckets[calls.BucketDisposed],
	)
}

// KpisOf computes the aggregate for an arbitrary snapshot, e.g. one loaded by a CLI.
func KpisOf(s Snapshot) Kpis {
	return computeKpis(s.Pending, s.Verified, s.Disposed)
}

func computeKpis(pending, verified, disposed []calls.Call) Kpis {
	var out Kpis

	out.PendingVerification.Total = len(pending)
	for _, c := range pending {
		switch c.Status {
		case calls.StatusFreshSubmission:
			out.PendingVerification.Fresh++
		case calls.StatusResubmission:
			out.PendingVerification.Resubmission++
		case calls.StatusReturned:
			out.PendingVerification.Returned++
		}
	}

	out.VerifiedOpen.Total = len(verified)
	for _, c := range verified {
		switch c.Stage {
		case calls.StageRawMaterial:
			out.VerifiedOpen.RawMaterial++
		case calls.StageProcess:
			out.VerifiedOpen.Process++
		case calls.StageFinal:
			out.VerifiedOpen.Final++
		}
	}

	out.Disposed.Total = len(disposed)
	for _, c := range disposed {
		switch c.Status {
		case calls.StatusCompleted:
			out.Disposed.Completed++
		case calls.StatusWithdrawn:
			out.Disposed.Withdrawn++
		case calls.StatusCancelledChargeable, calls.StatusCancelledNonChargeable:
			out.Disposed.Cancelled++
		case calls.StatusRejectedClosed:
			out.Disposed.Rejected++
		}
	}
	return out
}
