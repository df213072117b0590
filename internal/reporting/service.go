package reporting

import (
	"context"
	"errors"
	"sort"
	"strings"

	"inspection-platform/internal/calls"
)

var ErrInvalidRequest = errors.New("reporting: invalid request")

// Repository abstracts data access for reporting.
// Implementations return copies; reporting never mutates calls.
type Repository interface {
	ListCalls(ctx context.Context, office string) ([]calls.Call, error)
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service { return &Service{repo: repo} }

// OfficeWorkload returns one row per office, ordered by code.
func (s *Service) OfficeWorkload(ctx context.Context, req WorkloadRequest) ([]OfficeWorkload, error) {
	if !req.Range.From.IsZero() && !req.Range.To.IsZero() && !req.Range.To.After(req.Range.From) {
		return nil, ErrInvalidRequest
	}
	if s.repo == nil {
		return nil, errors.New("reporting: repository not configured")
	}
	office := strings.ToUpper(strings.TrimSpace(req.Office))
	rows, err := s.repo.ListCalls(ctx, office)
	if err != nil {
		return nil, err
	}

	byOffice := map[string]*OfficeWorkload{}
	submissions := map[string]int{}
	for _, c := range rows {
		if !c.CreatedAt.IsZero() && !req.Range.Contains(c.CreatedAt) {
			continue
		}
		w, ok := byOffice[c.RIO]
		if !ok {
			w = &OfficeWorkload{Office: c.RIO}
			byOffice[c.RIO] = w
		}
		w.Total++
		submissions[c.RIO] += c.SubmissionCount
		switch c.Bucket() {
		case calls.BucketPendingVerification:
			w.PendingVerification++
			switch c.Status {
			case calls.StatusFreshSubmission:
				w.FreshSubmissions++
			case calls.StatusResubmission:
				w.Resubmissions++
			case calls.StatusReturned:
				w.Returned++
			}
		case calls.BucketVerifiedOpen:
			w.VerifiedOpen++
		case calls.BucketDisposed:
			w.Disposed++
		}
	}

	out := make([]OfficeWorkload, 0, len(byOffice))
	for code, w := range byOffice {
		if w.Total > 0 {
			w.AverageSubmissions = float64(submissions[code]) / float64(w.Total)
		}
		out = append(out, *w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Office < out[j].Office })
	return out, nil
}

// Rectification counts flagged sections across calls that are currently returned.
// Fields are listed in display order and include zero counts.
func (s *Service) Rectification(ctx context.Context, office string) (RectificationSummary, error) {
	if s.repo == nil {
		return RectificationSummary{}, errors.New("reporting: repository not configured")
	}
	office = strings.ToUpper(strings.TrimSpace(office))
	rows, err := s.repo.ListCalls(ctx, office)
	if err != nil {
		return RectificationSummary{}, err
	}
	counts := map[calls.FlaggedField]int{}
	out := RectificationSummary{Office: office}
	for _, c := range rows {
		if c.Status != calls.StatusReturned {
			continue
		}
		out.ReturnedCalls++
		for _, f := range c.FlaggedFields {
			counts[f]++
		}
	}
	out.Fields = make([]FlaggedFieldCount, 0, len(calls.FlaggableFields))
	for _, f := range calls.FlaggableFields {
		out.Fields = append(out.Fields, FlaggedFieldCount{Field: string(f), Count: counts[f]})
	}
	return out, nil
}
