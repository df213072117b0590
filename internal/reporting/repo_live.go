package reporting

import (
	"context"

	"inspection-platform/internal/calls"
	"inspection-platform/internal/registry"
)

// CallQuerier is the read side of the lifecycle engine.
type CallQuerier interface {
	QueryByOffice(rio string) []calls.Call
	Snapshot() registry.Snapshot
}

// LiveRepo reports straight off a registry: the engine in the API, a loaded
// snapshot in deskctl.
type LiveRepo struct {
	q CallQuerier
}

func NewLiveRepo(q CallQuerier) *LiveRepo { return &LiveRepo{q: q} }

func (r *LiveRepo) ListCalls(ctx context.Context, office string) ([]calls.Call, error) {
	if office != "" {
		return r.q.QueryByOffice(office), nil
	}
	s := r.q.Snapshot()
	out := make([]calls.Call, 0, len(s.Pending)+len(s.Verified)+len(s.Disposed))
	out = append(out, s.Pending...)
	out = append(out, s.Verified...)
	out = append(out, s.Disposed...)
	return out, nil
}
