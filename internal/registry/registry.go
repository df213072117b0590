package registry

import (
	"sync"

	"inspection-platform/internal/calls"
)

// Registry owns the authoritative set of calls, partitioned by lifecycle bucket.
//
// Invariants:
// - every call lives in exactly one bucket, and that bucket matches calls.BucketOf(status)
// - id and call number are unique across all buckets
//
// All reads return copies; nothing outside the registry holds a pointer into its slices.
// The registry is safe for concurrent use but does not serialize multi-step
// transitions; that is the lifecycle engine's job.
type Registry struct {
	mu      sync.RWMutex
	buckets map[calls.Bucket][]calls.Call
}

func New() *Registry {
	return &Registry{buckets: emptyBuckets()}
}

// Snapshot is a point-in-time copy of all buckets.
type Snapshot struct {
	Pending  []calls.Call `json:"pending"`
	Verified []calls.Call `json:"verified"`
	Disposed []calls.Call `json:"disposed"`
}

func (s Snapshot) Bucket(b calls.Bucket) []calls.Call {
	switch b {
	case calls.BucketPendingVerification:
		return s.Pending
	case calls.BucketVerifiedOpen:
		return s.Verified
	case calls.BucketDisposed:
		return s.Disposed
	default:
		return nil
	}
}

// Replace swaps the whole collection, e.g. after a reload from the data source.
// The new set is validated first; on error the registry is left untouched.
// Office codes are stored normalized.
func (r *Registry) Replace(s Snapshot) error {
	next := emptyBuckets()
	ids := map[string]bool{}
	numbers := map[string]bool{}
	for _, b := range calls.Buckets {
		for _, c := range s.Bucket(b) {
			if err := c.Validate(); err != nil {
				return err
			}
			if c.Bucket() != b {
				return calls.InvariantViolation("call %s with status %s supplied in bucket %s", c.CallNumber, c.Status, b)
			}
			if ids[c.ID] || numbers[c.CallNumber] {
				return calls.InvariantViolation("call %s supplied more than once", c.CallNumber)
			}
			ids[c.ID], numbers[c.CallNumber] = true, true
			stored := c.Clone()
			stored.RIO = calls.NormalizeOfficeCode(stored.RIO)
			next[b] = append(next[b], stored)
		}
	}
	r.mu.Lock()
	r.buckets = next
	r.mu.Unlock()
	return nil
}

// GetByID looks a call up by id or call number across all buckets.
func (r *Registry) GetByID(identifier string) (calls.Call, calls.Bucket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, i, err := r.locate(identifier)
	if err != nil {
		return calls.Call{}, calls.BucketNone, err
	}
	return r.buckets[b][i].Clone(), b, nil
}

// MoveToBucket removes the call from its current bucket and inserts it, with
// newStatus applied, into target. It is the only sanctioned way to change bucket.
func (r *Registry) MoveToBucket(c calls.Call, target calls.Bucket, newStatus calls.Status) error {
	if calls.BucketOf(newStatus) != target {
		return calls.InvariantViolation("status %s does not belong to bucket %s", newStatus, target)
	}
	c.Status = newStatus
	if err := c.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	from, i, err := r.locate(c.ID)
	if err != nil {
		return err
	}
	r.moveLocked(from, i, target, c)
	return nil
}

// Commit writes back an updated call if its stored version still equals
// expectedVersion. A bucket change implied by the new status goes through the
// same path as MoveToBucket.
func (r *Registry) Commit(updated calls.Call, expectedVersion int64) error {
	if err := updated.Validate(); err != nil {
		return err
	}
	updated.RIO = calls.NormalizeOfficeCode(updated.RIO)
	r.mu.Lock()
	defer r.mu.Unlock()
	from, i, err := r.locate(updated.ID)
	if err != nil {
		return err
	}
	current := r.buckets[from][i]
	if current.Version != expectedVersion {
		return calls.Conflict("call %s changed concurrently (version %d, expected %d)", current.CallNumber, current.Version, expectedVersion)
	}
	if current.CallNumber != updated.CallNumber {
		return calls.InvariantViolation("call %s cannot change its call number", current.CallNumber)
	}
	target := updated.Bucket()
	if target == from {
		r.buckets[from][i] = updated.Clone()
		return nil
	}
	r.moveLocked(from, i, target, updated)
	return nil
}

func (r *Registry) QueryByStatus(status calls.Status) []calls.Call {
	return r.filter(func(c calls.Call) bool { return c.Status == status })
}

func (r *Registry) QueryByOffice(rio string) []calls.Call {
	rio = calls.NormalizeOfficeCode(rio)
	return r.filter(func(c calls.Call) bool { return c.RIO == rio })
}

// Snapshot returns a consistent copy of all three buckets.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Snapshot{
		Pending:  cloneAll(r.buckets[calls.BucketPendingVerification]),
		Verified: cloneAll(r.buckets[calls.BucketVerifiedOpen]),
		Disposed: cloneAll(r.buckets[calls.BucketDisposed]),
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, b := range calls.Buckets {
		n += len(r.buckets[b])
	}
	return n
}

func (r *Registry) filter(keep func(calls.Call) bool) []calls.Call {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]calls.Call, 0)
	for _, b := range calls.Buckets {
		for _, c := range r.buckets[b] {
			if keep(c) {
				out = append(out, c.Clone())
			}
		}
	}
	return out
}

// locate finds the single position of a call. Caller holds r.mu.
func (r *Registry) locate(identifier string) (calls.Bucket, int, error) {
	if identifier == "" {
		return calls.BucketNone, -1, calls.NotFound(identifier)
	}
	foundBucket, foundIdx, hits := calls.BucketNone, -1, 0
	for _, b := range calls.Buckets {
		for i, c := range r.buckets[b] {
			if c.ID == identifier || c.CallNumber == identifier {
				foundBucket, foundIdx = b, i
				hits++
			}
		}
	}
	switch hits {
	case 0:
		return calls.BucketNone, -1, calls.NotFound(identifier)
	case 1:
		return foundBucket, foundIdx, nil
	default:
		return calls.BucketNone, -1, calls.InvariantViolation("call %q found %d times across buckets", identifier, hits)
	}
}

// moveLocked removes index i from bucket from and appends c to target. Caller holds r.mu.
func (r *Registry) moveLocked(from calls.Bucket, i int, target calls.Bucket, c calls.Call) {
	src := r.buckets[from]
	next := make([]calls.Call, 0, len(src)-1)
	next = append(next, src[:i]...)
	next = append(next, src[i+1:]...)
	r.buckets[from] = next
	r.buckets[target] = append(r.buckets[target], c.Clone())
}

func emptyBuckets() map[calls.Bucket][]calls.Call {
	return map[calls.Bucket][]calls.Call{
		calls.BucketPendingVerification: {},
		calls.BucketVerifiedOpen:        {},
		calls.BucketDisposed:            {},
	}
}

func cloneAll(in []calls.Call) []calls.Call {
	out := make([]calls.Call, len(in))
	for i, c := range in {
		out[i] = c.Clone()
	}
	return out
}
