package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"inspection-platform/internal/calls"
	"inspection-platform/internal/datasource"
	"inspection-platform/internal/history"
	"inspection-platform/internal/locks"
	"inspection-platform/internal/metrics"
	"inspection-platform/internal/registry"
	"inspection-platform/pkg/logger"
)

// History actions. Presentation layers show these verbatim.
const (
	ActionVerified    = "Call Verified & Registered"
	ActionReturned    = "Returned for Rectification"
	ActionReroutedFmt = "Re-routed to %s"
	ActionResubmitted = "Resubmitted by Vendor"
)

// Operation names used in logs and metrics.
const (
	OpVerify   = "verify"
	OpReturn   = "return"
	OpReroute  = "reroute"
	OpResubmit = "resubmit"
	OpRefresh  = "refresh"
)

var ErrNoSource = errors.New("lifecycle: no data source configured")

type Deps struct {
	Registry *registry.Registry
	History  *history.Log
	Source   datasource.Source
	Store    datasource.Store
	Locker   locks.Locker
	Logger   *slog.Logger
}

type Options struct {
	// LockWait bounds how long a transition waits for the per-call lock. Zero means
	// wait as long as the caller's context allows.
	LockWait time.Duration
	// LockBackend labels lock wait metrics ("local" or "redis").
	LockBackend string
	Now         func() time.Time
}

// Engine is the only writer of call lifecycle state.
//
// Ordering per transition: per-call lock, re-read, validate, durable write,
// then registry commit and history append under commitMu. Readers take commitMu
// shared, so they observe either none or all of a transition.
type Engine struct {
	registry *registry.Registry
	history  *history.Log
	source   datasource.Source
	store    datasource.Store
	locker   locks.Locker
	log      *slog.Logger
	opts     Options

	// refreshMu is held shared by transitions and exclusively by Refresh, so a
	// reload never interleaves with a half-finished transition.
	refreshMu sync.RWMutex
	commitMu  sync.RWMutex
	offices   []calls.RegionalOffice
	byCode    map[string]calls.RegionalOffice
}

func New(d Deps, opts Options) *Engine {
	if d.Registry == nil {
		d.Registry = registry.New()
	}
	if d.History == nil {
		d.History = history.NewLog(history.NewMemoryRepo())
	}
	if d.Store == nil {
		d.Store = datasource.NewMemoryStore()
	}
	if d.Locker == nil {
		d.Locker = locks.NewLocal()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.LockBackend == "" {
		opts.LockBackend = "local"
	}
	return &Engine{
		registry: d.Registry,
		history:  d.History,
		source:   d.Source,
		store:    d.Store,
		locker:   d.Locker,
		log:      d.Logger,
		opts:     opts,
		byCode:   map[string]calls.RegionalOffice{},
	}
}

// Guard decides whether the caller may act on a call. Guards run on the call as
// read under its lock, so they see the state the transition will apply to.
type Guard func(c calls.Call) error

// VerifyAndAccept accepts a pending call into the verified-open bucket. Remarks are optional.
func (e *Engine) VerifyAndAccept(ctx context.Context, identifier, remarks string, guards ...Guard) (calls.Call, error) {
	return e.transition(ctx, OpVerify, identifier, guards, func(c *calls.Call) (string, string, error) {
		c.Status = calls.StatusVerifiedRegistered
		c.ReturnReason = ""
		c.FlaggedFields = nil
		return ActionVerified, strings.TrimSpace(remarks), nil
	})
}

// ReturnForRectification sends a pending call back to the vendor with the
// sections that need correcting. The call stays in pending-verification.
func (e *Engine) ReturnForRectification(ctx context.Context, identifier, remarks string, flagged []calls.FlaggedField, guards ...Guard) (calls.Call, error) {
	return e.transition(ctx, OpReturn, identifier, guards, func(c *calls.Call) (string, string, error) {
		reason := strings.TrimSpace(remarks)
		if reason == "" {
			return "", "", calls.ValidationFailed("remarks", calls.CodeRemarksRequired, "remarks are required to return a call")
		}
		known, unknown := calls.NormalizeFlaggedFields(flagged)
		if len(unknown) > 0 {
			return "", "", calls.ValidationFailed("flagged_fields", calls.CodeFlaggedFieldUnknown,
				fmt.Sprintf("unknown flagged field %q", unknown[0]))
		}
		if len(known) == 0 {
			return "", "", calls.ValidationFailed("flagged_fields", calls.CodeFlaggedFieldsRequired, "at least one field must be flagged")
		}
		c.Status = calls.StatusReturned
		c.ReturnReason = reason
		c.FlaggedFields = known
		return ActionReturned, reason, nil
	})
}

// RerouteToOffice moves ownership of a pending call to another regional office.
// Status and bucket are unchanged.
func (e *Engine) RerouteToOffice(ctx context.Context, identifier, officeCode, remarks string, guards ...Guard) (calls.Call, error) {
	return e.transition(ctx, OpReroute, identifier, guards, func(c *calls.Call) (string, string, error) {
		target := calls.NormalizeOfficeCode(officeCode)
		if target == "" {
			return "", "", calls.ValidationFailed("target_office", calls.CodeTargetOfficeRequired, "target office is required")
		}
		if _, ok := e.office(target); !ok {
			return "", "", calls.ValidationFailed("target_office", calls.CodeTargetOfficeUnknown,
				fmt.Sprintf("unknown regional office %q", target))
		}
		if target == calls.NormalizeOfficeCode(c.RIO) {
			return "", "", calls.ValidationFailed("target_office", calls.CodeTargetOfficeSame,
				fmt.Sprintf("call is already with %s", target))
		}
		reason := strings.TrimSpace(remarks)
		if reason == "" {
			return "", "", calls.ValidationFailed("remarks", calls.CodeRemarksRequired, "remarks are required to re-route a call")
		}
		c.RIO = target
		return fmt.Sprintf(ActionReroutedFmt, target), reason, nil
	})
}

// RecordResubmission applies the vendor's resubmission of a returned call.
// The cleared return reason and flagged fields are kept in the history remarks.
func (e *Engine) RecordResubmission(ctx context.Context, identifier, remarks string, guards ...Guard) (calls.Call, error) {
	return e.transition(ctx, OpResubmit, identifier, guards, func(c *calls.Call) (string, string, error) {
		if c.Status != calls.StatusReturned {
			return "", "", calls.InvalidTransition("call %s is %s; only returned calls can be resubmitted", c.CallNumber, c.Status)
		}
		archived := archiveReturn(c.ReturnReason, c.FlaggedFields)
		note := strings.TrimSpace(remarks)
		if note != "" {
			note = note + " (" + archived + ")"
		} else {
			note = archived
		}
		c.SubmissionCount++
		c.Status = calls.StatusResubmission
		c.ReturnReason = ""
		c.FlaggedFields = nil
		return ActionResubmitted, note, nil
	})
}

func archiveReturn(reason string, fields []calls.FlaggedField) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return fmt.Sprintf("previous return: %s; flagged: %s", reason, strings.Join(names, ", "))
}

type mutation func(c *calls.Call) (action, remarks string, err error)

func (e *Engine) transition(ctx context.Context, op, identifier string, guards []Guard, mutate mutation) (out calls.Call, err error) {
	log := logger.From(ctx).With("op", op, "call", identifier)
	defer func() { e.finish(log, op, err) }()

	e.refreshMu.RLock()
	defer e.refreshMu.RUnlock()

	// Resolve the call number first: the lock is keyed by it, callers may pass the id.
	resolved, _, err := e.lookup(identifier)
	if err != nil {
		return calls.Call{}, err
	}
	release, err := e.acquire(ctx, resolved.CallNumber)
	if err != nil {
		return calls.Call{}, err
	}
	defer release()

	current, bucket, err := e.lookup(identifier)
	if err != nil {
		return calls.Call{}, err
	}
	for _, g := range guards {
		if err := g(current.Clone()); err != nil {
			return calls.Call{}, err
		}
	}
	if bucket != calls.BucketPendingVerification {
		return calls.Call{}, calls.InvalidTransition("call %s is %s (%s); only pending-verification calls accept %s",
			current.CallNumber, current.Status, bucket, op)
	}

	next := current.Clone()
	action, remarks, err := mutate(&next)
	if err != nil {
		return calls.Call{}, err
	}
	next.Version = current.Version + 1
	next.UpdatedAt = e.opts.Now().UTC()
	if err := next.Validate(); err != nil {
		return calls.Call{}, err
	}

	entry, err := e.history.Build(next.CallNumber, action, ActorFrom(ctx), remarks)
	if err != nil {
		return calls.Call{}, calls.InvariantViolation("build history entry: %v", err)
	}
	entry.Timestamp = next.UpdatedAt

	if err := e.store.SaveTransition(ctx, datasource.Change{Call: next, ExpectedVersion: current.Version, Entry: entry}); err != nil {
		if errors.Is(err, datasource.ErrVersionMismatch) {
			return calls.Call{}, calls.Conflict("call %s was changed elsewhere; refresh and retry", current.CallNumber)
		}
		return calls.Call{}, calls.PersistenceFailure(err)
	}

	e.commitMu.Lock()
	err = e.registry.Commit(next, current.Version)
	if err == nil {
		err = e.history.Record(ctx, entry)
	}
	e.commitMu.Unlock()
	if err != nil {
		// The durable write already happened; memory and store now disagree until the next refresh.
		return calls.Call{}, calls.InvariantViolation("commit %s after durable write: %v", next.CallNumber, err)
	}

	e.publishBucketSizes()
	log.Info("transition applied", "call_number", next.CallNumber, "status", next.Status, "rio", next.RIO, "version", next.Version)
	return next.Clone(), nil
}

func (e *Engine) acquire(ctx context.Context, key string) (func(), error) {
	lockCtx := ctx
	if e.opts.LockWait > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, e.opts.LockWait)
		defer cancel()
	}
	start := time.Now()
	release, err := e.locker.Acquire(lockCtx, key)
	metrics.ObserveLockWait(e.opts.LockBackend, time.Since(start))
	if err == nil {
		return release, nil
	}
	if errors.Is(err, locks.ErrTimeout) {
		return nil, calls.Conflict("call %s is being updated by another request", key)
	}
	return nil, calls.PersistenceFailure(fmt.Errorf("lock %s: %w", key, err))
}

func (e *Engine) finish(log *slog.Logger, op string, err error) {
	kind := calls.KindOf(err)
	switch {
	case err == nil:
		metrics.RecordTransition(op, "ok")
	case kind == calls.KindInvariantViolation:
		metrics.RecordTransition(op, string(kind))
		log.Error("invariant violation", "err", err)
	case kind == "":
		metrics.RecordTransition(op, "error")
		log.Error("transition failed", "err", err)
	default:
		metrics.RecordTransition(op, string(kind))
		log.Info("transition rejected", "kind", string(kind), "err", err)
	}
}

func (e *Engine) lookup(identifier string) (calls.Call, calls.Bucket, error) {
	e.commitMu.RLock()
	defer e.commitMu.RUnlock()
	return e.registry.GetByID(identifier)
}

func (e *Engine) office(code string) (calls.RegionalOffice, bool) {
	e.commitMu.RLock()
	defer e.commitMu.RUnlock()
	o, ok := e.byCode[code]
	return o, ok
}

func (e *Engine) publishBucketSizes() {
	k := e.Kpis()
	metrics.SetBucketSize(string(calls.BucketPendingVerification), k.PendingVerification.Total)
	metrics.SetBucketSize(string(calls.BucketVerifiedOpen), k.VerifiedOpen.Total)
	metrics.SetBucketSize(string(calls.BucketDisposed), k.Disposed.Total)
}

// Refresh reloads calls, offices and history. A source without history clears
// the trail, since it described the state being discarded. Refresh waits for
// in-flight transitions and swaps everything in one step.
func (e *Engine) Refresh(ctx context.Context) (err error) {
	log := logger.From(ctx).With("op", OpRefresh)
	defer func() {
		metrics.RecordRefresh(err == nil)
		if err != nil {
			log.Error("refresh failed", "err", err)
		}
	}()
	if e.source == nil {
		return ErrNoSource
	}

	e.refreshMu.Lock()
	defer e.refreshMu.Unlock()

	snap, err := e.source.FetchAll(ctx)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	byCode, err := indexOffices(snap.Offices)
	if err != nil {
		return err
	}
	if err := checkCallOffices(snap, byCode); err != nil {
		return err
	}

	e.commitMu.Lock()
	err = e.registry.Replace(snap.Registry())
	if err == nil {
		err = e.history.Load(ctx, snap.History)
	}
	if err == nil {
		e.offices = append([]calls.RegionalOffice(nil), snap.Offices...)
		e.byCode = byCode
	}
	e.commitMu.Unlock()
	if err != nil {
		return err
	}

	e.publishBucketSizes()
	log.Info("registry refreshed", "calls", e.registry.Len(), "offices", len(byCode))
	return nil
}

func indexOffices(list []calls.RegionalOffice) (map[string]calls.RegionalOffice, error) {
	out := make(map[string]calls.RegionalOffice, len(list))
	for _, o := range list {
		code := calls.NormalizeOfficeCode(o.Code)
		if code == "" {
			return nil, calls.InvariantViolation("regional office %q has no code", o.ID)
		}
		if _, dup := out[code]; dup {
			return nil, calls.InvariantViolation("regional office code %s listed twice", code)
		}
		out[code] = o
	}
	return out, nil
}

// checkCallOffices rejects calls owned by an office missing from the office list.
// A source without offices skips the check.
func checkCallOffices(snap datasource.Snapshot, byCode map[string]calls.RegionalOffice) error {
	if len(byCode) == 0 {
		return nil
	}
	for _, group := range [][]calls.Call{snap.Pending, snap.Verified, snap.Disposed} {
		for _, c := range group {
			if _, ok := byCode[calls.NormalizeOfficeCode(c.RIO)]; !ok {
				return calls.InvariantViolation("call %s belongs to unknown regional office %q", c.CallNumber, c.RIO)
			}
		}
	}
	return nil
}

// GetCall returns a copy of the call and its bucket.
func (e *Engine) GetCall(identifier string) (calls.Call, calls.Bucket, error) {
	return e.lookup(identifier)
}

// History returns the audit trail of a call, oldest first.
func (e *Engine) History(ctx context.Context, callNumber string) ([]calls.HistoryEntry, error) {
	e.commitMu.RLock()
	defer e.commitMu.RUnlock()
	return e.history.History(ctx, callNumber)
}

func (e *Engine) Kpis() registry.Kpis {
	e.commitMu.RLock()
	defer e.commitMu.RUnlock()
	return e.registry.Kpis()
}

func (e *Engine) Snapshot() registry.Snapshot {
	e.commitMu.RLock()
	defer e.commitMu.RUnlock()
	return e.registry.Snapshot()
}

func (e *Engine) QueryByStatus(s calls.Status) []calls.Call {
	e.commitMu.RLock()
	defer e.commitMu.RUnlock()
	return e.registry.QueryByStatus(s)
}

func (e *Engine) QueryByOffice(rio string) []calls.Call {
	e.commitMu.RLock()
	defer e.commitMu.RUnlock()
	return e.registry.QueryByOffice(rio)
}

// Offices returns the valid reroute targets ordered by code.
func (e *Engine) Offices() []calls.RegionalOffice {
	e.commitMu.RLock()
	out := make([]calls.RegionalOffice, len(e.offices))
	copy(out, e.offices)
	e.commitMu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
