// Package reqctx carries cancellation, a request id, and an optional
// deadline through every boundary call of a logical operation (index,
// reindex, clear, search).
package reqctx

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/kodesearch/semcode/internal/errs"
)

// RequestContext wraps a context.Context with the request id every log
// line and error envelope threads through. One RequestContext spans one
// logical operation; child contexts may narrow a deadline but never
// widen it.
type RequestContext struct {
	ctx       context.Context
	RequestID string
	Deadline  *time.Time
}

// New creates a root RequestContext with a freshly generated request id.
func New(ctx context.Context) *RequestContext {
	return &RequestContext{ctx: ctx, RequestID: uuid.NewString()}
}

// WithDeadline narrows rc's deadline, returning a child RequestContext.
// If d is later than an already-set deadline, the existing deadline is
// kept instead, since deadlines may only narrow, never widen.
func (rc *RequestContext) WithDeadline(d time.Time) *RequestContext {
	if rc.Deadline != nil && d.After(*rc.Deadline) {
		d = *rc.Deadline
	}
	cctx, cancel := context.WithDeadline(rc.ctx, d)
	_ = cancel
	return &RequestContext{ctx: cctx, RequestID: rc.RequestID, Deadline: &d}
}

// Context returns the underlying context.Context for use with
// context-aware APIs (I/O, channel selects).
func (rc *RequestContext) Context() context.Context {
	return rc.ctx
}

// Derive returns a child RequestContext sharing RequestID and Deadline
// but driven by ctx, which must already be derived from rc.Context()
// (e.g. an errgroup.WithContext child). Used where a stage needs its
// callers to observe cancellation from a sibling stage's failure.
func (rc *RequestContext) Derive(ctx context.Context) *RequestContext {
	return &RequestContext{ctx: ctx, RequestID: rc.RequestID, Deadline: rc.Deadline}
}

// EnsureNotCancelled returns a Cancelled error naming opName if rc has
// been cancelled, else nil.
func (rc *RequestContext) EnsureNotCancelled(opName string) error {
	if rc.ctx.Err() != nil {
		return errs.Cancelled(opName + " cancelled")
	}
	return nil
}

// Cancelled returns a channel closed once rc's context is done, for use
// in select statements at suspension points.
func (rc *RequestContext) Cancelled() <-chan struct{} {
	return rc.ctx.Done()
}
