package journal

import (
	"context"

	"go.uber.org/zap"

	"github.com/conduit-lang/cascade/internal/feed"
)

// Recorder appends every notification it receives to a store. Listeners
// cannot fail a mutation, so write errors are logged and the first one is
// kept for the caller to inspect.
type Recorder struct {
	ctx     context.Context
	store   *Store
	logger  *zap.Logger
	written int
	failed  int
	err     error
}

// NewRecorder creates a new Recorder
func NewRecorder(ctx context.Context, store *Store, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{ctx: ctx, store: store, logger: logger}
}

// Record stores n. It has the feed.Handler signature.
func (r *Recorder) Record(n feed.Notification) {
	e, err := FromNotification(n)
	if err == nil {
		err = r.store.Append(r.ctx, e)
	}
	if err != nil {
		r.failed++
		if r.err == nil {
			r.err = err
		}
		r.logger.Warn("journal write failed",
			zap.Uint64("seq", n.Seq),
			zap.String("type", string(n.Type)),
			zap.Error(err))
		return
	}
	r.written++
}

// Written returns the number of stored notifications
func (r *Recorder) Written() int { return r.written }

// Failed returns the number of notifications that could not be stored
func (r *Recorder) Failed() int { return r.failed }

// Err returns the first write error, if any
func (r *Recorder) Err() error { return r.err }
