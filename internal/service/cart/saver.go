package cart

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"glow-storefront/internal/repository/kv"
)

// saver writes cart blobs from a single goroutine. Pending blobs are
// coalesced, so writes land in sequence order and storage converges on the
// most recent state scheduled.
type saver struct {
	kv      kv.Store
	key     string
	timeout time.Duration
	logger  logrus.FieldLogger

	mu         sync.Mutex
	pending    string
	hasPending bool
	scheduled  uint64
	done       uint64
	progress   chan struct{}
	closed     bool

	wake    chan struct{}
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

func newSaver(store kv.Store, key string, timeout time.Duration, logger logrus.FieldLogger) *saver {
	w := &saver{
		kv:       store,
		key:      key,
		timeout:  timeout,
		logger:   logger,
		progress: make(chan struct{}),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go w.run()
	return w
}

// schedule never blocks on storage.
func (w *saver) schedule(blob string) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.logger.Debug("cart saver closed, dropping write")
		return
	}
	w.scheduled++
	w.pending = blob
	w.hasPending = true
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *saver) run() {
	defer close(w.stopped)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.stop:
			w.drain()
			return
		}
	}
}

func (w *saver) drain() {
	for {
		w.mu.Lock()
		if !w.hasPending {
			w.mu.Unlock()
			return
		}
		blob, seq := w.pending, w.scheduled
		w.hasPending = false
		w.mu.Unlock()

		w.write(blob, seq)

		w.mu.Lock()
		w.done = seq
		close(w.progress)
		w.progress = make(chan struct{})
		w.mu.Unlock()
	}
}

func (w *saver) write(blob string, seq uint64) {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if err := w.kv.Set(ctx, w.key, blob); err != nil {
		w.logger.WithError(err).WithField("seq", seq).Warn("persist cart failed")
		return
	}
	w.logger.WithFields(logrus.Fields{"seq": seq, "bytes": len(blob)}).Debug("persisted cart")
}

// flush waits until everything scheduled before the call has been attempted.
func (w *saver) flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.scheduled
	w.mu.Unlock()
	for {
		w.mu.Lock()
		if w.done >= target {
			w.mu.Unlock()
			return nil
		}
		ch := w.progress
		w.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// close drains pending writes and stops the goroutine.
func (w *saver) close(ctx context.Context) error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.stop)
	})
	select {
	case <-w.stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
