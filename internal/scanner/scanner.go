package scanner

import (
	"context"
	"sync"

	"github.com/wms-platform/scan-service/pkg/logging"
)

// Source yields the payloads a capture device reads off its frames. The
// channel closes when the source is exhausted or ctx is cancelled.
type Source interface {
	Frames(ctx context.Context) (<-chan string, error)
}

// HitFunc receives each non-empty payload the scanner picks up
type HitFunc func(payload string)

// Scanner runs at most one frame subscription at a time. Start always tears
// down any previous subscription first; Stop is idempotent and safe to call
// on a scanner that never started.
type Scanner struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	logger *logging.Logger
}

// New creates a Scanner
func New(logger *logging.Logger) *Scanner {
	return &Scanner{
		logger: logger.WithComponent("scanner"),
	}
}

// Start subscribes to the source and delivers payloads to onHit until the
// source closes, ctx is cancelled, or Stop is called.
func (s *Scanner) Start(ctx context.Context, source Source, onHit HitFunc) error {
	// A scan may arrive while the previous subscription is still draining;
	// stop it before opening a new one.
	s.Stop()

	subCtx, cancel := context.WithCancel(ctx)

	frames, err := source.Frames(subCtx)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})

	s.mu.Lock()
	s.cancel = cancel
	s.done = done
	s.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-subCtx.Done():
				return
			case payload, ok := <-frames:
				if !ok {
					return
				}
				if payload == "" {
					continue
				}
				onHit(payload)
			}
		}
	}()

	s.logger.Debug("Scanner started")
	return nil
}

// Stop cancels the active subscription, if any, and waits for its loop to
// exit.
func (s *Scanner) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
	s.logger.Debug("Scanner stopped")
}

// Cancel stops the active subscription without waiting for its loop to
// exit. Unlike Stop it is safe to call from within the hit callback.
func (s *Scanner) Cancel() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.done = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}

// Running reports whether a subscription is active
func (s *Scanner) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.done == nil {
		return false
	}
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}
