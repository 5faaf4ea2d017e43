// Package scheduler runs recurring callbacks. The tracker schedules its
// auto-poll through this interface so tests can drive virtual time.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Token identifies one scheduled job.
type Token uint64

// Scheduler schedules fn every interval until the returned token is cancelled.
type Scheduler interface {
	Schedule(fn func(), interval time.Duration) Token
	Cancel(tok Token)
}

// TickerScheduler runs each job on its own goroutine driven by time.Ticker.
type TickerScheduler struct {
	ctx    context.Context
	next   atomic.Uint64
	mu     sync.Mutex
	cancel map[Token]context.CancelFunc
	wg     sync.WaitGroup
}

// NewTickerScheduler ties job lifetimes to ctx.
func NewTickerScheduler(ctx context.Context) *TickerScheduler {
	return &TickerScheduler{ctx: ctx, cancel: make(map[Token]context.CancelFunc)}
}

func (s *TickerScheduler) Schedule(fn func(), interval time.Duration) Token {
	tok := Token(s.next.Add(1))
	jobCtx, cancel := context.WithCancel(s.ctx)

	s.mu.Lock()
	s.cancel[tok] = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-jobCtx.Done():
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	return tok
}

func (s *TickerScheduler) Cancel(tok Token) {
	s.mu.Lock()
	cancel, ok := s.cancel[tok]
	delete(s.cancel, tok)
	s.mu.Unlock()
	if ok {
		cancel()
	}
}

// Stop cancels every job and waits for running callbacks to return.
func (s *TickerScheduler) Stop() {
	s.mu.Lock()
	for tok, cancel := range s.cancel {
		cancel()
		delete(s.cancel, tok)
	}
	s.mu.Unlock()
	s.wg.Wait()
}
