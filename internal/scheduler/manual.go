package scheduler

import (
	"sort"
	"sync"
	"time"
)

// ManualScheduler is a virtual clock. Jobs only fire when Advance is called,
// on the calling goroutine.
type ManualScheduler struct {
	mu   sync.Mutex
	now  time.Duration
	next Token
	jobs map[Token]*manualJob
}

type manualJob struct {
	fn       func()
	interval time.Duration
	due      time.Duration
}

func NewManualScheduler() *ManualScheduler {
	return &ManualScheduler{jobs: make(map[Token]*manualJob)}
}

func (m *ManualScheduler) Schedule(fn func(), interval time.Duration) Token {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.jobs[m.next] = &manualJob{fn: fn, interval: interval, due: m.now + interval}
	return m.next
}

func (m *ManualScheduler) Cancel(tok Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.jobs, tok)
}

// Active returns the number of scheduled jobs.
func (m *ManualScheduler) Active() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.jobs)
}

// Advance moves the clock forward by d, firing due jobs in time order. A job
// cancelled by an earlier callback does not fire.
func (m *ManualScheduler) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		job := m.earliestDue(target)
		if job == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = job.due
		job.due += job.interval
		fn := job.fn
		m.mu.Unlock()

		fn()
	}
}

func (m *ManualScheduler) earliestDue(target time.Duration) *manualJob {
	toks := make([]Token, 0, len(m.jobs))
	for tok, job := range m.jobs {
		if job.due <= target {
			toks = append(toks, tok)
		}
	}
	if len(toks) == 0 {
		return nil
	}
	sort.Slice(toks, func(i, j int) bool {
		a, b := m.jobs[toks[i]], m.jobs[toks[j]]
		if a.due != b.due {
			return a.due < b.due
		}
		return toks[i] < toks[j]
	})
	return m.jobs[toks[0]]
}
