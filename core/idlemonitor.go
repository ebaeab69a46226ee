package orchestration

import (
	"sync"
	"sync/atomic"
	"time"
)

// defaultIdlePrompts are the self-starter prompts the idle monitor rotates
// through when none are configured.
var defaultIdlePrompts = []string{
	"The user has been quiet for a while. Say something brief to re-open the conversation naturally.",
	"The conversation went silent. Offer a short, friendly check-in.",
}

// idleMonitor watches how long the conversation has been quiet and submits a
// self-starter prompt once the idle threshold passes. Busy states (an active
// turn, audible playback, speech being heard) hold the idle clock at zero, so
// the monitor never talks over anyone.
type idleMonitor struct {
	threshold time.Duration
	interval  time.Duration
	prompts   []string

	busy   func() bool
	submit func(prompt string)

	mu       sync.Mutex
	idleBase time.Time
	next     int

	startOnce sync.Once
	stopOnce  sync.Once
	running   atomic.Bool
	closeCh   chan struct{}
	done      chan struct{}
}

func newIdleMonitor(threshold, interval time.Duration, prompts []string, busy func() bool, submit func(string)) *idleMonitor {
	if interval <= 0 {
		interval = time.Second
	}
	if len(prompts) == 0 {
		prompts = defaultIdlePrompts
	}
	return &idleMonitor{
		threshold: threshold,
		interval:  interval,
		prompts:   prompts,
		busy:      busy,
		submit:    submit,
		closeCh:   make(chan struct{}),
		done:      make(chan struct{}),
	}
}

func (m *idleMonitor) Start() {
	if m == nil || m.threshold <= 0 {
		return
	}

	m.startOnce.Do(func() {
		m.mu.Lock()
		m.idleBase = time.Now()
		m.mu.Unlock()

		m.running.Store(true)
		go m.run()
	})
}

func (m *idleMonitor) run() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.closeCh:
			return
		case <-ticker.C:
			m.check()
		}
	}
}

func (m *idleMonitor) check() {
	if m.busy != nil && m.busy() {
		m.Touch()
		return
	}

	m.mu.Lock()
	if time.Since(m.idleBase) < m.threshold {
		m.mu.Unlock()
		return
	}
	prompt := m.prompts[m.next%len(m.prompts)]
	m.next++
	// Re-arm before submitting so the monitor does not fire again while the
	// self-starter turn is still queued.
	m.idleBase = time.Now()
	m.mu.Unlock()

	logger.Debug("idle threshold passed, submitting self-starter prompt")
	if m.submit != nil {
		m.submit(prompt)
	}
}

// Touch resets the idle clock. Called whenever conversation activity happens.
func (m *idleMonitor) Touch() {
	if m == nil {
		return
	}
	m.mu.Lock()
	m.idleBase = time.Now()
	m.mu.Unlock()
}

// Stop shuts the monitor down and waits for its goroutine to exit, so no
// check can fire after Stop returns.
func (m *idleMonitor) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.closeCh) })
	if m.running.Load() {
		<-m.done
	}
}
