package orchestration

import (
	"sync"
	"testing"
	"time"
)

func TestIdleMonitorSubmitsAfterThreshold(t *testing.T) {
	collector := &promptCollector{}
	monitor := newIdleMonitor(30*time.Millisecond, 10*time.Millisecond,
		[]string{"check in"},
		func() bool { return false },
		collector.submit,
	)
	monitor.Start()
	defer monitor.Stop()

	waitForCondition(t, time.Second, "the idle prompt to fire", func() bool {
		return collector.count() >= 1
	})
	if got := collector.at(0); got != "check in" {
		t.Fatalf("expected the configured prompt, got %q", got)
	}
}

func TestIdleMonitorRotatesPrompts(t *testing.T) {
	collector := &promptCollector{}
	monitor := newIdleMonitor(20*time.Millisecond, 5*time.Millisecond,
		[]string{"first", "second"},
		func() bool { return false },
		collector.submit,
	)
	monitor.Start()
	defer monitor.Stop()

	waitForCondition(t, time.Second, "two prompts to fire", func() bool {
		return collector.count() >= 2
	})
	if collector.at(0) != "first" || collector.at(1) != "second" {
		t.Fatalf("expected rotation through the prompt list, got %q then %q", collector.at(0), collector.at(1))
	}
}

func TestIdleMonitorHoldsWhileBusy(t *testing.T) {
	collector := &promptCollector{}
	monitor := newIdleMonitor(20*time.Millisecond, 5*time.Millisecond,
		[]string{"check in"},
		func() bool { return true },
		collector.submit,
	)
	monitor.Start()
	defer monitor.Stop()

	time.Sleep(100 * time.Millisecond)
	if got := collector.count(); got != 0 {
		t.Fatalf("expected no prompts while busy, got %d", got)
	}
}

func TestIdleMonitorTouchResetsTheClock(t *testing.T) {
	collector := &promptCollector{}
	monitor := newIdleMonitor(60*time.Millisecond, 10*time.Millisecond,
		[]string{"check in"},
		func() bool { return false },
		collector.submit,
	)
	monitor.Start()
	defer monitor.Stop()

	// Keep touching inside the threshold; the prompt must never fire.
	for range 8 {
		time.Sleep(20 * time.Millisecond)
		monitor.Touch()
	}
	if got := collector.count(); got != 0 {
		t.Fatalf("expected touches to hold the prompt back, got %d", got)
	}

	waitForCondition(t, time.Second, "the prompt to fire once touching stops", func() bool {
		return collector.count() >= 1
	})
}

func TestIdleMonitorStopWaitsForTheLoop(t *testing.T) {
	collector := &promptCollector{}
	monitor := newIdleMonitor(5*time.Millisecond, time.Millisecond,
		[]string{"check in"},
		func() bool { return false },
		collector.submit,
	)
	monitor.Start()

	waitForCondition(t, time.Second, "the monitor to fire at least once", func() bool {
		return collector.count() >= 1
	})
	monitor.Stop()

	settled := collector.count()
	time.Sleep(30 * time.Millisecond)
	if got := collector.count(); got != settled {
		t.Fatalf("expected no prompts after stop returned, got %d more", got-settled)
	}

	monitor.Stop()
}

func TestIdleMonitorZeroThresholdNeverStarts(t *testing.T) {
	collector := &promptCollector{}
	monitor := newIdleMonitor(0, 5*time.Millisecond,
		[]string{"check in"},
		func() bool { return false },
		collector.submit,
	)
	monitor.Start()
	defer monitor.Stop()

	time.Sleep(50 * time.Millisecond)
	if got := collector.count(); got != 0 {
		t.Fatalf("expected a disarmed monitor to stay silent, got %d prompts", got)
	}
}

type promptCollector struct {
	mu      sync.Mutex
	prompts []string
}

func (c *promptCollector) submit(prompt string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prompts = append(c.prompts, prompt)
}

func (c *promptCollector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.prompts)
}

func (c *promptCollector) at(i int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prompts[i]
}
