package middleware

import (
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

// circuitBreaker decides when checks move to the fallback store. It opens
// after failureThreshold consecutive primary errors. While open, a single
// probe per probeInterval is sent to the primary; a successful probe moves it
// to half-open, and successThreshold consecutive successes close it again.
type circuitBreaker struct {
	mu               sync.Mutex
	state            breakerState
	failures         int
	successes        int
	failureThreshold int
	successThreshold int
	probeInterval    time.Duration
	openedAt         time.Time
	probing          bool
	now              func() time.Time
}

func newCircuitBreaker(failureThreshold, successThreshold int, probeInterval time.Duration, now func() time.Time) *circuitBreaker {
	if now == nil {
		now = time.Now
	}
	return &circuitBreaker{
		failureThreshold: max(failureThreshold, 1),
		successThreshold: max(successThreshold, 1),
		probeInterval:    probeInterval,
		now:              now,
	}
}

func (c *circuitBreaker) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateOpen
}

func (c *circuitBreaker) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateClosed
}

// usePrimary reports whether the caller should ask the primary store. While
// open it grants at most one in-flight probe once probeInterval has passed.
func (c *circuitBreaker) usePrimary() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateOpen {
		return true
	}
	if c.probing || c.now().Sub(c.openedAt) < c.probeInterval {
		return false
	}
	c.probing = true
	return true
}

// recordFailure reports whether the circuit is open after the failure.
func (c *circuitBreaker) recordFailure() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probing = false
	c.successes = 0
	switch c.state {
	case stateClosed:
		c.failures++
		if c.failures >= c.failureThreshold {
			c.trip()
		}
	default:
		c.trip()
	}
	return c.state == stateOpen
}

// recordSuccess reports whether the circuit is closed after the success.
func (c *circuitBreaker) recordSuccess() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.probing = false
	if c.state == stateClosed {
		c.failures = 0
		return true
	}
	c.successes++
	if c.successes >= c.successThreshold {
		c.state = stateClosed
		c.failures = 0
		c.successes = 0
		return true
	}
	c.state = stateHalfOpen
	return false
}

func (c *circuitBreaker) trip() {
	c.state = stateOpen
	c.openedAt = c.now()
}
