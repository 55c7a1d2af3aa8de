// Package health exposes liveness and readiness probes for the storefront
// service. Checks run on background tickers and flip state only after a run
// of consecutive results, so a single slow database ping does not bounce the
// pod out of the load balancer.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// CheckFunc probes one dependency. A nil return means healthy.
type CheckFunc func(ctx context.Context) error

type probeKind int

const (
	liveness probeKind = iota
	readiness
)

// Thresholds before a probe changes state. A probe must fail failAfter times
// in a row to go unhealthy and pass passAfter times in a row to recover.
const (
	failAfter = 3
	passAfter = 1
)

// probe is one registered check plus its runtime state. The ticker goroutine
// is the only writer of the streak counters; handlers read ok and lastErr
// through atomics.
type probe struct {
	name    string
	kind    probeKind
	timeout time.Duration
	fn      CheckFunc

	ok      atomic.Bool
	lastErr atomic.Pointer[error]

	failStreak int
	passStreak int
}

func (p *probe) tick(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err := p.fn(ctx)
	p.lastErr.Store(&err)

	if err != nil {
		p.passStreak = 0
		p.failStreak++
		if p.failStreak >= failAfter {
			p.ok.Store(false)
		}
		return
	}
	p.failStreak = 0
	p.passStreak++
	if p.passStreak >= passAfter {
		p.ok.Store(true)
	}
}

func (p *probe) failure() (string, bool) {
	if p.ok.Load() {
		return "", false
	}
	if err := p.lastErr.Load(); err != nil && *err != nil {
		return (*err).Error(), true
	}
	return "check is unhealthy", true
}

// Service aggregates probes and serves the /livez and /readyz endpoints.
// Register every probe before calling Start.
type Service struct {
	ready atomic.Bool

	mu     sync.RWMutex
	probes []*probe
	cancel context.CancelFunc
}

// New returns a Service in the not-ready state. Call SetReady(true) once
// startup has finished.
func New() *Service {
	return &Service{}
}

// AddLivenessCheck registers a probe for /livez. Liveness failures mean the
// process itself is wedged and should be restarted.
func (s *Service) AddLivenessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.add(liveness, name, timeout, fn)
}

// AddReadinessCheck registers a probe for /readyz. Readiness failures take
// the instance out of rotation without restarting it.
func (s *Service) AddReadinessCheck(name string, timeout time.Duration, fn CheckFunc) {
	s.add(readiness, name, timeout, fn)
}

func (s *Service) add(kind probeKind, name string, timeout time.Duration, fn CheckFunc) {
	p := &probe{name: name, kind: kind, timeout: timeout, fn: fn}
	p.ok.Store(true)

	s.mu.Lock()
	s.probes = append(s.probes, p)
	s.mu.Unlock()
}

// Start launches one ticker goroutine per registered probe. Each probe runs
// once immediately and then every interval until the context is cancelled or
// Stop is called.
func (s *Service) Start(ctx context.Context, interval time.Duration) {
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	s.cancel = cancel
	probes := make([]*probe, len(s.probes))
	copy(probes, s.probes)
	s.mu.Unlock()

	for _, p := range probes {
		go func(p *probe) {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			p.tick(ctx)
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.tick(ctx)
				}
			}
		}(p)
	}
}

// Stop cancels the probe goroutines. Safe to call more than once.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// SetReady flips the manual readiness gate. Startup sets it true once wiring
// completes; graceful shutdown sets it false to drain traffic.
func (s *Service) SetReady(ready bool) {
	s.ready.Store(ready)
}

// IsReady reports whether the manual gate is open and every readiness probe
// is passing.
func (s *Service) IsReady() bool {
	if !s.ready.Load() {
		return false
	}
	for _, f := range s.snapshot(readiness) {
		if _, bad := f.failure(); bad {
			return false
		}
	}
	return true
}

func (s *Service) snapshot(kind probeKind) []*probe {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*probe, 0, len(s.probes))
	for _, p := range s.probes {
		if p.kind == kind {
			out = append(out, p)
		}
	}
	return out
}

type probeReport struct {
	Status   string            `json:"status"`
	Failures map[string]string `json:"failures,omitempty"`
}

// LiveEndpoint serves /livez: 200 while all liveness probes pass, 503 with
// the failing probe names otherwise.
func (s *Service) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	s.report(w, s.snapshot(liveness), true)
}

// ReadyEndpoint serves /readyz: 200 only when the manual gate is open and
// all readiness probes pass.
func (s *Service) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	s.report(w, s.snapshot(readiness), s.ready.Load())
}

func (s *Service) report(w http.ResponseWriter, probes []*probe, gate bool) {
	failures := make(map[string]string)
	for _, p := range probes {
		if msg, bad := p.failure(); bad {
			failures[p.name] = msg
		}
	}
	if !gate {
		failures["_gate"] = "service is not ready"
	}

	resp := probeReport{Status: "ok"}
	code := http.StatusOK
	if len(failures) > 0 {
		resp.Status = "unhealthy"
		resp.Failures = failures
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}
