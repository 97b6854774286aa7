package haptics

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

type fakeGenerator struct {
	mu    sync.Mutex
	calls []string
	err   error
	spans map[string]time.Duration
}

func (g *fakeGenerator) record(call string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, call)
	return g.err
}

func (g *fakeGenerator) Impact(style ImpactStyle, intensity float64) error {
	return g.record(fmt.Sprintf("impact:%s:%.2f", style, intensity))
}

func (g *fakeGenerator) Notify(kind NotificationKind) error {
	return g.record("notify:" + kind.String())
}

func (g *fakeGenerator) Select() error {
	return g.record("select")
}

func (g *fakeGenerator) ImpactDuration(style ImpactStyle) time.Duration {
	return g.spans["impact:"+style.String()]
}

func (g *fakeGenerator) NotifyDuration(kind NotificationKind) time.Duration {
	return g.spans["notify:"+kind.String()]
}

func (g *fakeGenerator) SelectDuration() time.Duration {
	return g.spans["select"]
}

// untimedGenerator hides the duration methods of the wrapped generator
type untimedGenerator struct {
	Generator
}

func (g *fakeGenerator) Calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.calls...)
}

type fakeEngine struct {
	startErr  error
	submitErr error
	onReset   func()

	started  bool
	stops    int
	halts    int
	events   []Event
	patterns [][]Event
}

func (e *fakeEngine) Start() error {
	if e.startErr != nil {
		return e.startErr
	}
	e.started = true
	return nil
}

func (e *fakeEngine) Stop() error {
	e.stops++
	e.started = false
	return nil
}

func (e *fakeEngine) SubmitEvent(ev Event) error {
	if e.submitErr != nil {
		return e.submitErr
	}
	e.events = append(e.events, ev)
	return nil
}

func (e *fakeEngine) SubmitPattern(events []Event) error {
	if e.submitErr != nil {
		return e.submitErr
	}
	e.patterns = append(e.patterns, events)
	return nil
}

func (e *fakeEngine) Halt() error {
	e.halts++
	return nil
}

type fakePlatform struct {
	caps       Capabilities
	capQueries int
	gen        *fakeGenerator
	newErr     error
	startErr   error
	engines    []*fakeEngine
	untimed    bool
}

func newFakePlatform(basic, core bool) *fakePlatform {
	return &fakePlatform{
		caps: Capabilities{Basic: basic, Core: core},
		gen:  &fakeGenerator{},
	}
}

func (p *fakePlatform) Capabilities() Capabilities {
	p.capQueries++
	return p.caps
}

func (p *fakePlatform) Generator() Generator {
	if p.untimed {
		return untimedGenerator{p.gen}
	}
	return p.gen
}

func (p *fakePlatform) NewEngine(onReset func()) (Engine, error) {
	if p.newErr != nil {
		return nil, p.newErr
	}
	e := &fakeEngine{startErr: p.startErr, onReset: onReset}
	p.engines = append(p.engines, e)
	return e, nil
}

func (p *fakePlatform) last() *fakeEngine {
	if len(p.engines) == 0 {
		return nil
	}
	return p.engines[len(p.engines)-1]
}

var errBoom = errors.New("boom")

// immediate runs delayed fallback steps inline
func immediate(_ time.Duration, f func()) { f() }

func newTestHaptics(p *fakePlatform) *Haptics {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(p, WithLogger(logger), WithAfterFunc(immediate))
}
