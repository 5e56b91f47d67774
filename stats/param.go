// Package stats implements named, periodically-recomputed aggregates
// over the thermostat units. Bursts of change notifications coalesce
// into a single recomputation per parameter.
package stats

import (
	"reflect"
	"sync"
	"time"

	"github.com/homeclimate/thermoms/log"
)

// DefaultDelay is the debounce window for coalescing update requests.
const DefaultDelay = 3 * time.Second

type (
	// Attrs is the set of entries a parameter publishes.
	Attrs map[string]float64

	// Generator is a contract for the specialization computing a fresh
	// aggregate.
	Generator interface {
		GenerateEntries() (Attrs, error)
	}

	// Publisher is a contract for the state-publishing sink.
	Publisher interface {
		Publish(param string, attrs Attrs) error
	}

	// Param is a single statistical parameter. It owns the debounce
	// timer; at most one recomputation is pending at any time.
	Param struct {
		name  string
		log   log.Logger
		gen   Generator
		pub   Publisher
		delay time.Duration

		mu    sync.Mutex
		timer *time.Timer
		last  Attrs
	}
)

// NewParam creates a parameter. A non-positive delay falls back to
// DefaultDelay.
func NewParam(name string, gen Generator, pub Publisher, delay time.Duration, l log.Logger) *Param {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Param{
		name:  name,
		gen:   gen,
		pub:   pub,
		delay: delay,
		log:   l.With("component", "stats", "param", name),
	}
}

// Name returns the parameter's name.
func (p *Param) Name() string {
	return p.name
}

// Last returns the last published entries, or the seeded baseline
// when nothing was published yet.
func (p *Param) Last() Attrs {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// SetBaseline seeds the change-suppression baseline, e.g. with the last
// state published before a restart.
func (p *Param) SetBaseline(a Attrs) {
	p.mu.Lock()
	p.last = a
	p.mu.Unlock()
}

// RequestUpdate schedules a recomputation after the debounce delay.
// If one is already pending, the call is a no-op.
func (p *Param) RequestUpdate() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.timer != nil {
		p.log.Debugf("update pending already")
		return
	}
	p.log.Debugf("going to update in %s", p.delay)
	p.timer = time.AfterFunc(p.delay, p.refresh)
}

func (p *Param) refresh() {
	p.mu.Lock()
	p.timer = nil
	last := p.last
	p.mu.Unlock()

	attrs, err := p.gen.GenerateEntries()
	if err != nil {
		p.log.Errorf("func GenerateEntries: %s", err)
		return
	}

	if reflect.DeepEqual(attrs, last) {
		p.log.Debugf("unchanged state: %v", attrs)
		return
	}

	if err := p.pub.Publish(p.name, attrs); err != nil {
		p.log.Errorf("func Publish: %s", err)
		return
	}

	p.mu.Lock()
	p.last = attrs
	p.mu.Unlock()

	p.log.With("event", log.EventStatsPublished).Infof("new state: %v", attrs)
}
