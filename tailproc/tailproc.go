// Package tailproc implements the tail event processor (§4.H): a registry
// of stream views that filter, transform, and batch incoming events into
// materialized-view records, with per-view error isolation.
package tailproc

import (
	"github.com/parquedb/parquedb/internal/logging"
)

// Event is the minimal event shape views operate over; engine.Event
// satisfies the data this package needs via the caller mapping it in.
type Event struct {
	Target string
	Op     string
	Before map[string]any
	After  map[string]any
}

// Record is one output row a view's transform produced.
type Record map[string]any

// FilterFunc decides whether ev is relevant to a view. Returning an error
// counts as "skip this event for this view" and invokes the view's error
// handler.
type FilterFunc func(ev Event) (bool, error)

// TransformFunc maps a matched event to one or more output records.
type TransformFunc func(ev Event) ([]Record, error)

// ErrorHandler is invoked when a view's Filter or Transform errors.
type ErrorHandler func(view string, ev Event, err error)

// View is one registered stream view: `{$type, $stream, $schema, $filter?,
// $transform, $refresh}` in spec terms.
type View struct {
	Name        string
	Type        string // $type
	Stream      string // $stream destination
	Filter      FilterFunc
	Transform   TransformFunc
	OnError     ErrorHandler
	BatchSize   int // flush threshold by record count
	BatchBytes  int // flush threshold by approximate byte size

	pending   []Record
	sizeBytes int
	onFlush   func(view string, batch []Record)
}

func recordSize(r Record) int {
	n := 0
	for k, v := range r {
		n += len(k) + 16
		if s, ok := v.(string); ok {
			n += len(s)
		}
	}
	return n
}

// Counters tallies one processEvents call's outcome (§4.H "Result
// counters").
type Counters struct {
	Processed int
	Filtered  int
	Errors    int
	ByView    map[string]*ViewCounters
}

// ViewCounters is one view's contribution to Counters.ByView.
type ViewCounters struct {
	Matched int
	Skipped int
	Errors  int
	Flushes int
}

// Processor owns the view registry and dispatches events to every view.
type Processor struct {
	views map[string]*View
	order []string
}

// New returns an empty Processor.
func New() *Processor {
	return &Processor{views: map[string]*View{}}
}

// Register adds or replaces a view. onFlush receives each flushed batch.
func (p *Processor) Register(v *View, onFlush func(view string, batch []Record)) {
	v.onFlush = onFlush
	if _, exists := p.views[v.Name]; !exists {
		p.order = append(p.order, v.Name)
	}
	p.views[v.Name] = v
}

// ProcessEvents runs every view over every event, isolating each view's
// errors from the others (§4.H).
func (p *Processor) ProcessEvents(events []Event) Counters {
	c := Counters{ByView: map[string]*ViewCounters{}}
	for _, name := range p.order {
		c.ByView[name] = &ViewCounters{}
	}

	for _, ev := range events {
		c.Processed++
		matchedAny := false
		for _, name := range p.order {
			v := p.views[name]
			vc := c.ByView[name]

			if v.Filter != nil {
				ok, err := v.Filter(ev)
				if err != nil {
					vc.Errors++
					c.Errors++
					p.reportError(v, ev, err)
					continue
				}
				if !ok {
					vc.Skipped++
					continue
				}
			}
			matchedAny = true
			vc.Matched++

			recs, err := v.Transform(ev)
			if err != nil {
				vc.Errors++
				c.Errors++
				p.reportError(v, ev, err)
				continue
			}
			for _, r := range recs {
				v.pending = append(v.pending, r)
				v.sizeBytes += recordSize(r)
			}
			if p.shouldFlush(v) {
				p.flushView(v)
				vc.Flushes++
			}
		}
		if !matchedAny {
			c.Filtered++
		}
	}
	return c
}

func (p *Processor) shouldFlush(v *View) bool {
	if v.BatchSize > 0 && len(v.pending) >= v.BatchSize {
		return true
	}
	if v.BatchBytes > 0 && v.sizeBytes >= v.BatchBytes {
		return true
	}
	return false
}

func (p *Processor) flushView(v *View) {
	if len(v.pending) == 0 {
		return
	}
	batch := v.pending
	v.pending = nil
	v.sizeBytes = 0
	if v.onFlush != nil {
		v.onFlush(v.Name, batch)
	}
}

// Flush drains every view's pending batch regardless of threshold.
func (p *Processor) Flush() {
	for _, name := range p.order {
		p.flushView(p.views[name])
	}
}

func (p *Processor) reportError(v *View, ev Event, err error) {
	if v.OnError != nil {
		v.OnError(v.Name, ev, err)
		return
	}
	logging.Named("tailproc").Sugar().Warnw("view error", "view", v.Name, "target", ev.Target, "error", err)
}
