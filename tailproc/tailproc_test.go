package tailproc

import "testing"

func TestProcessEventsFiltersAndBatches(t *testing.T) {
	p := New()
	var flushed [][]Record
	p.Register(&View{
		Name:      "popular-posts",
		Type:      "Post",
		BatchSize: 2,
		Filter: func(ev Event) (bool, error) {
			return ev.Target == "Post" , nil
		},
		Transform: func(ev Event) ([]Record, error) {
			return []Record{{"id": ev.After["id"]}}, nil
		},
	}, func(view string, batch []Record) {
		cp := make([]Record, len(batch))
		copy(cp, batch)
		flushed = append(flushed, cp)
	})

	events := []Event{
		{Target: "Post", After: map[string]any{"id": "1"}},
		{Target: "User", After: map[string]any{"id": "2"}},
		{Target: "Post", After: map[string]any{"id": "3"}},
		{Target: "Post", After: map[string]any{"id": "4"}},
	}

	counters := p.ProcessEvents(events)
	if counters.Processed != 4 {
		t.Fatalf("processed = %d, want 4", counters.Processed)
	}
	if counters.Filtered != 1 {
		t.Fatalf("filtered = %d, want 1 (the User event)", counters.Filtered)
	}
	vc := counters.ByView["popular-posts"]
	if vc.Matched != 3 {
		t.Fatalf("matched = %d, want 3", vc.Matched)
	}
	if vc.Flushes != 1 {
		t.Fatalf("flushes = %d, want 1 (batch size 2 reached once, 1 left pending)", vc.Flushes)
	}
	if len(flushed) != 1 || len(flushed[0]) != 2 {
		t.Fatalf("unexpected flushed batches: %+v", flushed)
	}

	p.Flush()
	if len(flushed) != 2 || len(flushed[1]) != 1 {
		t.Fatalf("expected final Flush to drain the remaining record, got %+v", flushed)
	}
}

func TestProcessEventsIsolatesViewErrors(t *testing.T) {
	p := New()
	var okFlushed int
	var failErrors []error

	p.Register(&View{
		Name: "broken",
		Filter: func(ev Event) (bool, error) {
			return true, nil
		},
		Transform: func(ev Event) ([]Record, error) {
			return nil, errAlways
		},
		OnError: func(view string, ev Event, err error) {
			failErrors = append(failErrors, err)
		},
	}, nil)

	p.Register(&View{
		Name: "healthy",
		Filter: func(ev Event) (bool, error) {
			return true, nil
		},
		Transform: func(ev Event) ([]Record, error) {
			return []Record{{"ok": true}}, nil
		},
		BatchSize: 1,
	}, func(view string, batch []Record) {
		okFlushed += len(batch)
	})

	counters := p.ProcessEvents([]Event{{Target: "Post"}})

	if len(failErrors) != 1 {
		t.Fatalf("expected the broken view's transform error to be reported once, got %d", len(failErrors))
	}
	if okFlushed != 1 {
		t.Fatalf("healthy view should still flush despite broken view's error, got %d", okFlushed)
	}
	if counters.Errors != 1 {
		t.Fatalf("counters.Errors = %d, want 1", counters.Errors)
	}
}

type staticErr string

func (e staticErr) Error() string { return string(e) }

const errAlways = staticErr("transform always fails")
