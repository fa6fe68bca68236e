package events

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/rs/zerolog"
)

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(Noop); !ok {
		t.Fatalf("nil publisher should become Noop")
	}
	mp := NewMemoryPublisher()
	if OrNoop(mp) != Publisher(mp) {
		t.Fatalf("non-nil publisher should pass through")
	}
	OrNoop(nil).Publish(Event{Name: Failed})
}

func TestMemoryPublisherOrderAndCopy(t *testing.T) {
	mp := NewMemoryPublisher()
	mp.Publish(Event{Name: Resolved, ModelID: "m"})
	mp.Publish(Event{Name: CapacityOK, ModelID: "m"})
	mp.Publish(Event{Name: Planned, ModelID: "m", Fields: map[string]any{"ratio": 0.5}})

	names := mp.Names()
	want := []string{Resolved, CapacityOK, Planned}
	if len(names) != len(want) {
		t.Fatalf("names = %v", names)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}

	evs := mp.Events()
	evs[0].Name = "mutated"
	if mp.Events()[0].Name != Resolved {
		t.Fatalf("Events must return a copy")
	}
}

func TestMemoryPublisherConcurrent(t *testing.T) {
	mp := NewMemoryPublisher()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			mp.Publish(Event{Name: SpawnStart})
		}()
	}
	wg.Wait()
	if n := len(mp.Events()); n != 16 {
		t.Fatalf("got %d events, want 16", n)
	}
}

func TestRunIDContext(t *testing.T) {
	if got := RunIDFrom(context.Background()); got != "" {
		t.Fatalf("empty ctx run id = %q", got)
	}
	ctx := WithRunID(context.Background(), "run-1")
	if got := RunIDFrom(ctx); got != "run-1" {
		t.Fatalf("run id = %q", got)
	}
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Level(zerolog.DebugLevel)
	NewLogPublisher(&l).Publish(Event{Name: SpawnStart, RunID: "run-1", ModelID: "m", Fields: map[string]any{"pid": 42}})

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("json: %v (%s)", err, buf.String())
	}
	if line["level"] != "debug" || line["event"] != SpawnStart || line["run_id"] != "run-1" || line["model"] != "m" || line["pid"] != float64(42) {
		t.Fatalf("line = %v", line)
	}

	buf.Reset()
	info := zerolog.New(&buf).Level(zerolog.InfoLevel)
	NewLogPublisher(&info).Publish(Event{Name: Failed})
	if buf.Len() != 0 {
		t.Fatalf("debug event logged at info level: %s", buf.String())
	}
	NewLogPublisher(nil).Publish(Event{Name: Failed})
}
