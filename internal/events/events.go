package events

// Event represents a pipeline lifecycle event.
// Minimal and stable: name + run/model ids and optional fields via key/values.
type Event struct {
	Name    string
	RunID   string
	ModelID string
	Fields  map[string]any
}

// Event names published by the pipeline and the launcher.
const (
	Resolved   = "resolved"
	CapacityOK = "capacity_ok"
	Planned    = "planned"
	SpawnStart = "spawn_start"
	SpawnExit  = "spawn_exit"
	Failed     = "failed"
)

// Publisher receives events. Implementations should be lightweight and
// non-blocking; Publish must not panic.
type Publisher interface {
	Publish(Event)
}

// Noop drops events.
type Noop struct{}

func (Noop) Publish(Event) {}

// OrNoop returns p, or Noop when p is nil.
func OrNoop(p Publisher) Publisher {
	if p == nil {
		return Noop{}
	}
	return p
}
