package events

import "github.com/rs/zerolog"

// LogPublisher writes every event as a debug line.
type LogPublisher struct {
	log zerolog.Logger
}

// NewLogPublisher returns a publisher logging through l; nil logs nothing.
func NewLogPublisher(l *zerolog.Logger) *LogPublisher {
	p := &LogPublisher{log: zerolog.Nop()}
	if l != nil {
		p.log = l.With().Str("component", "events").Logger()
	}
	return p
}

func (p *LogPublisher) Publish(e Event) {
	ev := p.log.Debug().Str("event", e.Name)
	if e.RunID != "" {
		ev = ev.Str("run_id", e.RunID)
	}
	if e.ModelID != "" {
		ev = ev.Str("model", e.ModelID)
	}
	if len(e.Fields) > 0 {
		ev = ev.Fields(e.Fields)
	}
	ev.Msg("event")
}
