package schema

import (
	"log/slog"
	"sync/atomic"
)

// Registry publishes the active schema. Readers get a consistent snapshot;
// a reload swaps the whole schema at once, never single fields.
type Registry struct {
	current atomic.Pointer[Schema]
}

func NewRegistry(initial *Schema) *Registry {
	r := &Registry{}
	r.current.Store(initial)
	return r
}

// Load returns the schema snapshot active at call time.
func (r *Registry) Load() *Schema {
	return r.current.Load()
}

// Publish atomically replaces the active schema.
func (r *Registry) Publish(s *Schema) {
	prev := r.current.Swap(s)
	if prev != nil {
		slog.Info("Schema published", "type", s.Type(), "previous", prev.Type(), "fields", len(s.fields))
	} else {
		slog.Info("Schema published", "type", s.Type(), "fields", len(s.fields))
	}
}

// Reload reads path and publishes the result. On error the active schema is kept.
func (r *Registry) Reload(path string) error {
	s, err := LoadFile(path)
	if err != nil {
		slog.Error("Schema reload failed, keeping active schema", "path", path, "error", err)
		return err
	}
	r.Publish(s)
	return nil
}
