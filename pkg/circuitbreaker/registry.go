package circuitbreaker

import (
	"sync"
)

// Registry hands out one Wrapper per key, created lazily from a template.
// Delivery adapters key it by publisher id so an unhealthy endpoint only
// trips its own breaker.
type Registry struct {
	template Config
	mu       sync.Mutex
	breakers map[string]*Wrapper
}

func NewRegistry(template Config) *Registry {
	return &Registry{
		template: template,
		breakers: make(map[string]*Wrapper),
	}
}

func (r *Registry) Get(key string) *Wrapper {
	r.mu.Lock()
	defer r.mu.Unlock()

	if w, ok := r.breakers[key]; ok {
		return w
	}

	cfg := r.template
	if cfg.Name != "" {
		cfg.Name = cfg.Name + ":" + key
	} else {
		cfg.Name = key
	}
	w := NewWrapper(cfg)
	r.breakers[key] = w
	return w
}
