package listing

import (
	"log/slog"
	"sync"
	"time"
)

// ResourceOptions maps resource names to their controller options, so each
// resource can pick its pagination mode and defaults.
type ResourceOptions map[string]Options

// Registry hands out one controller per (session, resource) pair. Controllers
// live as long as the session; DropSession releases them on logout.
type Registry struct {
	fetcher  Fetcher
	options  ResourceOptions
	debounce time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	controllers map[registryKey]*Controller
}

type registryKey struct {
	sid      string
	resource string
}

func NewRegistry(fetcher Fetcher, options ResourceOptions, debounce time.Duration, logger *slog.Logger) *Registry {
	return &Registry{
		fetcher:     fetcher,
		options:     options,
		debounce:    debounce,
		logger:      logger,
		controllers: make(map[registryKey]*Controller),
	}
}

// Get returns the controller for sid and resource, creating it on first use.
func (r *Registry) Get(sid, resource string) *Controller {
	key := registryKey{sid: sid, resource: resource}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.controllers[key]; ok {
		return ctrl
	}

	opts := r.options[resource]
	if opts.Debounce <= 0 {
		opts.Debounce = r.debounce
	}
	ctrl := NewController(r.fetcher, sid, resource, opts, r.logger)
	r.controllers[key] = ctrl
	return ctrl
}

// Invalidate drops the cached collection of the controller for sid and
// resource, if one exists. A mutation handler calls this so the next list
// fetch reflects the change.
func (r *Registry) Invalidate(sid, resource string) {
	key := registryKey{sid: sid, resource: resource}

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.controllers[key]; ok {
		ctrl.Invalidate()
	}
}

// DropSession releases every controller belonging to sid.
func (r *Registry) DropSession(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, ctrl := range r.controllers {
		if key.sid == sid {
			ctrl.Close()
			delete(r.controllers, key)
		}
	}
}

// Close releases all controllers.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, ctrl := range r.controllers {
		ctrl.Close()
		delete(r.controllers, key)
	}
}
