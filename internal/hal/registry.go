package hal

import (
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type Factory func(o Options) (Capability, error)

// Registry maps board ids to factories. Unknown ids resolve to the fallback.
type Registry struct {
	mu        sync.Mutex
	fallback  string
	factories map[string]Factory
}

// Default is the registry boards add themselves to from init.
var Default = NewRegistry("generic")

func NewRegistry(fallback string) *Registry {
	return &Registry{
		fallback:  NormalizeID(fallback),
		factories: map[string]Factory{},
	}
}

// NormalizeID maps the board id reported by a platform to a registry key.
func NormalizeID(id string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(id), ".", "_"))
}

func (r *Registry) Register(id string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[NormalizeID(id)] = f
}

func (r *Registry) Fallback() string {
	return r.fallback
}

// Boards lists the registered ids in order.
func (r *Registry) Boards() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.factories))
	for id := range r.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Open resolves the board once. The returned id is the board actually used.
func (r *Registry) Open(id string, o Options) (Capability, string, error) {
	r.mu.Lock()
	key := NormalizeID(id)
	f, ok := r.factories[key]
	if !ok {
		if key != "" {
			log.Warnf("No board registered as %q, using %q", id, r.fallback)
		}
		key = r.fallback
		f, ok = r.factories[key]
	}
	r.mu.Unlock()

	if !ok {
		return nil, "", errors.Errorf("fallback board %q is not registered", r.fallback)
	}

	c, err := f(o)
	if err != nil {
		return nil, key, errors.Wrapf(err, "opening board %s", key)
	}
	log.Infof("Using board %s", key)
	return c, key, nil
}
