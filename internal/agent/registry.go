package agent

import (
	"sync"

	"github.com/mattgly/sage/internal/errors"
	"github.com/mattgly/sage/internal/logging"
)

// Capabilities describes what a profile is allowed to do.
type Capabilities struct {
	Profile     string
	Description string
	Tools       []string
}

// Registry resolves profile names to profiles and caches one session per
// profile for the life of the process. Re-resolving a profile returns the
// same session, history intact.
type Registry struct {
	mu       sync.Mutex
	profiles map[string]Profile
	order    []string
	sessions map[string]*Session
	log      *logging.Logger
}

// NewRegistry builds a registry over an immutable profile catalog.
func NewRegistry(profiles []Profile) *Registry {
	byName := make(map[string]Profile, len(profiles))
	order := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if _, exists := byName[p.Name]; !exists {
			order = append(order, p.Name)
		}
		byName[p.Name] = p
	}
	return &Registry{
		profiles: byName,
		order:    order,
		sessions: make(map[string]*Session),
		log:      logging.Global().WithPrefix("agent"),
	}
}

// Resolve returns the profile and its cached session, creating the session
// on first use.
func (r *Registry) Resolve(name string) (Profile, *Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[name]
	if !ok {
		return Profile{}, nil, errors.ProfileNotFound(name)
	}

	session, ok := r.sessions[name]
	if !ok {
		session = NewSession(name)
		r.sessions[name] = session
		r.log.Event(logging.EventProfileResolve,
			logging.Profile(name), logging.SessionID(session.ID))
	}

	return profile, session, nil
}

// ListProfiles returns all profiles in catalog declaration order.
func (r *Registry) ListProfiles() []Profile {
	r.mu.Lock()
	defer r.mu.Unlock()

	profiles := make([]Profile, 0, len(r.order))
	for _, name := range r.order {
		profiles = append(profiles, r.profiles[name])
	}
	return profiles
}

// Capabilities returns what a profile may do.
func (r *Registry) Capabilities(name string) (Capabilities, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	profile, ok := r.profiles[name]
	if !ok {
		return Capabilities{}, errors.ProfileNotFound(name)
	}
	tools := make([]string, len(profile.Tools))
	copy(tools, profile.Tools)
	return Capabilities{
		Profile:     profile.Name,
		Description: profile.Description,
		Tools:       tools,
	}, nil
}
