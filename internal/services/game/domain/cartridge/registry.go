package cartridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
)

var (
	// ErrUnknownMechanism indicates a lookup for an unregistered mechanism.
	ErrUnknownMechanism = errors.New("unknown cartridge mechanism")
	// ErrDuplicateMechanism indicates two entries for the same kind and mechanism.
	ErrDuplicateMechanism = errors.New("duplicate cartridge mechanism")
)

// Entry registers one mechanism.
type Entry struct {
	Kind      Kind
	Mechanism string
	// New constructs a live cartridge.
	New func(env Env, cfg Config) Actor
	// Blank returns an empty value that snapshot state is decoded into.
	Blank func() Actor
}

// Registry is the closed set of mechanisms a game can spawn.
type Registry struct {
	entries  map[Kind]map[string]Entry
	defaults map[Kind]string
}

// NewRegistry builds a registry from entries.
func NewRegistry(entries ...Entry) (*Registry, error) {
	r := &Registry{
		entries:  make(map[Kind]map[string]Entry),
		defaults: make(map[Kind]string),
	}
	for _, e := range entries {
		if err := r.Register(e); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds e. The first mechanism registered for a kind becomes the
// kind's default until SetDefault overrides it.
func (r *Registry) Register(e Entry) error {
	if e.New == nil || e.Blank == nil || e.Mechanism == "" {
		return fmt.Errorf("register %s/%s: entry is incomplete", e.Kind, e.Mechanism)
	}
	byMech, ok := r.entries[e.Kind]
	if !ok {
		byMech = make(map[string]Entry)
		r.entries[e.Kind] = byMech
	}
	if _, exists := byMech[e.Mechanism]; exists {
		return fmt.Errorf("%w: %s/%s", ErrDuplicateMechanism, e.Kind, e.Mechanism)
	}
	byMech[e.Mechanism] = e
	if _, ok := r.defaults[e.Kind]; !ok {
		r.defaults[e.Kind] = e.Mechanism
	}
	return nil
}

// SetDefault selects the fallback mechanism for a kind.
func (r *Registry) SetDefault(kind Kind, mechanism string) error {
	if _, ok := r.entries[kind][mechanism]; !ok {
		return fmt.Errorf("%w: %s/%s", ErrUnknownMechanism, kind, mechanism)
	}
	r.defaults[kind] = mechanism
	return nil
}

// Default returns the fallback mechanism for a kind.
func (r *Registry) Default(kind Kind) string {
	return r.defaults[kind]
}

// Lookup returns the entry for a mechanism.
func (r *Registry) Lookup(kind Kind, mechanism string) (Entry, bool) {
	e, ok := r.entries[kind][mechanism]
	return e, ok
}

// Resolve returns the entry for mechanism, falling back to the kind's default.
// fellBack is set when the fallback was used.
func (r *Registry) Resolve(kind Kind, mechanism string) (e Entry, fellBack bool, err error) {
	if e, ok := r.Lookup(kind, mechanism); ok {
		return e, false, nil
	}
	e, ok := r.Lookup(kind, r.defaults[kind])
	if !ok {
		return Entry{}, false, fmt.Errorf("%w: %s/%s", ErrUnknownMechanism, kind, mechanism)
	}
	return e, true, nil
}

// Mechanisms lists the registered mechanisms of a kind in sorted order.
func (r *Registry) Mechanisms(kind Kind) []string {
	out := make([]string, 0, len(r.entries[kind]))
	for mech := range r.entries[kind] {
		out = append(out, mech)
	}
	sort.Strings(out)
	return out
}

// Snapshot is the serialized form of a live cartridge.
type Snapshot struct {
	Kind      Kind            `json:"kind"`
	Mechanism string          `json:"mechanism"`
	State     json.RawMessage `json:"state"`
}

// Save serializes a live cartridge.
func Save(a Actor) (Snapshot, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save %s/%s: %w", a.Kind(), a.Mechanism(), err)
	}
	return Snapshot{Kind: a.Kind(), Mechanism: a.Mechanism(), State: data}, nil
}

// Restore rebuilds a cartridge from its snapshot.
func (r *Registry) Restore(s Snapshot) (Actor, error) {
	e, ok := r.Lookup(s.Kind, s.Mechanism)
	if !ok {
		return nil, fmt.Errorf("restore: %w: %s/%s", ErrUnknownMechanism, s.Kind, s.Mechanism)
	}
	a := e.Blank()
	if err := json.Unmarshal(s.State, a); err != nil {
		return nil, fmt.Errorf("restore %s/%s: %w", s.Kind, s.Mechanism, err)
	}
	return a, nil
}
