// Package registry maps venue-native symbols to venue-agnostic event tags.
// The registry is loaded once at startup from a TOML file and is read-only
// afterwards, so it is safe to share across concurrent fetch tasks.
package registry

import (
	"fmt"
	"sort"

	"github.com/BurntSushi/toml"

	"github.com/openpredict/arbscan/internal/domain"
)

// Entry is one tracked contract: a unique tag plus the native symbol on each
// venue that lists it. An empty symbol means the contract is not listed there.
type Entry struct {
	Tag         string `toml:"tag"`
	Description string `toml:"description"`
	Kalshi      string `toml:"kalshi"`
	Nadex       string `toml:"nadex"`
	PredictIt   string `toml:"predictit"`
}

// symbols returns the venue → symbol mapping for the venues this entry lists.
func (e Entry) symbols() map[domain.Venue]string {
	out := make(map[domain.Venue]string, 3)
	if e.Kalshi != "" {
		out[domain.VenueKalshi] = e.Kalshi
	}
	if e.Nadex != "" {
		out[domain.VenueNadex] = e.Nadex
	}
	if e.PredictIt != "" {
		out[domain.VenuePredictIt] = e.PredictIt
	}
	return out
}

type registryFile struct {
	Events []Entry `toml:"events"`
}

// Registry answers symbol↔tag lookups. Immutable after construction.
type Registry struct {
	entries map[string]Entry                   // tag -> entry
	tags    []string                           // sorted
	byVenue map[domain.Venue]map[string]string // venue -> native symbol -> tag
}

// Load reads and validates a registry TOML file.
func Load(path string) (*Registry, error) {
	var f registryFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("registry: decode %s: %w", path, err)
	}
	r, err := New(f.Events)
	if err != nil {
		return nil, fmt.Errorf("registry: %s: %w", path, err)
	}
	return r, nil
}

// New builds a Registry from entries. It fails on a missing or duplicate tag
// and on a duplicate (venue, symbol) pair — both are configuration errors
// that would silently corrupt matching if tolerated.
func New(entries []Entry) (*Registry, error) {
	r := &Registry{
		entries: make(map[string]Entry, len(entries)),
		byVenue: make(map[domain.Venue]map[string]string, 3),
	}
	for _, v := range domain.Venues() {
		r.byVenue[v] = make(map[string]string)
	}

	for i, e := range entries {
		if e.Tag == "" {
			return nil, fmt.Errorf("entry %d: missing tag", i)
		}
		if _, dup := r.entries[e.Tag]; dup {
			return nil, fmt.Errorf("duplicate tag %q", e.Tag)
		}
		for venue, symbol := range e.symbols() {
			if owner, dup := r.byVenue[venue][symbol]; dup {
				return nil, fmt.Errorf("duplicate (%s, %s): claimed by both %q and %q",
					venue, symbol, owner, e.Tag)
			}
			r.byVenue[venue][symbol] = e.Tag
		}
		r.entries[e.Tag] = e
		r.tags = append(r.tags, e.Tag)
	}
	sort.Strings(r.tags)
	return r, nil
}

// TagFrom returns the canonical tag for a (venue, symbol) pair. A false
// result is a normal outcome: the contract simply is not tracked.
func (r *Registry) TagFrom(venue domain.Venue, symbol string) (string, bool) {
	tag, ok := r.byVenue[venue][symbol]
	return tag, ok
}

// VenuesFor returns the venue → native symbol mapping for a tag, containing
// only venues on which the contract is listed. Unknown tags yield an empty map.
func (r *Registry) VenuesFor(tag string) map[domain.Venue]string {
	e, ok := r.entries[tag]
	if !ok {
		return map[domain.Venue]string{}
	}
	return e.symbols()
}

// Tags returns all registered tags in sorted order.
func (r *Registry) Tags() []string {
	out := make([]string, len(r.tags))
	copy(out, r.tags)
	return out
}

// Symbols returns the sorted native symbols registered for a venue.
func (r *Registry) Symbols(venue domain.Venue) []string {
	m := r.byVenue[venue]
	out := make([]string, 0, len(m))
	for sym := range m {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

// Venues returns the venues referenced by at least one entry, in lexical
// order. Fee coverage is validated against this set at startup.
func (r *Registry) Venues() []domain.Venue {
	out := make([]domain.Venue, 0, 3)
	for _, v := range domain.Venues() {
		if len(r.byVenue[v]) > 0 {
			out = append(out, v)
		}
	}
	return out
}

// Len returns the number of registered entries.
func (r *Registry) Len() int {
	return len(r.entries)
}
