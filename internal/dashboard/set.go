package dashboard

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// ErrUnknownVariant is returned when no dashboard has the requested name.
var ErrUnknownVariant = errors.New("unknown dashboard variant")

// Set holds the configured dashboards. The first one is the default.
type Set struct {
	byName map[string]*Dashboard
	order  []*Dashboard
}

// NewSet builds one dashboard per variant, all sharing src.
func NewSet(variants []Variant, src Source, log zerolog.Logger) (*Set, error) {
	if len(variants) == 0 {
		return nil, errors.New("no dashboard variants configured")
	}
	s := &Set{byName: make(map[string]*Dashboard, len(variants))}
	for _, v := range variants {
		if _, dup := s.byName[v.Name]; dup {
			return nil, fmt.Errorf("duplicate dashboard variant %q", v.Name)
		}
		d, err := New(v, src, log)
		if err != nil {
			return nil, err
		}
		s.byName[v.Name] = d
		s.order = append(s.order, d)
	}
	return s, nil
}

// Default returns the first configured dashboard.
func (s *Set) Default() *Dashboard {
	return s.order[0]
}

// Get returns the dashboard named name.
func (s *Set) Get(name string) (*Dashboard, error) {
	d, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVariant, name)
	}
	return d, nil
}

// Variants lists the variant configs in configured order.
func (s *Set) Variants() []Variant {
	out := make([]Variant, len(s.order))
	for i, d := range s.order {
		out[i] = d.Variant()
	}
	return out
}

// Symbols returns the union of every allow-list, without duplicates.
func (s *Set) Symbols() []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range s.order {
		for _, sym := range d.Variant().Symbols {
			if !seen[sym] {
				seen[sym] = true
				out = append(out, sym)
			}
		}
	}
	return out
}
