// Package secrets resolves named secrets once at process start.
package secrets

import (
	"sort"
	"strings"
)

// Provider looks up a secret by name. ok is false when the secret is absent
// or was never resolved.
type Provider interface {
	Lookup(name string) (value string, ok bool)
}

// Static is an immutable Provider built from the config's secrets section.
type Static struct {
	values map[string]string
}

// NewStatic copies values, dropping empty entries and any value still
// holding an unresolved ${VAR} reference.
func NewStatic(values map[string]string) *Static {
	s := &Static{values: make(map[string]string, len(values))}
	for name, v := range values {
		if !Resolved(v) {
			continue
		}
		s.values[name] = v
	}
	return s
}

func (s *Static) Lookup(name string) (string, bool) {
	if s == nil {
		return "", false
	}
	v, ok := s.values[name]
	return v, ok
}

// Names returns the configured secret names, sorted.
func (s *Static) Names() []string {
	names := make([]string, 0, len(s.values))
	for name := range s.values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolved reports whether v is usable as a secret value.
func Resolved(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && !strings.Contains(v, "${")
}
