// SPDX-License-Identifier: MPL-2.0

package installation

import (
	"fmt"
	"slices"
	"sync/atomic"
)

// Registry holds the configured installations. Readers always see a
// complete list; updates replace the whole list atomically and never
// modify a published list in place.
type Registry struct {
	list atomic.Pointer[[]Installation]
}

// NewRegistry creates a registry holding list.
func NewRegistry(list ...Installation) (*Registry, error) {
	r := &Registry{}
	if err := r.Replace(list); err != nil {
		return nil, err
	}
	return r, nil
}

// Replace validates list and publishes a private copy of it.
// On error the current list stays in place.
func (r *Registry) Replace(list []Installation) error {
	seen := make(map[string]struct{}, len(list))
	for _, inst := range list {
		if err := inst.Validate(); err != nil {
			return err
		}
		if _, dup := seen[inst.Name]; dup {
			return fmt.Errorf("%w: %q", ErrDuplicateName, inst.Name)
		}
		seen[inst.Name] = struct{}{}
	}

	published := slices.Clone(list)
	r.list.Store(&published)
	return nil
}

// All returns a copy of the current list.
func (r *Registry) All() []Installation {
	return slices.Clone(r.snapshot())
}

// Get returns the installation with the given name.
func (r *Registry) Get(name string) (Installation, bool) {
	for _, inst := range r.snapshot() {
		if inst.Name == name {
			return inst, true
		}
	}
	return Installation{}, false
}

// Names returns the installation names in configuration order.
func (r *Registry) Names() []string {
	list := r.snapshot()
	names := make([]string, 0, len(list))
	for _, inst := range list {
		names = append(names, inst.Name)
	}
	return names
}

// Len returns the number of installations.
func (r *Registry) Len() int {
	return len(r.snapshot())
}

func (r *Registry) snapshot() []Installation {
	if p := r.list.Load(); p != nil {
		return *p
	}
	return nil
}
