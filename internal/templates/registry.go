package templates

import "sync"

// Registry is an ordered catalog of compiled templates. Order is the
// classification tie-break: earlier templates win.
type Registry struct {
	templates []*Compiled
	errs      []error
}

// NewRegistry compiles defs in order. Invalid patterns are dropped and
// reported through Errors rather than failing construction.
func NewRegistry(defs ...Template) *Registry {
	r := &Registry{}
	for _, d := range defs {
		c, errs := compile(d)
		r.errs = append(r.errs, errs...)
		if c != nil {
			r.templates = append(r.templates, c)
		}
	}
	return r
}

// Templates returns the compiled templates in registry order.
func (r *Registry) Templates() []*Compiled {
	return r.templates
}

// Lookup returns the template with the given name.
func (r *Registry) Lookup(name string) (*Compiled, bool) {
	for _, t := range r.templates {
		if t.Name == name {
			return t, true
		}
	}
	return nil, false
}

// Errors returns the compilation problems found while building the registry.
func (r *Registry) Errors() []error {
	return r.errs
}

// Len returns the number of usable templates.
func (r *Registry) Len() int {
	return len(r.templates)
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(Catalog()...)
})

// Default returns the shared registry built from Catalog.
func Default() *Registry {
	return defaultRegistry()
}
