package fitness

import "sort"

// Info describes a fitness function available by name.
type Info struct {
	Name        string
	Description string
	New         func(Params) Func
}

// Registry maps names to fitness functions so config and CLIs can select
// one by name.
type Registry struct {
	infos  []Info
	byName map[string]Info
}

// NewRegistry creates a registry holding the built-in functions.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Info)}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	r.Register(Info{Name: "role_diversity", Description: "Distinct valid role ids plus valid-id fraction", New: RoleDiversity})
	r.Register(Info{Name: "role_coverage", Description: "Fraction of processors with a valid role id", New: RoleCoverage})
	r.Register(Info{Name: "role_location", Description: "Fraction of processors whose role id is x_loc+1", New: RoleLocation})
}

// Register adds or replaces a function.
func (r *Registry) Register(info Info) {
	if _, ok := r.byName[info.Name]; !ok {
		r.infos = append(r.infos, info)
	} else {
		for i := range r.infos {
			if r.infos[i].Name == info.Name {
				r.infos[i] = info
			}
		}
	}
	r.byName[info.Name] = info
}

// Get returns the function registered under name.
func (r *Registry) Get(name string) (Info, bool) {
	info, ok := r.byName[name]
	return info, ok
}

// New builds the named function with p.
func (r *Registry) New(name string, p Params) (Func, bool) {
	info, ok := r.byName[name]
	if !ok {
		return nil, false
	}
	return info.New(p), true
}

// All returns every registered function in registration order.
func (r *Registry) All() []Info {
	return r.infos
}

// Names returns the registered names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, len(r.infos))
	for i, info := range r.infos {
		names[i] = info.Name
	}
	sort.Strings(names)
	return names
}
