package removefile

import "sort"

const (
	TypePcmkRemoteAuthkey = "pcmk_remote_authkey"
	TypePcsdSettings      = "pcsd_settings"
)

// Constructor builds a variant for one request
type Constructor func(id, action string) RemovableFile

// types lists every removable file. Adding a file type means one new
// variant and one entry here.
var types = map[string]func(env Env, id, action string) RemovableFile{
	TypePcmkRemoteAuthkey: func(env Env, id, action string) RemovableFile {
		return NewPcmkRemoteAuthkey(env, id, action)
	},
	TypePcsdSettings: func(env Env, id, action string) RemovableFile {
		return NewPcsdSettings(env, id, action)
	},
}

// Registry maps type names to constructors. It is read-only once built
// and safe for concurrent lookups.
type Registry struct {
	constructors map[string]Constructor
}

func NewRegistry(env Env) *Registry {
	r := &Registry{constructors: make(map[string]Constructor, len(types))}
	for name, build := range types {
		build := build
		r.constructors[name] = func(id, action string) RemovableFile {
			return build(env, id, action)
		}
	}
	return r
}

// Lookup returns the constructor for name; ok is false for unknown types
func (r *Registry) Lookup(name string) (Constructor, bool) {
	c, ok := r.constructors[name]
	return c, ok
}

// Types returns the registered type names in sorted order
func (r *Registry) Types() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
