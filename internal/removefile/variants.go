package removefile

import "pcsd-remove-file/internal/fsops"

// PcmkRemoteAuthkey is the pacemaker remote authentication key
type PcmkRemoteAuthkey struct {
	Base
}

func NewPcmkRemoteAuthkey(env Env, id, action string) *PcmkRemoteAuthkey {
	authkey := env.PacemakerAuthkey
	f := &PcmkRemoteAuthkey{
		Base: NewBase("PcmkRemoteAuthkey", id, action, env.deleter(), func() string {
			return authkey
		}),
	}
	f.Bind(f)
	return f
}

// PcsdSettings is the cluster-wide pcsd settings file. Its location comes
// from the settings path resolver, consulted once per instance.
type PcsdSettings struct {
	Base
}

func NewPcsdSettings(env Env, id, action string) *PcsdSettings {
	f := &PcsdSettings{
		Base: NewBase("PcsdSettings", id, action, env.deleter(), env.SettingsFilePath),
	}
	f.Bind(f)
	return f
}

// Env is the process-wide configuration variants resolve their paths from
type Env struct {
	PacemakerAuthkey string
	SettingsFilePath func() string
	Deleter          fsops.Deleter
}

func (e Env) deleter() fsops.Deleter {
	if e.Deleter == nil {
		return fsops.OSDeleter{}
	}
	return e.Deleter
}
