package removefile

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pcsd-remove-file/internal/exchange"
	"pcsd-remove-file/internal/fsops"
)

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry(fakeEnv(fsops.NewFakeDeleter()))

	build, ok := r.Lookup(TypePcmkRemoteAuthkey)
	require.True(t, ok)
	assert.IsType(t, &PcmkRemoteAuthkey{}, build("", ""))

	build, ok = r.Lookup(TypePcsdSettings)
	require.True(t, ok)
	assert.IsType(t, &PcsdSettings{}, build("", ""))

	for _, name := range []string{"bogus_type", "", "PCSD_SETTINGS", "pcsd_settings "} {
		build, ok := r.Lookup(name)
		assert.False(t, ok, name)
		assert.Nil(t, build, name)
	}
}

func TestRegistryTypes(t *testing.T) {
	r := NewRegistry(fakeEnv(nil))
	assert.Equal(t, []string{TypePcmkRemoteAuthkey, TypePcsdSettings}, r.Types())
}

func TestRegistryConstructsFreshInstances(t *testing.T) {
	r := NewRegistry(fakeEnv(fsops.NewFakeDeleter()))
	build, _ := r.Lookup(TypePcsdSettings)

	a := build("a", "remove")
	b := build("b", "remove")
	assert.NotSame(t, a, b)
}

func TestRegistryAuthkeyScenario(t *testing.T) {
	d := fsops.NewFakeDeleter(authkeyPath)
	r := NewRegistry(fakeEnv(d))

	build, ok := r.Lookup("pcmk_remote_authkey")
	require.True(t, ok)
	f := build("", "")
	require.NoError(t, f.Validate())

	assert.Equal(t, exchange.Deleted(), f.Process())
	assert.False(t, d.Files[authkeyPath])
}

func TestRegistrySettingsAbsentScenario(t *testing.T) {
	d := fsops.NewFakeDeleter()
	r := NewRegistry(fakeEnv(d))

	build, ok := r.Lookup("pcsd_settings")
	require.True(t, ok)
	f := build("", "")
	require.NoError(t, f.Validate())

	assert.Equal(t, exchange.NotFound(), f.Process())
}

func TestRegistryConcurrentLookups(t *testing.T) {
	r := NewRegistry(fakeEnv(fsops.NewFakeDeleter(authkeyPath, settingsPath)))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, name := range r.Types() {
				build, ok := r.Lookup(name)
				assert.True(t, ok)
				assert.NotEmpty(t, build("", "").FullFileName())
			}
		}()
	}
	wg.Wait()
}
