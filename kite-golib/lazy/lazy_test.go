package lazy

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func Test_LoadError(t *testing.T) {
	var loadCount, unloadCount int
	loadErr := fmt.Errorf("some load error")

	load := func() error {
		loadCount++
		return loadErr
	}
	unload := func() { unloadCount++ }

	loader := NewLoader(load, unload)

	err := loader.LoadAndLock()
	require.Equal(t, loadErr, err)
	require.Equal(t, 1, loadCount)

	err = loader.LoadAndLock()
	require.Equal(t, loadErr, err)
	require.Equal(t, 1, loadCount)

	loader.Unload()
	// nothing was loaded, so there is nothing to release
	require.Equal(t, 0, unloadCount)

	err = loader.LoadAndLock()
	require.Equal(t, loadErr, err)
	require.Equal(t, 2, loadCount)
}

func Test_Do(t *testing.T) {
	var loadCount, unloadCount int
	loader := NewLoader(func() error {
		loadCount++
		return nil
	}, func() { unloadCount++ })

	var calls int
	for i := 0; i < 3; i++ {
		require.NoError(t, loader.Do(func() error {
			calls++
			return nil
		}))
	}
	require.Equal(t, 3, calls)
	require.Equal(t, 1, loadCount)

	fnErr := fmt.Errorf("fn failed")
	require.Equal(t, fnErr, loader.Do(func() error { return fnErr }))

	loader.Unload()
	require.Equal(t, 1, unloadCount)

	require.NoError(t, loader.Do(func() error { return nil }))
	require.Equal(t, 2, loadCount)
}
