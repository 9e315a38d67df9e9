package utils

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptionalMutexDisabled(t *testing.T) {
	m := OptionalMutex{UseMutex: false}
	m.Lock()
	m.Lock()
	m.Unlock()
	m.Unlock()
}

func TestMutexMaskerExcludes(t *testing.T) {
	var masker MutexMasker
	var wg sync.WaitGroup
	counter := 0

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				state := masker.Mask()
				counter++
				masker.Restore(state)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 8000, counter)
}
