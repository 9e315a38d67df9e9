package utils

import (
	"sync"
)

type OptionalMutex struct {
	Mutex    sync.Mutex
	UseMutex bool
}

func (m *OptionalMutex) Lock() {
	if m.UseMutex {
		m.Mutex.Lock()
	}
}

func (m *OptionalMutex) Unlock() {
	if m.UseMutex {
		m.Mutex.Unlock()
	}
}

// MutexMasker stands in for interrupt masking when the interrupt handlers run as ordinary
// goroutines: Mask excludes every other masked section, including the handlers' own.
// It does not nest.
type MutexMasker struct {
	mutex sync.Mutex
}

func (m *MutexMasker) Mask() uint32 {
	m.mutex.Lock()
	return 0
}

func (m *MutexMasker) Restore(state uint32) {
	m.mutex.Unlock()
}
