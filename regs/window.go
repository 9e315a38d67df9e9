package regs

//go:generate mockgen -source window.go -destination ./mocks/window.go -package mocks

// Window is a span of memory-mapped 32-bit registers. Offsets are in bytes from the start of
// the span and must be word aligned. Implementations perform each access as a single
// 32-bit load or store, so a Read32/Write32 pair is a read-modify-write that is only atomic
// with respect to other software when the caller masks interrupts around it.
type Window interface {
	Read32(offset uint32) uint32
	Write32(offset uint32, value uint32)
}
