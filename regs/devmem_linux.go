//go:build linux

package regs

import (
	"os"
	"sync/atomic"
	"unsafe"

	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// DevMem is a Window onto physical registers mapped through /dev/mem
type DevMem struct {
	file *os.File
	mem  []byte
}

// OpenDevMem maps size bytes of physical address space starting at base. base must be page aligned.
func OpenDevMem(base uint32, size int) (*DevMem, error) {
	f, err := os.OpenFile("/dev/mem", os.O_RDWR|os.O_SYNC, 0660)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open /dev/mem")
	}

	mem, err := unix.Mmap(int(f.Fd()), int64(base), size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "failed to map %d bytes at 0x%08x", size, base)
	}

	return &DevMem{file: f, mem: mem}, nil
}

func (d *DevMem) word(offset uint32) *uint32 {
	if int(offset)+4 > len(d.mem) || offset&3 != 0 {
		panic(errors.Newf("register offset 0x%x is outside the mapped window or unaligned", offset))
	}
	return (*uint32)(unsafe.Pointer(&d.mem[offset]))
}

func (d *DevMem) Read32(offset uint32) uint32 {
	return atomic.LoadUint32(d.word(offset))
}

func (d *DevMem) Write32(offset uint32, value uint32) {
	atomic.StoreUint32(d.word(offset), value)
}

func (d *DevMem) Close() error {
	if d.mem == nil {
		return nil
	}

	err := unix.Munmap(d.mem)
	d.mem = nil
	closeErr := d.file.Close()
	if err != nil {
		return errors.Wrap(err, "failed to unmap registers")
	}
	return closeErr
}
