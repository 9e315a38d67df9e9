package param

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/usbarmory/tamago/bits"
	"github.com/vkngwrapper/edma3/edmautils"
)

// OptField identifies a sub-field of the options word
type OptField int

const (
	// OptSAM selects the source addressing mode
	OptSAM OptField = iota
	// OptDAM selects the destination addressing mode
	OptDAM
	// OptSyncDim selects A or AB synchronization
	OptSyncDim
	// OptStatic prevents the set from being updated or linked after a transfer
	OptStatic
	// OptFWID is the FIFO width used when an addressing mode is AddrModeFifo
	OptFWID
	// OptTCCMode selects early completion
	OptTCCMode
	// OptTCC is the completion code, and the channel to trigger when chaining
	OptTCC
	// OptTCIntEn enables the completion interrupt for the final transfer
	OptTCIntEn
	// OptITCIntEn enables the completion interrupt for intermediate transfers
	OptITCIntEn
	// OptTCChEn enables chaining on the final transfer
	OptTCChEn
	// OptITCChEn enables chaining on intermediate transfers
	OptITCChEn

	optFieldCount
)

type optLayout struct {
	name string
	pos  int
	mask int
}

var optLayouts = [optFieldCount]optLayout{
	OptSAM:      {"OptSAM", 0, 0x1},
	OptDAM:      {"OptDAM", 1, 0x1},
	OptSyncDim:  {"OptSyncDim", 2, 0x1},
	OptStatic:   {"OptStatic", 3, 0x1},
	OptFWID:     {"OptFWID", 8, 0x7},
	OptTCCMode:  {"OptTCCMode", 11, 0x1},
	OptTCC:      {"OptTCC", 12, 0x3F},
	OptTCIntEn:  {"OptTCIntEn", 20, 0x1},
	OptITCIntEn: {"OptITCIntEn", 21, 0x1},
	OptTCChEn:   {"OptTCChEn", 22, 0x1},
	OptITCChEn:  {"OptITCChEn", 23, 0x1},
}

func (f OptField) String() string {
	if f < 0 || f >= optFieldCount {
		return fmt.Sprintf("OptField(%d)", int(f))
	}
	return optLayouts[f].name
}

func (f OptField) Validate() error {
	if f < 0 || f >= optFieldCount {
		return errors.Wrapf(edmautils.ErrInvalidParam, "opt field %d is out of range", int(f))
	}
	return nil
}

// Get extracts the sub-field from an options word
func (f OptField) Get(opt uint32) uint32 {
	layout := optLayouts[f]
	return bits.Get(&opt, layout.pos, layout.mask)
}

// Put returns opt with the sub-field replaced by value, or ErrInvalidParam if value does not
// fit the sub-field
func (f OptField) Put(opt uint32, value uint32) (uint32, error) {
	layout := optLayouts[f]
	if value > uint32(layout.mask) {
		return opt, errors.Wrapf(edmautils.ErrInvalidParam, "%s value %d exceeds %d", f, value, layout.mask)
	}
	bits.SetN(&opt, layout.pos, layout.mask, value)
	return opt, nil
}

// AddrMode is the addressing mode of a transfer's source or destination
type AddrMode uint32

const (
	AddrModeIncr AddrMode = iota
	AddrModeFifo
)

// FifoWidth is the width of the FIFO when an address is in AddrModeFifo
type FifoWidth uint32

const (
	FifoWidth8Bit FifoWidth = iota
	FifoWidth16Bit
	FifoWidth32Bit
	FifoWidth64Bit
	FifoWidth128Bit
	FifoWidth256Bit
)

// Bytes is the width in bytes
func (w FifoWidth) Bytes() uint32 {
	return 1 << uint32(w)
}

// SyncDim selects what each trigger event transfers
type SyncDim uint32

const (
	// SyncA transfers one array of ACnt bytes per event
	SyncA SyncDim = iota
	// SyncAB transfers one frame of BCnt arrays per event
	SyncAB
)

// FifoAlignment is the address alignment FIFO addressing requires
const FifoAlignment uint32 = 32
