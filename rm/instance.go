package rm

import (
	"github.com/cockroachdb/errors"
	"github.com/rs/xid"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/edmautils/bitset"
	"github.com/vkngwrapper/edma3/internal/utils"
	"github.com/vkngwrapper/edma3/param"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slog"
)

// Instance manages the resources one shadow region owns on a Controller. Every allocation
// and free is serialized by the instance's mutex unless it was opened with
// OpenExternallySynchronized.
type Instance struct {
	logger     *slog.Logger
	id         xid.ID
	controller *Controller
	region     uint32
	master     bool
	shadow     regs.Bank
	flags      OpenFlags

	mutex      utils.OptionalMutex
	closed     bool
	paramClear bool
	owned      [resourceKindCount]bitset.Set
	reserved   [resourceKindCount]bitset.Set
	allocated  [resourceKindCount]bitset.Set
}

// ID is a unique handle for this instance, used to tell instances apart in logs and statistics
func (i *Instance) ID() xid.ID {
	return i.id
}

func (i *Instance) Region() uint32 {
	return i.region
}

func (i *Instance) IsMaster() bool {
	return i.master
}

func (i *Instance) Controller() *Controller {
	return i.controller
}

func (i *Instance) Flags() OpenFlags {
	return i.flags
}

// Shadow is this instance's view of the channel registers
func (i *Instance) Shadow() regs.Bank {
	return i.shadow
}

func (i *Instance) initShadowRegisters() {
	dma := i.owned[DmaChannel]
	tcc := i.owned[Tcc]
	low := dma.Word(0) | tcc.Word(0)
	high := dma.Word(1) | tcc.Word(1)

	i.shadow.WritePair(regs.ECR, low, high)
	i.shadow.WritePair(regs.EECR, low, high)
	i.shadow.WritePair(regs.SECR, low, high)
	i.shadow.WritePair(regs.IECR, low, high)
	i.shadow.WritePair(regs.ICR, low, high)
	i.shadow.Write(regs.QEECR, i.owned[QdmaChannel].Word(0))
	i.shadow.Write(regs.QSECR, i.owned[QdmaChannel].Word(0))

	cc := i.controller.cc
	cc.WritePair(regs.Pair(regs.DRAE+i.region*8), 0, 0)
	cc.Write(regs.QRAE+i.region*4, 0)
}

// Close releases the shadow region. It fails with ErrResourcesAllocated while any resource is
// still allocated.
func (i *Instance) Close() error {
	i.logger.Debug("Instance::Close")

	i.mutex.Lock()
	defer i.mutex.Unlock()

	if i.closed {
		return errors.Wrap(edmautils.ErrInvalidState, "instance is already closed")
	}
	for _, kind := range ResourceKinds {
		if count := i.allocated[kind].Count(); count > 0 {
			return errors.Wrapf(edmautils.ErrResourcesAllocated, "%d %s resources are still allocated", count, kind)
		}
	}

	i.closed = true
	i.controller.closeInstance(i)
	return nil
}

func (i *Instance) checkOpen() error {
	if i.closed {
		return errors.Wrap(edmautils.ErrInvalidState, "instance is closed")
	}
	return nil
}

// SetParamClearing controls whether PaRAM sets are zeroed when they are allocated or freed
func (i *Instance) SetParamClearing(enabled bool) {
	i.logger.Debug("Instance::SetParamClearing", slog.Bool("Enabled", enabled))

	i.mutex.Lock()
	defer i.mutex.Unlock()

	i.paramClear = enabled
}

func (i *Instance) ParamClearing() bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return i.paramClear
}

// IsAllocated reports whether this instance currently holds a resource
func (i *Instance) IsAllocated(kind ResourceKind, id uint32) bool {
	i.mutex.Lock()
	defer i.mutex.Unlock()

	return i.allocated[kind].Contains(int(id))
}

// IsOwned reports whether a resource is in this instance's partition
func (i *Instance) IsOwned(kind ResourceKind, id uint32) bool {
	return i.owned[kind].Contains(int(id))
}

func (i *Instance) checkParamAllocated(slot uint32) error {
	err := edmautils.CheckRange(slot, i.controller.config.NumParamSets, "param set")
	if err != nil {
		return err
	}

	i.mutex.Lock()
	defer i.mutex.Unlock()

	err = i.checkOpen()
	if err != nil {
		return err
	}
	if !i.allocated[ParamSet].Contains(int(slot)) {
		return errors.Wrapf(edmautils.ErrNotAllocated, "param set %d is not allocated by this instance", slot)
	}
	return nil
}

// ReadParam returns the raw words of an allocated PaRAM set
func (i *Instance) ReadParam(slot uint32) (param.Words, error) {
	var words param.Words
	err := i.checkParamAllocated(slot)
	if err != nil {
		return words, err
	}

	cc := i.controller.cc
	for word := range words {
		words[word] = cc.ReadParam(slot, word)
	}
	return words, nil
}

// WriteParam writes every word of an allocated PaRAM set, options word first
func (i *Instance) WriteParam(slot uint32, words param.Words) error {
	err := i.checkParamAllocated(slot)
	if err != nil {
		return err
	}

	cc := i.controller.cc
	for word, value := range words {
		cc.WriteParam(slot, word, value)
	}
	return nil
}

// ParamPhysAddr is the physical address of a PaRAM set
func (i *Instance) ParamPhysAddr(slot uint32) (uint32, error) {
	err := edmautils.CheckRange(slot, i.controller.config.NumParamSets, "param set")
	if err != nil {
		return 0, err
	}
	return i.controller.config.CCBase + i.controller.cc.ParamOffset(slot), nil
}

func checkRegisterOffset(offset uint32) error {
	if offset&3 != 0 || offset >= regs.CCSize {
		return errors.Wrapf(edmautils.ErrInvalidParam, "register offset 0x%x is unaligned or outside the controller", offset)
	}
	return nil
}

// ReadCCRegister reads any channel controller register by byte offset
func (i *Instance) ReadCCRegister(offset uint32) (uint32, error) {
	err := checkRegisterOffset(offset)
	if err != nil {
		return 0, err
	}
	return i.controller.cc.Read(offset), nil
}

// WriteCCRegister writes any channel controller register by byte offset, with interrupts masked
func (i *Instance) WriteCCRegister(offset uint32, value uint32) error {
	i.logger.Debug("Instance::WriteCCRegister", slog.Int("Offset", int(offset)))

	err := checkRegisterOffset(offset)
	if err != nil {
		return err
	}
	i.controller.Masked(func() {
		i.controller.cc.Write(offset, value)
	})
	return nil
}

func (i *Instance) checkTcc(tcc uint32) error {
	return edmautils.CheckRange(tcc, i.controller.config.NumTccs, "tcc")
}

// CheckAndClearTcc reports whether a TCC's completion is pending in this region, clearing it if so
func (i *Instance) CheckAndClearTcc(tcc uint32) (bool, error) {
	err := i.checkTcc(tcc)
	if err != nil {
		return false, err
	}

	if !i.shadow.Test(regs.IPR, tcc) {
		return false, nil
	}
	i.shadow.Strobe(regs.ICR, tcc)
	return true, nil
}

// WaitAndClearTcc spins until a TCC's completion is pending in this region and then clears it.
// It never times out.
func (i *Instance) WaitAndClearTcc(tcc uint32) error {
	err := i.checkTcc(tcc)
	if err != nil {
		return err
	}

	for !i.shadow.Test(regs.IPR, tcc) {
	}
	i.shadow.Strobe(regs.ICR, tcc)
	return nil
}
