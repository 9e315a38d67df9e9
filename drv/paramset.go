package drv

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/param"
	"golang.org/x/exp/slog"
)

func (d *Driver) readSet(slot uint32) param.Set {
	var words param.Words
	for word := range words {
		words[word] = d.cc.ReadParam(slot, word)
	}
	return param.Unpack(words)
}

// writeEntries writes the listed words of set into slot, in the order given
func (d *Driver) writeEntries(slot uint32, set param.Set, entries ...param.Entry) {
	words := set.Pack()
	for _, entry := range entries {
		d.cc.WriteParam(slot, int(entry), words[entry])
	}
}

// modifyOpt replaces one sub-field of a PaRAM set's options word
func (d *Driver) modifyOpt(slot uint32, field param.OptField, value uint32) error {
	opt := d.cc.ReadParam(slot, int(param.EntryOpt))
	opt, err := field.Put(opt, value)
	if err != nil {
		return err
	}
	d.cc.WriteParam(slot, int(param.EntryOpt), opt)
	return nil
}

// checkTrigWord rejects a partial write of any of entries when one of them is the trigger word
// of a QDMA channel, since the write would start the transfer
func (d *Driver) checkTrigWord(c boundChannel, what string, entries ...param.Entry) error {
	if c.kind != ChannelQdma {
		return nil
	}
	trig := d.cc.QdmaTrigWord(c.local)
	for _, entry := range entries {
		if uint32(entry) == trig {
			return errors.Wrapf(edmautils.ErrInvalidParam, "%s is in the trigger word of qdma channel %d", what, c.id)
		}
	}
	return nil
}

// GetParam reads the whole PaRAM set bound to a logical channel
func (d *Driver) GetParam(ch uint32) (param.Set, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return param.Set{}, err
	}

	words, err := d.instance.ReadParam(c.slot)
	if err != nil {
		return param.Set{}, err
	}
	return param.Unpack(words), nil
}

// SetParam writes the whole PaRAM set bound to a logical channel, options word first. Writing
// the set of an enabled QDMA channel starts its transfer.
func (d *Driver) SetParam(ch uint32, set param.Set) error {
	d.logger.Debug("Driver::SetParam", slog.Int("Channel", int(ch)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	return d.instance.WriteParam(c.slot, set.Pack())
}

// GetParamEntry reads one word of the PaRAM set bound to a logical channel
func (d *Driver) GetParamEntry(ch uint32, entry param.Entry) (uint32, error) {
	err := entry.Validate()
	if err != nil {
		return 0, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return 0, err
	}
	return d.cc.ReadParam(c.slot, int(entry)), nil
}

// SetParamEntry writes one word of the PaRAM set bound to a logical channel. Writing the trigger
// word of an enabled QDMA channel starts its transfer.
func (d *Driver) SetParamEntry(ch uint32, entry param.Entry, value uint32) error {
	d.logger.Debug("Driver::SetParamEntry", slog.Int("Channel", int(ch)), slog.String("Entry", entry.String()))

	err := entry.Validate()
	if err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	d.cc.WriteParam(c.slot, int(entry), value)
	return nil
}

// GetParamField reads one field of the PaRAM set bound to a logical channel
func (d *Driver) GetParamField(ch uint32, field param.Field) (uint32, error) {
	err := field.Validate()
	if err != nil {
		return 0, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return 0, err
	}
	return field.Get(d.cc.ReadParam(c.slot, int(field.Entry()))), nil
}

// SetParamField writes one field of the PaRAM set bound to a logical channel, leaving the field
// that shares its word untouched. Values wider than the field are rejected without writing
// anything. A QDMA channel's trigger word cannot be written a field at a time, since the first
// half would start the transfer; use SetParamEntry for it instead.
func (d *Driver) SetParamField(ch uint32, field param.Field, value uint32) error {
	d.logger.Debug("Driver::SetParamField", slog.Int("Channel", int(ch)), slog.String("Field", field.String()))

	err := field.Validate()
	if err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(c, field.String(), field.Entry())
	if err != nil {
		return err
	}

	entry := int(field.Entry())
	word, err := field.Put(d.cc.ReadParam(c.slot, entry), value)
	if err != nil {
		return err
	}
	d.cc.WriteParam(c.slot, entry, word)
	return nil
}

// GetOptField reads one sub-field of the options word bound to a logical channel
func (d *Driver) GetOptField(ch uint32, field param.OptField) (uint32, error) {
	err := field.Validate()
	if err != nil {
		return 0, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return 0, err
	}
	return field.Get(d.cc.ReadParam(c.slot, int(param.EntryOpt))), nil
}

// SetOptField writes one sub-field of the options word bound to a logical channel. Like
// SetParamField, it is rejected when the options word is a QDMA channel's trigger word.
func (d *Driver) SetOptField(ch uint32, field param.OptField, value uint32) error {
	d.logger.Debug("Driver::SetOptField", slog.Int("Channel", int(ch)), slog.String("Field", field.String()), slog.Int("Value", int(value)))

	err := field.Validate()
	if err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(c, field.String(), param.EntryOpt)
	if err != nil {
		return err
	}
	return d.modifyOpt(c.slot, field, value)
}

func checkEndpoint(addr uint32, mode param.AddrMode, width param.FifoWidth) error {
	if mode != param.AddrModeIncr && mode != param.AddrModeFifo {
		return errors.Wrapf(edmautils.ErrInvalidParam, "addressing mode %d is out of range", mode)
	}
	if width > param.FifoWidth256Bit {
		return errors.Wrapf(edmautils.ErrInvalidParam, "fifo width %d is out of range", width)
	}
	if mode == param.AddrModeFifo && !edmautils.IsAligned(addr, param.FifoAlignment) {
		return errors.Wrapf(edmautils.ErrAddressNotAligned, "fifo address 0x%x must be aligned to %d bytes", addr, param.FifoAlignment)
	}
	return nil
}

func (d *Driver) setEndpoint(ch uint32, addr uint32, mode param.AddrMode, width param.FifoWidth, src bool) error {
	err := checkEndpoint(addr, mode, width)
	if err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}

	err = d.checkTrigWord(c, "the addressing mode", param.EntryOpt)
	if err != nil {
		return err
	}

	if mode == param.AddrModeFifo {
		queue := d.queue(c)
		burst, ok := d.config.BurstSize(queue)
		if !ok || width.Bytes() > burst {
			return errors.Wrapf(edmautils.ErrFifoWidthUnsupported, "%d byte fifo on queue %d, which bursts %d bytes", width.Bytes(), queue, burst)
		}
	}

	set := d.readSet(c.slot)
	modeField := param.OptDAM
	addrEntry := param.EntryDst
	if src {
		modeField = param.OptSAM
		addrEntry = param.EntrySrc
		set.SrcAddr = addr
	} else {
		set.DestAddr = addr
	}

	set.Opt, err = modeField.Put(set.Opt, uint32(mode))
	if err != nil {
		return err
	}
	set.Opt, err = param.OptFWID.Put(set.Opt, uint32(width))
	if err != nil {
		return err
	}

	d.writeEntries(c.slot, set, param.EntryOpt, addrEntry)
	return nil
}

// SetSrcParams sets the source address of a logical channel's transfer and how it advances.
// FIFO addresses must be 32-byte aligned and the FIFO no wider than the default burst of the
// transfer controller that services the channel's queue.
func (d *Driver) SetSrcParams(ch uint32, addr uint32, mode param.AddrMode, width param.FifoWidth) error {
	d.logger.Debug("Driver::SetSrcParams", slog.Int("Channel", int(ch)), slog.Int("Mode", int(mode)), slog.Int("Width", int(width)))
	return d.setEndpoint(ch, addr, mode, width, true)
}

// SetDestParams is the destination counterpart of SetSrcParams
func (d *Driver) SetDestParams(ch uint32, addr uint32, mode param.AddrMode, width param.FifoWidth) error {
	d.logger.Debug("Driver::SetDestParams", slog.Int("Channel", int(ch)), slog.Int("Mode", int(mode)), slog.Int("Width", int(width)))
	return d.setEndpoint(ch, addr, mode, width, false)
}

func (d *Driver) setIndex(ch uint32, bIdx, cIdx int16, src bool) error {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(c, "the array and frame index", param.EntrySrcDstBIdx, param.EntrySrcDstCIdx)
	if err != nil {
		return err
	}

	set := d.readSet(c.slot)
	if src {
		set.SrcBIdx, set.SrcCIdx = bIdx, cIdx
	} else {
		set.DestBIdx, set.DestCIdx = bIdx, cIdx
	}
	d.writeEntries(c.slot, set, param.EntrySrcDstBIdx, param.EntrySrcDstCIdx)
	return nil
}

// SetSrcIndex sets the byte offsets between source arrays (bIdx) and between source frames (cIdx)
func (d *Driver) SetSrcIndex(ch uint32, bIdx, cIdx int16) error {
	d.logger.Debug("Driver::SetSrcIndex", slog.Int("Channel", int(ch)), slog.Int("BIdx", int(bIdx)), slog.Int("CIdx", int(cIdx)))
	return d.setIndex(ch, bIdx, cIdx, true)
}

// SetDestIndex sets the byte offsets between destination arrays and between destination frames
func (d *Driver) SetDestIndex(ch uint32, bIdx, cIdx int16) error {
	d.logger.Debug("Driver::SetDestIndex", slog.Int("Channel", int(ch)), slog.Int("BIdx", int(bIdx)), slog.Int("CIdx", int(cIdx)))
	return d.setIndex(ch, bIdx, cIdx, false)
}

// SetTransferParams sets the dimensions of a logical channel's transfer: aCnt bytes per array,
// bCnt arrays per frame and cCnt frames, with bCntReload arrays in every frame after the first
// when synchronizing on arrays. The frame count is written last, so an enabled QDMA channel
// triggered by it starts with the rest of the dimensions in place.
func (d *Driver) SetTransferParams(ch uint32, aCnt, bCnt, cCnt, bCntReload uint16, sync param.SyncDim) error {
	d.logger.Debug("Driver::SetTransferParams",
		slog.Int("Channel", int(ch)),
		slog.Int("ACnt", int(aCnt)),
		slog.Int("BCnt", int(bCnt)),
		slog.Int("CCnt", int(cCnt)),
		slog.Int("BCntReload", int(bCntReload)))

	if sync != param.SyncA && sync != param.SyncAB {
		return errors.Wrapf(edmautils.ErrInvalidParam, "sync dimension %d is out of range", sync)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(c, "the transfer dimensions", param.EntryOpt, param.EntryACntBCnt, param.EntryLinkBCntReload)
	if err != nil {
		return err
	}

	set := d.readSet(c.slot)
	set.ACnt, set.BCnt, set.CCnt = aCnt, bCnt, cCnt
	set.BCntReload = bCntReload
	set.Opt, err = param.OptSyncDim.Put(set.Opt, uint32(sync))
	if err != nil {
		return err
	}

	d.writeEntries(c.slot, set, param.EntryOpt, param.EntryACntBCnt, param.EntryLinkBCntReload, param.EntryCCnt)
	return nil
}

// GetParamPhysAddr is the physical address of the PaRAM set bound to a logical channel
func (d *Driver) GetParamPhysAddr(ch uint32) (uint32, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return 0, err
	}
	return d.instance.ParamPhysAddr(c.slot)
}

// GetAllocatedParamID is the PaRAM set bound to a logical channel
func (d *Driver) GetAllocatedParamID(ch uint32) (uint32, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return 0, err
	}
	return c.slot, nil
}
