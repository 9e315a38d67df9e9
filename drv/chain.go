package drv

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/param"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

// LinkChannel makes the PaRAM set of channel a reload from channel b's set when a's transfer
// completes. If b has no TCC of its own, a's completion code is copied into b's options word so
// completions after the reload still report through a valid TCC.
func (d *Driver) LinkChannel(a, b uint32) error {
	d.logger.Debug("Driver::LinkChannel", slog.Int("Channel", int(a)), slog.Int("Link", int(b)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	from, err := d.bound(a)
	if err != nil {
		return err
	}
	to, err := d.bound(b)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(from, "the link address", param.EntryLinkBCntReload)
	if err != nil {
		return err
	}
	if !to.binding.Tcc.IsSome() {
		err = d.checkTrigWord(to, "the completion code", param.EntryOpt)
		if err != nil {
			return err
		}
	}

	addr, err := d.instance.ParamPhysAddr(to.slot)
	if err != nil {
		return err
	}

	set := d.readSet(from.slot)
	set.LinkAddr = uint16(addr)
	d.writeEntries(from.slot, set, param.EntryLinkBCntReload)

	if !to.binding.Tcc.IsSome() {
		return d.modifyOpt(to.slot, param.OptTCC, param.OptTCC.Get(set.Opt))
	}
	return nil
}

// UnlinkChannel ends channel a's transfer without a reload
func (d *Driver) UnlinkChannel(a uint32) error {
	d.logger.Debug("Driver::UnlinkChannel", slog.Int("Channel", int(a)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(a)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(c, "the link address", param.EntryLinkBCntReload)
	if err != nil {
		return err
	}

	set := d.readSet(c.slot)
	set.LinkAddr = param.NoLink
	d.writeEntries(c.slot, set, param.EntryLinkBCntReload)
	return nil
}

func boolField(opt uint32, field param.OptField, enabled bool) (uint32, error) {
	var value uint32
	if enabled {
		value = 1
	}
	return field.Put(opt, value)
}

// ChainChannel makes the completion of channel a trigger DMA channel b, by pointing a's
// completion code at b and setting a's chaining and interrupt enables from options. b inherits
// a's trigger mode.
func (d *Driver) ChainChannel(a, b uint32, options ChainOptions) error {
	d.logger.Debug("Driver::ChainChannel", slog.Int("Channel", int(a)), slog.Int("Chained", int(b)))

	if b >= d.config.NumDmaChannels {
		return errors.Wrapf(edmautils.ErrInvalidParam, "only dma channels can be chained to, not %d", b)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	from, err := d.bound(a)
	if err != nil {
		return err
	}
	to, err := d.bound(b)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(from, "the chaining enables", param.EntryOpt)
	if err != nil {
		return err
	}

	opt := d.cc.ReadParam(from.slot, int(param.EntryOpt))
	enables := []struct {
		field   param.OptField
		enabled bool
	}{
		{param.OptTCChEn, options.FinalChain},
		{param.OptITCChEn, options.IntermediateChain},
		{param.OptTCIntEn, options.FinalInterrupt},
		{param.OptITCIntEn, options.IntermediateInterrupt},
	}
	for _, enable := range enables {
		opt, err = boolField(opt, enable.field, enable.enabled)
		if err != nil {
			return err
		}
	}
	opt, err = param.OptTCC.Put(opt, b)
	if err != nil {
		return err
	}
	d.cc.WriteParam(from.slot, int(param.EntryOpt), opt)

	to.binding.Mode = from.binding.Mode
	return nil
}

// UnchainChannel clears channel a's chaining enables, leaving its completion code and
// interrupt enables as they are
func (d *Driver) UnchainChannel(a uint32) error {
	d.logger.Debug("Driver::UnchainChannel", slog.Int("Channel", int(a)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(a)
	if err != nil {
		return err
	}
	err = d.checkTrigWord(c, "the chaining enables", param.EntryOpt)
	if err != nil {
		return err
	}

	opt := d.cc.ReadParam(c.slot, int(param.EntryOpt))
	opt, err = param.OptTCChEn.Put(opt, 0)
	if err != nil {
		return err
	}
	opt, err = param.OptITCChEn.Put(opt, 0)
	if err != nil {
		return err
	}
	d.cc.WriteParam(c.slot, int(param.EntryOpt), opt)
	return nil
}

// MapTccLinkChannel makes a link channel report completion through tcc, which need not belong
// to it
func (d *Driver) MapTccLinkChannel(link uint32, tcc uint32) error {
	d.logger.Debug("Driver::MapTccLinkChannel", slog.Int("Channel", int(link)), slog.Int("Tcc", int(tcc)))

	err := edmautils.CheckRange(tcc, d.config.NumTccs, "tcc")
	if err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(link)
	if err != nil {
		return err
	}
	if c.kind != ChannelLink {
		return errors.Wrapf(edmautils.ErrInvalidParam, "channel %d is not a link channel", link)
	}

	err = d.modifyOpt(c.slot, param.OptTCC, tcc)
	if err != nil {
		return err
	}
	c.binding.Tcc = rm.Some(tcc)
	return nil
}
