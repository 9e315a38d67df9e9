package drv

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slog"
)

// checkMode verifies that a logical channel can be triggered in mode: Manual and Event are for
// DMA channels, and Event only for those tied to a peripheral event, while Qdma is for QDMA
// channels
func (d *Driver) checkMode(c boundChannel, mode TriggerMode) error {
	switch mode {
	case TriggerManual:
		if c.kind == ChannelDma {
			return nil
		}
	case TriggerEvent:
		if c.kind == ChannelDma {
			if !d.config.HasHardwareEvent(c.local) {
				return errors.Wrapf(edmautils.ErrInvalidParam, "channel %d is not tied to a hardware event", c.id)
			}
			return nil
		}
	case TriggerQdma:
		if c.kind == ChannelQdma {
			return nil
		}
	}
	return errors.Wrapf(edmautils.ErrInvalidParam, "%s channel %d cannot be triggered in mode %s", c.kind, c.id, mode)
}

// EnableTransfer arms a logical channel. Manual mode clears the channel's stale secondary and
// missed events and then sets its event, starting one transfer. Event mode clears the same stale
// bits and enables the channel's peripheral event. Qdma mode enables the channel's trigger word.
func (d *Driver) EnableTransfer(ch uint32, mode TriggerMode) error {
	d.logger.Debug("Driver::EnableTransfer", slog.Int("Channel", int(ch)), slog.String("Mode", mode.String()))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	err = d.checkMode(c, mode)
	if err != nil {
		return err
	}

	d.controller.Masked(func() {
		switch mode {
		case TriggerManual:
			d.shadow.Strobe(regs.SECR, c.local)
			d.cc.Strobe(regs.EMCR, c.local)
			d.shadow.Strobe(regs.ESR, c.local)
		case TriggerEvent:
			d.shadow.Strobe(regs.SECR, c.local)
			d.cc.Strobe(regs.EMCR, c.local)
			d.shadow.Strobe(regs.EESR, c.local)
		case TriggerQdma:
			d.shadow.StrobeQdma(regs.QEESR, c.local)
		}
	})

	c.binding.Mode = mode
	return nil
}

// disarm clears the enable bit for mode along with any pending, secondary or missed event the
// channel has latched. Bits that are already clear are not written. Interrupts must be masked.
func (d *Driver) disarm(c boundChannel, mode TriggerMode) {
	switch mode {
	case TriggerManual:
		if d.shadow.Test(regs.SER, c.local) {
			d.shadow.Strobe(regs.SECR, c.local)
		}
		if d.cc.Test(regs.EMR, c.local) {
			d.cc.Strobe(regs.EMCR, c.local)
		}
	case TriggerEvent:
		if d.shadow.Test(regs.EER, c.local) {
			d.shadow.Strobe(regs.EECR, c.local)
		}
		if d.shadow.Test(regs.ER, c.local) {
			d.shadow.Strobe(regs.ECR, c.local)
		}
		if d.shadow.Test(regs.SER, c.local) {
			d.shadow.Strobe(regs.SECR, c.local)
		}
		if d.cc.Test(regs.EMR, c.local) {
			d.cc.Strobe(regs.EMCR, c.local)
		}
	case TriggerQdma:
		if d.shadow.TestQdma(regs.QEER, c.local) {
			d.shadow.StrobeQdma(regs.QEECR, c.local)
		}
	}
}

// DisableTransfer disarms a logical channel. An armed channel must be disarmed in the mode it
// was armed in. It does not abort a transfer the transfer controller has already accepted, and
// disarming a channel that is not armed succeeds without touching the hardware.
func (d *Driver) DisableTransfer(ch uint32, mode TriggerMode) error {
	d.logger.Debug("Driver::DisableTransfer", slog.Int("Channel", int(ch)), slog.String("Mode", mode.String()))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	if c.binding.Mode != TriggerNone {
		if mode != c.binding.Mode {
			return errors.Wrapf(edmautils.ErrInvalidParam, "channel %d is armed in mode %s, not %s", ch, c.binding.Mode, mode)
		}
	} else {
		err = d.checkMode(c, mode)
		if err != nil {
			return err
		}
	}

	d.controller.Masked(func() {
		d.disarm(c, mode)
	})

	c.binding.Mode = TriggerNone
	return nil
}

// DisableLogicalChannel clears only the enable bit of an Event or Qdma mode channel, leaving
// latched events in place
func (d *Driver) DisableLogicalChannel(ch uint32, mode TriggerMode) error {
	d.logger.Debug("Driver::DisableLogicalChannel", slog.Int("Channel", int(ch)), slog.String("Mode", mode.String()))

	if mode != TriggerEvent && mode != TriggerQdma {
		return errors.Wrapf(edmautils.ErrInvalidParam, "mode %s has no enable bit", mode)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	err = d.checkMode(c, mode)
	if err != nil {
		return err
	}

	d.controller.Masked(func() {
		if mode == TriggerQdma {
			d.shadow.StrobeQdma(regs.QEECR, c.local)
			return
		}
		d.shadow.Strobe(regs.EECR, c.local)
	})

	c.binding.Mode = TriggerNone
	return nil
}

// ClearErrorBits disables a DMA channel's event, clears its missed and secondary events, and
// clears the queue threshold and TCC overflow errors of the whole controller
func (d *Driver) ClearErrorBits(ch uint32) error {
	d.logger.Debug("Driver::ClearErrorBits", slog.Int("Channel", int(ch)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	if c.kind != ChannelDma {
		return errors.Wrapf(edmautils.ErrInvalidParam, "channel %d is not a dma channel", ch)
	}

	queues := uint32(1)<<d.config.NumEventQueues - 1
	d.controller.Masked(func() {
		d.shadow.Strobe(regs.EECR, c.local)
		d.cc.Strobe(regs.EMCR, c.local)
		d.shadow.Strobe(regs.SECR, c.local)
		d.cc.Write(regs.CCERRCLR, regs.CCERRTccErr|queues)
	})
	return nil
}

// GetChannelStatus reports a DMA or QDMA channel's latched events and whether its TCC is pending
func (d *Driver) GetChannelStatus(ch uint32) (ChannelStatus, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return 0, err
	}
	if c.kind == ChannelLink {
		return 0, errors.Wrapf(edmautils.ErrInvalidParam, "link channel %d has no status", ch)
	}

	var status ChannelStatus
	switch c.kind {
	case ChannelDma:
		if d.cc.Test(regs.EMR, c.local) {
			status |= ChannelEventMissed
		}
		if d.shadow.Test(regs.ER, c.local) {
			status |= ChannelEventPending
		}
	case ChannelQdma:
		if d.cc.TestQdma(regs.QEMR, c.local) {
			status |= ChannelEventMissed
		}
	}

	if tcc, ok := c.binding.Tcc.Get(); ok && d.shadow.Test(regs.IPR, tcc) {
		status |= ChannelTransferComplete
	}
	return status, nil
}

// CheckAndClearTcc reports whether a TCC's completion is pending in this region, clearing it
// if so
func (d *Driver) CheckAndClearTcc(tcc uint32) (bool, error) {
	return d.instance.CheckAndClearTcc(tcc)
}

// WaitAndClearTcc spins without backoff until a TCC's completion is pending and then clears
// it. Callers that need a timeout should poll CheckAndClearTcc instead.
func (d *Driver) WaitAndClearTcc(tcc uint32) error {
	return d.instance.WaitAndClearTcc(tcc)
}
