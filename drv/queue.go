package drv

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/param"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

// MapChannelToQueue moves a DMA or QDMA channel to another event queue. Instances opened with
// rm.OpenStaticQueueMapping keep the queue chosen at request time, and fail with
// ErrFeatureUnsupported.
func (d *Driver) MapChannelToQueue(ch uint32, queue uint32) error {
	d.logger.Debug("Driver::MapChannelToQueue", slog.Int("Channel", int(ch)), slog.Int("Queue", int(queue)))

	if d.instance.Flags()&rm.OpenStaticQueueMapping != 0 {
		return errors.Wrap(edmautils.ErrFeatureUnsupported, "queues are fixed when channels are requested")
	}
	err := edmautils.CheckRange(queue, d.config.NumEventQueues, "event queue")
	if err != nil {
		return err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}

	switch c.kind {
	case ChannelDma:
		d.controller.Masked(func() {
			d.cc.SetDmaQueue(c.local, queue)
		})
	case ChannelQdma:
		d.controller.Masked(func() {
			d.cc.SetQdmaQueue(c.local, queue)
		})
	default:
		return errors.Wrapf(edmautils.ErrInvalidParam, "link channel %d has no queue", ch)
	}
	return nil
}

// GetQueue returns the event queue that services a DMA or QDMA channel
func (d *Driver) GetQueue(ch uint32) (uint32, error) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return 0, err
	}
	if c.kind == ChannelLink {
		return 0, errors.Wrapf(edmautils.ErrInvalidParam, "link channel %d has no queue", ch)
	}
	return d.queue(c), nil
}

// SetQueuePriority sets the bus priority of the first len(priorities) event queues, 0 being
// the highest. Nothing is written unless every priority is valid.
func (d *Driver) SetQueuePriority(priorities []uint32) error {
	d.logger.Debug("Driver::SetQueuePriority", slog.Int("Queues", len(priorities)))

	if len(priorities) > int(d.config.NumEventQueues) {
		return errors.Wrapf(edmautils.ErrInvalidParam, "%d priorities for %d queues", len(priorities), d.config.NumEventQueues)
	}
	for queue, priority := range priorities {
		if priority > rm.MaxQueuePriority {
			return errors.Wrapf(edmautils.ErrInvalidParam, "queue %d priority is %d, must not exceed %d", queue, priority, rm.MaxQueuePriority)
		}
	}

	d.controller.Masked(func() {
		for queue, priority := range priorities {
			d.cc.SetQueuePriority(uint32(queue), priority)
		}
	})
	return nil
}

// QueuePriority returns the bus priority of an event queue
func (d *Driver) QueuePriority(queue uint32) (uint32, error) {
	err := edmautils.CheckRange(queue, d.config.NumEventQueues, "event queue")
	if err != nil {
		return 0, err
	}
	return d.cc.QueuePriority(queue), nil
}

var tcErrorBits = map[TCErrorClass]int{
	TCErrorBus:             regs.TCErrBus,
	TCErrorTransferRequest: regs.TCErrTR,
	TCErrorMMRAddress:      regs.TCErrMMRAddr,
}

// SetTcErrorReporting enables or disables the error interrupt of transfer controller tc for one
// class of error, or for all of them
func (d *Driver) SetTcErrorReporting(tc uint32, class TCErrorClass, enabled bool) error {
	d.logger.Debug("Driver::SetTcErrorReporting", slog.Int("TC", int(tc)), slog.String("Class", class.String()), slog.Bool("Enabled", enabled))

	err := edmautils.CheckRange(tc, d.config.NumTCs, "tc")
	if err != nil {
		return err
	}
	tcRegs, ok := d.controller.TC(tc)
	if !ok {
		return errors.Wrapf(edmautils.ErrFeatureUnsupported, "tc %d has no register window", tc)
	}

	if class == TCErrorAll {
		var mask uint32
		if enabled {
			mask = 1<<regs.TCErrBus | 1<<regs.TCErrTR | 1<<regs.TCErrMMRAddr
		}
		tcRegs.Write(regs.ERREN, mask)
		return nil
	}

	pos, ok := tcErrorBits[class]
	if !ok {
		return errors.Wrapf(edmautils.ErrInvalidParam, "unknown tc error class %s", class)
	}
	var value uint32
	if enabled {
		value = 1
	}
	tcRegs.Modify(regs.ERREN, pos, 1, value)
	return nil
}

// SetQdmaTriggerWord selects which word of a QDMA channel's PaRAM set starts its transfer
// when written
func (d *Driver) SetQdmaTriggerWord(ch uint32, entry param.Entry) error {
	d.logger.Debug("Driver::SetQdmaTriggerWord", slog.Int("Channel", int(ch)), slog.String("Entry", entry.String()))

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
	if c.kind != ChannelQdma {
		return errors.Wrapf(edmautils.ErrInvalidParam, "channel %d is not a qdma channel", ch)
	}

	d.controller.Masked(func() {
		d.cc.SetQdmaTrigWord(c.local, uint32(entry))
	})
	return nil
}

// GetCCRegister reads a channel controller register by byte offset
func (d *Driver) GetCCRegister(offset uint32) (uint32, error) {
	return d.instance.ReadCCRegister(offset)
}

// SetCCRegister writes a channel controller register by byte offset
func (d *Driver) SetCCRegister(offset uint32, value uint32) error {
	return d.instance.WriteCCRegister(offset, value)
}
