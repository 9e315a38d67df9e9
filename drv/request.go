package drv

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/param"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

// RequestChannel allocates and binds the resources of a logical channel.
//
// DMA and QDMA channels get a channel, a PaRAM set and a TCC, are mapped to the requested event
// queue, and have the TCC stamped into their options word. QDMA channels are also pointed at
// their PaRAM set with the last word as the trigger word and are enabled for triggering, so they
// are returned armed in TriggerQdma. Link channels get a PaRAM set, plus a TCC for
// ChannelLinkWithTcc.
//
// If any step fails, everything acquired by the earlier steps is released before the error
// is returned.
func (d *Driver) RequestChannel(req ChannelRequest) (Channel, error) {
	d.logger.Debug("Driver::RequestChannel",
		slog.String("Kind", req.Kind.String()),
		slog.String("ID", req.ID.String()),
		slog.String("Tcc", req.Tcc.String()),
		slog.Int("Queue", int(req.Queue)))

	switch req.Kind {
	case ChannelDma, ChannelQdma:
		err := edmautils.CheckRange(req.Queue, d.config.NumEventQueues, "event queue")
		if err != nil {
			return Channel{}, err
		}
	case ChannelLink, ChannelLinkWithTcc:
		if id, concrete := req.ID.Value(); concrete && (id < d.config.NumDmaChannels || id >= d.config.NumParamSets) {
			return Channel{}, errors.Wrapf(edmautils.ErrInvalidParam, "link channel %d is outside %d-%d", id, d.config.NumDmaChannels, d.config.NumParamSets-1)
		}
	default:
		return Channel{}, errors.Wrapf(edmautils.ErrInvalidParam, "unknown channel kind %s", req.Kind)
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	guard := newAllocGuard(d.instance)
	defer guard.release()

	var channel Channel
	var err error
	switch req.Kind {
	case ChannelDma:
		channel, err = d.requestDma(req, guard)
	case ChannelQdma:
		channel, err = d.requestQdma(req, guard)
	default:
		channel, err = d.requestLink(req, guard)
	}
	if err != nil {
		return Channel{}, err
	}

	guard.commit()
	d.logger.Debug("Driver::RequestChannel bound channel", slog.Int("Channel", int(channel.ID)), slog.Int("Slot", int(channel.Slot)), slog.String("Tcc", channel.Tcc.String()))
	return channel, nil
}

func (d *Driver) requestDma(req ChannelRequest, guard *allocGuard) (Channel, error) {
	channel, err := guard.allocate(rm.DmaChannel, req.ID, 0)
	if err != nil {
		return Channel{}, err
	}

	slotID := rm.Any()
	if slot, mapped := d.config.ChannelParam(channel).Get(); mapped {
		slotID = rm.Concrete(slot)
	}
	slot, err := guard.allocate(rm.ParamSet, slotID, 0)
	if err != nil {
		return Channel{}, err
	}

	tccID := req.Tcc
	if tcc, mapped := d.config.ChannelTcc(channel).Get(); mapped && tccID.IsAny() {
		tccID = rm.Concrete(tcc)
	}
	tcc, err := guard.allocate(rm.Tcc, tccID, 0)
	if err != nil {
		return Channel{}, err
	}

	resource := rm.Resource{Kind: rm.DmaChannel, ID: rm.Concrete(channel)}
	err = d.registerHandler(guard, resource, tcc, req.Handler)
	if err != nil {
		return Channel{}, err
	}

	d.controller.Masked(func() {
		d.cc.SetDmaQueue(channel, req.Queue)
		if d.config.ChannelMapping {
			d.cc.SetChannelParam(channel, slot)
		}
	})

	err = d.modifyOpt(slot, param.OptTCC, tcc)
	if err != nil {
		return Channel{}, err
	}

	d.bindings[channel] = Binding{
		Slot:         rm.Some(slot),
		Tcc:          rm.Some(tcc),
		allocatedTcc: rm.Some(tcc),
	}
	return Channel{ID: channel, Slot: slot, Tcc: rm.Some(tcc)}, nil
}

func (d *Driver) requestQdma(req ChannelRequest, guard *allocGuard) (Channel, error) {
	qdma, err := guard.allocate(rm.QdmaChannel, req.ID, 0)
	if err != nil {
		return Channel{}, err
	}

	// without DCHMAP the sets below the DMA channel count belong to the DMA channels
	var floor uint32
	if !d.config.ChannelMapping {
		floor = d.config.NumDmaChannels
	}
	slot, err := guard.allocate(rm.ParamSet, rm.Any(), floor)
	if err != nil {
		return Channel{}, err
	}

	tcc, err := guard.allocate(rm.Tcc, req.Tcc, 0)
	if err != nil {
		return Channel{}, err
	}

	resource := rm.Resource{Kind: rm.QdmaChannel, ID: rm.Concrete(qdma)}
	err = d.registerHandler(guard, resource, tcc, req.Handler)
	if err != nil {
		return Channel{}, err
	}

	d.controller.Masked(func() {
		d.cc.SetQdmaQueue(qdma, req.Queue)
		d.cc.SetQdmaParam(qdma, slot, uint32(param.EntryCCnt))
	})

	err = d.modifyOpt(slot, param.OptTCC, tcc)
	if err != nil {
		return Channel{}, err
	}

	d.controller.Masked(func() {
		d.shadow.StrobeQdma(regs.QEESR, qdma)
	})

	id := d.QdmaChannelID(qdma)
	d.bindings[id] = Binding{
		Slot:         rm.Some(slot),
		Tcc:          rm.Some(tcc),
		Mode:         TriggerQdma,
		allocatedTcc: rm.Some(tcc),
	}
	return Channel{ID: id, Slot: slot, Tcc: rm.Some(tcc)}, nil
}

func (d *Driver) requestLink(req ChannelRequest, guard *allocGuard) (Channel, error) {
	slot, err := guard.allocate(rm.ParamSet, req.ID, d.config.NumDmaChannels)
	if err != nil {
		return Channel{}, err
	}

	binding := Binding{Slot: rm.Some(slot)}
	if req.Kind == ChannelLinkWithTcc {
		tcc, err := guard.allocate(rm.Tcc, req.Tcc, 0)
		if err != nil {
			return Channel{}, err
		}

		resource := rm.Resource{Kind: rm.ParamSet, ID: rm.Concrete(slot)}
		err = d.registerHandler(guard, resource, tcc, req.Handler)
		if err != nil {
			return Channel{}, err
		}

		err = d.modifyOpt(slot, param.OptTCC, tcc)
		if err != nil {
			return Channel{}, err
		}

		binding.Tcc = rm.Some(tcc)
		binding.allocatedTcc = rm.Some(tcc)
	}

	d.bindings[slot] = binding
	return Channel{ID: slot, Slot: slot, Tcc: binding.Tcc}, nil
}

func (d *Driver) registerHandler(guard *allocGuard, channel rm.Resource, tcc uint32, handler rm.TccHandler) error {
	if handler == nil {
		return nil
	}

	err := d.instance.RegisterTccCallback(channel, tcc, handler)
	if err != nil {
		return err
	}
	guard.onRelease(func() {
		_ = d.instance.UnregisterTccCallback(channel, tcc)
	})
	return nil
}

// resource is the rm resource a logical channel reports its TCC through
func (c boundChannel) resource() rm.Resource {
	switch c.kind {
	case ChannelDma:
		return rm.Resource{Kind: rm.DmaChannel, ID: rm.Concrete(c.local)}
	case ChannelQdma:
		return rm.Resource{Kind: rm.QdmaChannel, ID: rm.Concrete(c.local)}
	}
	return rm.Resource{Kind: rm.ParamSet, ID: rm.Concrete(c.slot)}
}

// FreeChannel disarms a logical channel if it is armed, detaches its TCC handler, clears its
// queue and PaRAM mappings, and then frees its TCC, its PaRAM set and its channel in that order.
// The binding is cleared even if one of the frees fails.
func (d *Driver) FreeChannel(ch uint32) error {
	d.logger.Debug("Driver::FreeChannel", slog.Int("Channel", int(ch)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}

	if c.binding.Mode != TriggerNone {
		d.controller.Masked(func() {
			d.disarm(c, c.binding.Mode)
		})
	}

	var errs error
	tcc, hasTcc := c.binding.allocatedTcc.Get()
	if hasTcc && d.controller.HasTccCallback(tcc) {
		errs = errors.CombineErrors(errs, d.instance.UnregisterTccCallback(c.resource(), tcc))
	}

	d.controller.Masked(func() {
		switch c.kind {
		case ChannelDma:
			d.cc.SetDmaQueue(c.local, 0)
			if d.config.ChannelMapping {
				d.cc.SetChannelParam(c.local, 0)
			}
		case ChannelQdma:
			d.cc.SetQdmaQueue(c.local, 0)
			d.cc.SetQdmaParam(c.local, 0, 0)
		}
	})

	if hasTcc {
		errs = errors.CombineErrors(errs, d.instance.Free(rm.Resource{Kind: rm.Tcc, ID: rm.Concrete(tcc)}))
	}
	errs = errors.CombineErrors(errs, d.instance.Free(rm.Resource{Kind: rm.ParamSet, ID: rm.Concrete(c.slot)}))
	switch c.kind {
	case ChannelDma:
		errs = errors.CombineErrors(errs, d.instance.Free(rm.Resource{Kind: rm.DmaChannel, ID: rm.Concrete(c.local)}))
	case ChannelQdma:
		errs = errors.CombineErrors(errs, d.instance.Free(rm.Resource{Kind: rm.QdmaChannel, ID: rm.Concrete(c.local)}))
	}

	*c.binding = Binding{}
	return errs
}
