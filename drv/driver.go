package drv

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/internal/utils"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

// Driver builds logical channels out of the resources of one rm.Instance and drives their
// transfers. Logical channel ids cover three ranges: DMA channels from 0, link channels from
// the DMA channel count up to the last PaRAM set, and QDMA channels after that.
//
// Operations on different logical channels may run concurrently. Operations on the same logical
// channel must be serialized by the caller.
type Driver struct {
	logger     *slog.Logger
	instance   *rm.Instance
	controller *rm.Controller
	config     rm.GlobalConfig
	cc         *regs.CC
	shadow     regs.Bank

	mutex    utils.OptionalMutex
	bindings []Binding
}

// Open opens the instance for config's shadow region on controller and returns a driver
// over it
func Open(logger *slog.Logger, controller *rm.Controller, config rm.InstanceConfig, options OpenOptions) (*Driver, error) {
	if controller == nil {
		return nil, errors.Wrap(edmautils.ErrInvalidParam, "controller must not be nil")
	}

	instance, err := controller.Open(config, rm.OpenOptions{
		Flags:        options.Flags,
		ErrorHandler: options.ErrorHandler,
	})
	if err != nil {
		return nil, err
	}

	return New(logger, instance), nil
}

// New returns a driver over an instance that is already open. Only one driver should be
// created per instance.
func New(logger *slog.Logger, instance *rm.Instance) *Driver {
	controller := instance.Controller()
	config := controller.Config()

	driver := &Driver{
		logger:     logger.With(slog.Int("Region", int(instance.Region()))),
		instance:   instance,
		controller: controller,
		config:     config,
		cc:         controller.CC(),
		shadow:     instance.Shadow(),
		bindings:   make([]Binding, config.NumParamSets+config.NumQdmaChannels),
	}
	driver.mutex.UseMutex = instance.Flags()&rm.OpenExternallySynchronized == 0

	return driver
}

// Close closes the driver's instance. Every logical channel must have been freed first.
func (d *Driver) Close() error {
	d.logger.Debug("Driver::Close")
	return d.instance.Close()
}

func (d *Driver) Instance() *rm.Instance {
	return d.instance
}

// Binding returns the driver's record of a logical channel
func (d *Driver) Binding(ch uint32) (Binding, error) {
	err := d.checkChannel(ch)
	if err != nil {
		return Binding{}, err
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	return d.bindings[ch], nil
}

func (d *Driver) checkChannel(ch uint32) error {
	return edmautils.CheckRange(ch, uint32(len(d.bindings)), "logical channel")
}

// classify returns the kind of a logical channel id and its number within that kind: the DMA
// channel, the PaRAM set or the QDMA channel
func (d *Driver) classify(ch uint32) (ChannelKind, uint32, error) {
	err := d.checkChannel(ch)
	if err != nil {
		return 0, 0, err
	}

	switch {
	case ch < d.config.NumDmaChannels:
		return ChannelDma, ch, nil
	case ch < d.config.NumParamSets:
		return ChannelLink, ch, nil
	}
	return ChannelQdma, ch - d.config.NumParamSets, nil
}

// QdmaChannelID is the logical channel id of a QDMA channel
func (d *Driver) QdmaChannelID(qdma uint32) uint32 {
	return d.config.NumParamSets + qdma
}

type boundChannel struct {
	id      uint32
	kind    ChannelKind
	local   uint32
	binding *Binding
	slot    uint32
}

// bound looks up an allocated logical channel. The driver mutex must be held.
func (d *Driver) bound(ch uint32) (boundChannel, error) {
	kind, local, err := d.classify(ch)
	if err != nil {
		return boundChannel{}, err
	}

	binding := &d.bindings[ch]
	slot, ok := binding.Slot.Get()
	if !ok {
		return boundChannel{}, errors.Wrapf(edmautils.ErrNotAllocated, "logical channel %d", ch)
	}

	return boundChannel{
		id:      ch,
		kind:    kind,
		local:   local,
		binding: binding,
		slot:    slot,
	}, nil
}

// queue returns the event queue that services a channel. Link channels are loaded into whichever
// channel links to them, so they report queue 0.
func (d *Driver) queue(c boundChannel) uint32 {
	switch c.kind {
	case ChannelDma:
		return d.cc.DmaQueue(c.local)
	case ChannelQdma:
		return d.cc.QdmaQueue(c.local)
	}
	return 0
}
