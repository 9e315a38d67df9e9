package rm

import (
	"github.com/cockroachdb/errors"
	"github.com/usbarmory/tamago/bits"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/edmautils/bitset"
)

const (
	// MaxQueuePriority is the lowest bus priority an event queue can be given
	MaxQueuePriority uint32 = 7
	// MaxDmaChannels is the largest number of DMA channels a controller can have
	MaxDmaChannels uint32 = 64
	// MaxQdmaChannels is the largest number of QDMA channels a controller can have
	MaxQdmaChannels uint32 = 8
	// MaxTccs is the largest number of TCCs a controller can have
	MaxTccs uint32 = 64
	// MaxParamSets is the largest number of PaRAM sets a controller can have
	MaxParamSets uint32 = 512
	// MaxEventQueues is the largest number of event queues a controller can have
	MaxEventQueues uint32 = 8
	// MaxRegions is the largest number of shadow regions a controller can have
	MaxRegions uint32 = 8
)

// GlobalConfig describes the capabilities and board wiring of one controller
type GlobalConfig struct {
	NumDmaChannels  uint32
	NumQdmaChannels uint32
	NumTccs         uint32
	NumParamSets    uint32
	NumEventQueues  uint32
	NumTCs          uint32
	NumRegions      uint32

	// ChannelMapping indicates DCHMAP exists, so a DMA channel can use any PaRAM set.
	// Without it DMA channel n always uses PaRAM set n.
	ChannelMapping bool
	// MemProtection indicates the controller has memory protection registers
	MemProtection bool

	// CCBase is the physical address of the channel controller
	CCBase uint32
	// TCBase is the physical address of each transfer controller
	TCBase []uint32

	// QueueTC is the transfer controller that services each event queue
	QueueTC []uint32
	// QueuePriority is the initial bus priority of each event queue, 0 being highest
	QueuePriority []uint32
	// QueueWatermark is the watermark level of each event queue
	QueueWatermark []uint32
	// TCDefaultBurstSize is the default burst size, in bytes, of each transfer controller
	TCDefaultBurstSize []uint32

	// ChannelParamMap optionally binds DMA channels to a PaRAM set. Channels with no entry,
	// or a None entry, take any free set.
	ChannelParamMap []OptionalID
	// ChannelTccMap optionally binds DMA channels to the TCC used when a request does not name one
	ChannelTccMap []OptionalID
	// HardwareEvents has a bit set for every DMA channel tied to a peripheral event, in
	// register layout
	HardwareEvents [2]uint32
}

func (c *GlobalConfig) Validate() error {
	if c.NumDmaChannels > MaxDmaChannels {
		return errors.Wrapf(edmautils.ErrInvalidParam, "NumDmaChannels is %d, must not exceed %d", c.NumDmaChannels, MaxDmaChannels)
	}
	if c.NumQdmaChannels > MaxQdmaChannels {
		return errors.Wrapf(edmautils.ErrInvalidParam, "NumQdmaChannels is %d, must not exceed %d", c.NumQdmaChannels, MaxQdmaChannels)
	}
	if c.NumTccs > MaxTccs {
		return errors.Wrapf(edmautils.ErrInvalidParam, "NumTccs is %d, must not exceed %d", c.NumTccs, MaxTccs)
	}
	if c.NumParamSets > MaxParamSets || c.NumParamSets < c.NumDmaChannels {
		return errors.Wrapf(edmautils.ErrInvalidParam, "NumParamSets is %d, must be between %d and %d", c.NumParamSets, c.NumDmaChannels, MaxParamSets)
	}
	if c.NumEventQueues == 0 || c.NumEventQueues > MaxEventQueues {
		return errors.Wrapf(edmautils.ErrInvalidParam, "NumEventQueues is %d, must be between 1 and %d", c.NumEventQueues, MaxEventQueues)
	}
	if c.NumRegions == 0 || c.NumRegions > MaxRegions {
		return errors.Wrapf(edmautils.ErrInvalidParam, "NumRegions is %d, must be between 1 and %d", c.NumRegions, MaxRegions)
	}
	if len(c.QueueTC) != 0 && len(c.QueueTC) != int(c.NumEventQueues) {
		return errors.Wrapf(edmautils.ErrInvalidParam, "QueueTC has %d entries for %d queues", len(c.QueueTC), c.NumEventQueues)
	}
	for queue, tc := range c.QueueTC {
		if tc >= c.NumTCs {
			return errors.Wrapf(edmautils.ErrInvalidParam, "queue %d is serviced by tc %d, but there are %d tcs", queue, tc, c.NumTCs)
		}
	}
	for queue, priority := range c.QueuePriority {
		if priority > MaxQueuePriority {
			return errors.Wrapf(edmautils.ErrInvalidParam, "queue %d priority is %d, must not exceed %d", queue, priority, MaxQueuePriority)
		}
	}
	for tc, burst := range c.TCDefaultBurstSize {
		if burst == 0 {
			return errors.Wrapf(edmautils.ErrInvalidParam, "tc %d default burst size must not be zero", tc)
		}
		err := edmautils.CheckPow2(burst, "TCDefaultBurstSize")
		if err != nil {
			return err
		}
	}
	for channel, slot := range c.ChannelParamMap {
		if id, ok := slot.Get(); ok && id >= c.NumParamSets {
			return errors.Wrapf(edmautils.ErrInvalidParam, "channel %d is mapped to param set %d, but there are %d", channel, id, c.NumParamSets)
		}
	}
	for channel, tcc := range c.ChannelTccMap {
		if id, ok := tcc.Get(); ok && id >= c.NumTccs {
			return errors.Wrapf(edmautils.ErrInvalidParam, "channel %d is mapped to tcc %d, but there are %d", channel, id, c.NumTccs)
		}
	}
	return nil
}

// ChannelParam returns the PaRAM set statically bound to a DMA channel
func (c *GlobalConfig) ChannelParam(channel uint32) OptionalID {
	if !c.ChannelMapping {
		return Some(channel)
	}
	if int(channel) < len(c.ChannelParamMap) {
		return c.ChannelParamMap[channel]
	}
	return None
}

// ChannelTcc returns the TCC statically bound to a DMA channel
func (c *GlobalConfig) ChannelTcc(channel uint32) OptionalID {
	if int(channel) < len(c.ChannelTccMap) {
		return c.ChannelTccMap[channel]
	}
	return None
}

// HasHardwareEvent reports whether a DMA channel is tied to a peripheral event
func (c *GlobalConfig) HasHardwareEvent(channel uint32) bool {
	if channel >= c.NumDmaChannels || channel >= 64 {
		return false
	}
	word := c.HardwareEvents[channel/32]
	return bits.Get(&word, int(channel%32), 1) == 1
}

// BurstSize returns the default burst size of the transfer controller that services queue
func (c *GlobalConfig) BurstSize(queue uint32) (uint32, bool) {
	if int(queue) >= len(c.QueueTC) {
		return 0, false
	}
	tc := c.QueueTC[queue]
	if int(tc) >= len(c.TCDefaultBurstSize) {
		return 0, false
	}
	return c.TCDefaultBurstSize[tc], true
}

// ResourceWords holds one bitset per resource kind, each in register layout: id n is bit n%32
// of word n/32
type ResourceWords struct {
	DmaChannels  []uint32
	QdmaChannels []uint32
	Tccs         []uint32
	ParamSets    []uint32
}

func (w *ResourceWords) words(kind ResourceKind) []uint32 {
	switch kind {
	case DmaChannel:
		return w.DmaChannels
	case QdmaChannel:
		return w.QdmaChannels
	case Tcc:
		return w.Tccs
	case ParamSet:
		return w.ParamSets
	}
	return nil
}

// InstanceConfig describes the resource partition of one shadow region
type InstanceConfig struct {
	Region uint32
	// Master marks the instance whose region receives the controller's interrupts
	Master bool
	// Owned is every resource this instance may allocate
	Owned ResourceWords
	// Reserved resources are never returned for Any requests, but may be requested
	// concretely if they are also owned
	Reserved ResourceWords
}

func (c *InstanceConfig) Validate() error {
	if c.Region >= MaxRegions {
		return errors.Wrapf(edmautils.ErrInvalidParam, "region is %d, must be less than %d", c.Region, MaxRegions)
	}
	return nil
}

// AM335xGlobalConfig returns the capabilities of the AM335x EDMA3 controller
func AM335xGlobalConfig() GlobalConfig {
	config := GlobalConfig{
		NumDmaChannels:  64,
		NumQdmaChannels: 8,
		NumTccs:         64,
		NumParamSets:    256,
		NumEventQueues:  3,
		NumTCs:          3,
		NumRegions:      8,

		ChannelMapping: true,
		MemProtection:  true,

		CCBase: 0x49000000,
		TCBase: []uint32{0x49800000, 0x49900000, 0x49A00000},

		QueueTC:            []uint32{0, 1, 2},
		QueuePriority:      []uint32{0, 1, 2},
		QueueWatermark:     []uint32{16, 16, 16},
		TCDefaultBurstSize: []uint32{16, 16, 16},

		ChannelTccMap:  make([]OptionalID, 64),
		HardwareEvents: [2]uint32{0xFFCFCFFF, 0xFF3FFFC0},
	}

	events := bitset.FromWords(64, config.HardwareEvents[:]...)
	events.Each(func(channel int) bool {
		config.ChannelTccMap[channel] = Some(uint32(channel))
		return false
	})

	return config
}

// AM335xInstanceConfig returns a partition for region that owns every resource and reserves
// the hardware-event channels, their TCCs, and the first 64 PaRAM sets for channel use
func AM335xInstanceConfig(region uint32, master bool) InstanceConfig {
	return InstanceConfig{
		Region: region,
		Master: master,
		Owned: ResourceWords{
			DmaChannels:  []uint32{0xFFFFFFFF, 0xFFFFFFFF},
			QdmaChannels: []uint32{0xFF},
			Tccs:         []uint32{0xFFFFFFFF, 0xFFFFFFFF},
			ParamSets:    []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
		},
		Reserved: ResourceWords{
			DmaChannels:  []uint32{0xFFCFCFFF, 0xFF3FFFC0},
			QdmaChannels: []uint32{0},
			Tccs:         []uint32{0xFFCFCFFF, 0xFF3FFFC0},
			ParamSets:    []uint32{0xFFFFFFFF, 0xFFFFFFFF},
		},
	}
}
