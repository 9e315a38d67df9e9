package rm

import (
	"fmt"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/rs/xid"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/edmautils/bitset"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slog"
)

// State is the lifecycle state of a Controller
type State int

const (
	StateCreated State = iota
	StateOpened
	StateClosed
	StateDeleted
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "Created"
	case StateOpened:
		return "Opened"
	case StateClosed:
		return "Closed"
	case StateDeleted:
		return "Deleted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

const (
	queueWatermarkMask = 0x1F
	queueWatermarkPos  = 8
)

// Controller is one physical EDMA3 channel controller and its transfer controllers
type Controller struct {
	logger *slog.Logger
	id     uint32
	config GlobalConfig
	cc     *regs.CC
	tcs    []*regs.TC
	masker InterruptMasker

	mutex        sync.Mutex
	state        State
	instances    *swiss.Map[uint32, *Instance]
	master       *Instance
	errorHandler ErrorHandler

	// guarded by masker
	tccHandlers []TccHandler
	dmaChanTcc  []OptionalID
	qdmaChanTcc []OptionalID

	// the interrupt handlers' copy of master, errorHandler and the master's allocated TCCs,
	// guarded by masker so they can be read without taking mutex
	isrMaster       *Instance
	isrErrorHandler ErrorHandler
	isrMasterTccs   [2]uint32
}

func (c *Controller) ID() uint32 {
	return c.id
}

func (c *Controller) Config() GlobalConfig {
	return c.config
}

func (c *Controller) State() State {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.state
}

// CC is the channel controller register block
func (c *Controller) CC() *regs.CC {
	return c.cc
}

// TC is the register block of transfer controller tc, if its window was provided at Create
func (c *Controller) TC(tc uint32) (*regs.TC, bool) {
	if int(tc) >= len(c.tcs) {
		return nil, false
	}
	return c.tcs[tc], true
}

// Masked runs f with the controller's interrupts masked
func (c *Controller) Masked(f func()) {
	state := c.masker.Mask()
	defer c.masker.Restore(state)

	f()
}

func (c *Controller) initGlobalRegisters() {
	c.cc.WritePair(regs.EMCR, 0xFFFFFFFF, 0xFFFFFFFF)
	c.cc.Write(regs.QEMCR, 0xFFFFFFFF)

	for queue := uint32(0); queue < c.config.NumEventQueues; queue++ {
		if int(queue) < len(c.config.QueuePriority) {
			c.cc.SetQueuePriority(queue, c.config.QueuePriority[queue])
		}
		if int(queue) < len(c.config.QueueTC) {
			c.cc.SetQueueTC(queue, c.config.QueueTC[queue])
		}
		if int(queue) < len(c.config.QueueWatermark) && queue < 4 {
			c.cc.Modify(regs.QWMTHRA, int(queue)*queueWatermarkPos, queueWatermarkMask, c.config.QueueWatermark[queue])
		}
	}

	c.cc.Write(regs.CCERRCLR, 0xFFFF|regs.CCERRTccErr)
}

// Open creates the instance that manages the resource partition of one shadow region
func (c *Controller) Open(config InstanceConfig, options OpenOptions) (*Instance, error) {
	c.logger.Debug("Controller::Open", slog.Int("Region", int(config.Region)), slog.Bool("Master", config.Master))

	edmautils.DebugValidate(&config)
	err := config.Validate()
	if err != nil {
		return nil, err
	}
	if config.Region >= c.config.NumRegions {
		return nil, errors.Wrapf(edmautils.ErrInvalidParam, "region is %d, but the controller has %d regions", config.Region, c.config.NumRegions)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.state == StateDeleted {
		return nil, errors.Wrapf(edmautils.ErrInvalidState, "controller %d has been deleted", c.id)
	}
	if uint32(c.instances.Count()) >= c.config.NumRegions {
		return nil, errors.Wrapf(edmautils.ErrMaxInstances, "controller %d already has %d instances", c.id, c.instances.Count())
	}
	if _, exists := c.instances.Get(config.Region); exists {
		return nil, errors.Wrapf(edmautils.ErrInvalidState, "region %d is already open", config.Region)
	}
	if config.Master && c.master != nil {
		return nil, errors.Wrapf(edmautils.ErrMasterExists, "region %d is the master", c.master.region)
	}

	instance := &Instance{
		logger:     c.logger.With(slog.Int("Region", int(config.Region))),
		id:         xid.New(),
		controller: c,
		region:     config.Region,
		master:     config.Master,
		shadow:     c.cc.Shadow(config.Region),
		flags:      options.Flags,
		paramClear: options.Flags&OpenKeepParamContents == 0,
	}
	instance.mutex.UseMutex = options.Flags&OpenExternallySynchronized == 0

	for _, kind := range ResourceKinds {
		count := int(c.config.count(kind))
		instance.owned[kind] = bitset.FromWords(count, config.Owned.words(kind)...)
		instance.reserved[kind] = bitset.FromWords(count, config.Reserved.words(kind)...)
		instance.allocated[kind] = bitset.New(count)
	}

	c.Masked(func() {
		instance.initShadowRegisters()
		if config.Master {
			c.isrMaster = instance
			c.isrErrorHandler = options.ErrorHandler
			c.isrMasterTccs = [2]uint32{}
		}
	})

	c.instances.Put(config.Region, instance)
	if config.Master {
		c.master = instance
		c.errorHandler = options.ErrorHandler
	}
	c.state = StateOpened

	instance.logger.Debug("Controller::Open opened instance", slog.String("Instance", instance.id.String()))
	return instance, nil
}

func (c *Controller) closeInstance(instance *Instance) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.instances.Delete(instance.region)
	if c.master == instance {
		c.master = nil
		c.errorHandler = nil
		c.Masked(func() {
			c.isrMaster = nil
			c.isrErrorHandler = nil
			c.isrMasterTccs = [2]uint32{}
		})
	}
	if c.instances.Count() == 0 {
		c.state = StateClosed
	}
}

// Instances returns the number of open instances
func (c *Controller) Instances() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return c.instances.Count()
}
