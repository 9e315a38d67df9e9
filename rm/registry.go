package rm

import (
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/internal/utils"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slog"
)

// Registry owns every Controller in the system, keyed by physical controller id. It is
// constructed once at startup and handed to the code that brings controllers up and down.
type Registry struct {
	logger *slog.Logger

	mutex       sync.Mutex
	controllers *swiss.Map[uint32, *Controller]
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		logger:      logger,
		controllers: swiss.NewMap[uint32, *Controller](4),
	}
}

// Create brings up the controller with the given physical id
//
// cc - The channel controller register window
//
// tcs - One register window per transfer controller; it may be shorter than config.NumTCs if some
// transfer controllers are not accessible, in which case their errors cannot be reported
//
// options - Optional parameters: it is valid to leave all the fields blank
func (r *Registry) Create(id uint32, config GlobalConfig, cc regs.Window, tcs []regs.Window, options CreateOptions) (*Controller, error) {
	r.logger.Debug("Registry::Create", slog.Int("Controller", int(id)))

	edmautils.DebugValidate(&config)
	err := config.Validate()
	if err != nil {
		return nil, err
	}
	if cc == nil {
		return nil, errors.Wrap(edmautils.ErrInvalidParam, "a channel controller register window is required")
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	if _, exists := r.controllers.Get(id); exists {
		return nil, errors.Wrapf(edmautils.ErrInvalidState, "controller %d has not been deleted", id)
	}

	masker := options.Masker
	if masker == nil {
		masker = &utils.MutexMasker{}
	}

	controller := &Controller{
		logger:       r.logger.With(slog.Int("Controller", int(id))),
		id:           id,
		config:       config,
		cc:           regs.NewCC(cc),
		masker:       masker,
		state:        StateCreated,
		instances:    swiss.NewMap[uint32, *Instance](config.NumRegions),
		tccHandlers:  make([]TccHandler, config.NumTccs),
		dmaChanTcc:   make([]OptionalID, config.NumDmaChannels),
		qdmaChanTcc:  make([]OptionalID, config.NumQdmaChannels),
	}
	for _, w := range tcs {
		controller.tcs = append(controller.tcs, regs.NewTC(w))
	}

	if options.Flags&CreateSkipGlobalInit == 0 {
		controller.initGlobalRegisters()
	}

	r.controllers.Put(id, controller)
	return controller, nil
}

// Delete tears down a controller. Every instance opened on it must be closed first.
func (r *Registry) Delete(id uint32) error {
	r.logger.Debug("Registry::Delete", slog.Int("Controller", int(id)))

	r.mutex.Lock()
	defer r.mutex.Unlock()

	controller, exists := r.controllers.Get(id)
	if !exists {
		return errors.Wrapf(edmautils.ErrInvalidState, "controller %d has not been created", id)
	}

	controller.mutex.Lock()
	defer controller.mutex.Unlock()

	if controller.state == StateOpened {
		return errors.Wrapf(edmautils.ErrInvalidState, "controller %d still has %d open instances", id, controller.instances.Count())
	}

	controller.state = StateDeleted
	r.controllers.Delete(id)
	return nil
}

// Controller returns the controller with the given physical id, if it has been created
func (r *Registry) Controller(id uint32) (*Controller, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return r.controllers.Get(id)
}
