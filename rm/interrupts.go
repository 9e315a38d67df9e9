package rm

import (
	"github.com/cockroachdb/errors"
	"github.com/usbarmory/tamago/bits"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slog"
)

// completionRetries bounds how many times the completion handler rescans IPR before it asks the
// controller to re-evaluate the interrupt instead
const completionRetries = 10

// RegisterTccCallback attaches handler to tcc, unmasks the TCC's completion interrupt and makes
// the TCC visible to this region. channel is the DMA or QDMA channel that reports through the TCC,
// so missed events on it can be routed to the same handler; any other kind is accepted and
// only receives completions.
func (i *Instance) RegisterTccCallback(channel Resource, tcc uint32, handler TccHandler) error {
	i.logger.Debug("Instance::RegisterTccCallback", slog.String("Channel", channel.String()), slog.Int("Tcc", int(tcc)))

	if handler == nil {
		return errors.Wrap(edmautils.ErrInvalidParam, "handler must not be nil")
	}
	err := i.checkTcc(tcc)
	if err != nil {
		return err
	}
	err = i.controller.config.validateResource(channel)
	if err != nil {
		return err
	}
	channelID, concrete := channel.ID.Value()
	if !concrete {
		return errors.Wrap(edmautils.ErrInvalidParam, "callbacks must be registered against a concrete channel")
	}
	if !i.IsAllocated(Tcc, tcc) {
		return errors.Wrapf(edmautils.ErrNotAllocated, "tcc %d is not allocated by this instance", tcc)
	}

	c := i.controller
	c.Masked(func() {
		if c.tccHandlers[tcc] != nil {
			err = errors.Wrapf(edmautils.ErrAlreadyRegistered, "tcc %d", tcc)
			return
		}
		c.tccHandlers[tcc] = handler

		switch channel.Kind {
		case DmaChannel:
			c.dmaChanTcc[channelID] = Some(tcc)
		case QdmaChannel:
			c.qdmaChanTcc[channelID] = Some(tcc)
		}

		c.cc.SetRegionAccess(i.region, tcc, true)
		i.shadow.Strobe(regs.IESR, tcc)
	})
	return err
}

// UnregisterTccCallback detaches the handler from the TCC the channel reports through, masks the
// TCC's completion interrupt and hides the TCC from this region
func (i *Instance) UnregisterTccCallback(channel Resource, tcc uint32) error {
	i.logger.Debug("Instance::UnregisterTccCallback", slog.String("Channel", channel.String()), slog.Int("Tcc", int(tcc)))

	err := i.checkTcc(tcc)
	if err != nil {
		return err
	}
	err = i.controller.config.validateResource(channel)
	if err != nil {
		return err
	}
	channelID, concrete := channel.ID.Value()
	if !concrete {
		return errors.Wrap(edmautils.ErrInvalidParam, "callbacks must be unregistered against a concrete channel")
	}

	keepAccess := i.IsAllocated(DmaChannel, tcc)

	c := i.controller
	c.Masked(func() {
		i.shadow.Strobe(regs.IECR, tcc)
		c.tccHandlers[tcc] = nil

		switch channel.Kind {
		case DmaChannel:
			c.dmaChanTcc[channelID] = None
		case QdmaChannel:
			c.qdmaChanTcc[channelID] = None
		}

		if !keepAccess {
			c.cc.SetRegionAccess(i.region, tcc, false)
		}
	})
	return nil
}

// HasTccCallback reports whether a handler is attached to tcc
func (c *Controller) HasTccCallback(tcc uint32) bool {
	if tcc >= c.config.NumTccs {
		return false
	}

	var registered bool
	c.Masked(func() {
		registered = c.tccHandlers[tcc] != nil
	})
	return registered
}

type pendingCall struct {
	handler TccHandler
	tcc     uint32
	status  TransferStatus
}

func (c *Controller) snapshot() (master *Instance, errorHandler ErrorHandler) {
	c.Masked(func() {
		master, errorHandler = c.isrMaster, c.isrErrorHandler
	})
	return master, errorHandler
}

func eachBit(low, high uint32, limit uint32, cb func(id uint32)) {
	for id := uint32(0); id < limit && id < 64; id++ {
		word := low
		if id >= 32 {
			word = high
		}
		if bits.Get(&word, int(id%32), 1) == 1 {
			cb(id)
		}
	}
}

// HandleCompletion services the transfer completion interrupt of the master region. Every
// pending TCC that the master has allocated and that has a handler is cleared and its handler
// called with TransferComplete. Handlers run with interrupts unmasked. No mutex is taken, so
// it may interrupt a thread that is allocating or opening an instance.
func (c *Controller) HandleCompletion() {
	master, _ := c.snapshot()
	if master == nil {
		return
	}
	c.logger.Debug("Controller::HandleCompletion")

	shadow := master.shadow
	var calls []pendingCall
	pending := false

	for retry := 0; retry < completionRetries; retry++ {
		calls = calls[:0]

		c.Masked(func() {
			low, high := shadow.ReadPair(regs.IPR)
			low &= c.isrMasterTccs[0]
			high &= c.isrMasterTccs[1]

			pending = low|high != 0
			eachBit(low, high, c.config.NumTccs, func(tcc uint32) {
				handler := c.tccHandlers[tcc]
				if handler == nil {
					return
				}
				shadow.Strobe(regs.ICR, tcc)
				calls = append(calls, pendingCall{handler: handler, tcc: tcc, status: TransferComplete})
			})
		})

		for _, call := range calls {
			call.handler.TransferEvent(call.tcc, call.status)
		}

		if !pending || len(calls) == 0 {
			break
		}
	}

	c.Masked(func() {
		low, high := shadow.ReadPair(regs.IPR)
		if low|high != 0 {
			shadow.Write(regs.IEVAL, 1)
		}
	})
}

// HandleCCError services the channel controller error interrupt: missed DMA and QDMA events are
// cleared and reported to the channel's TCC handler, queue threshold and TCC overflow errors to
// the master instance's ErrorHandler.
func (c *Controller) HandleCCError() {
	_, errorHandler := c.snapshot()
	c.logger.Debug("Controller::HandleCCError")

	type pendingError struct {
		class ErrorClass
		id    uint32
	}

	for retry := 0; retry < completionRetries; retry++ {
		var calls []pendingCall
		var errs []pendingError
		var found bool

		c.Masked(func() {
			emrLow, emrHigh := c.cc.ReadPair(regs.EMR)
			qemr := c.cc.Read(regs.QEMR)
			ccerr := c.cc.Read(regs.CCERR)
			found = emrLow|emrHigh|qemr|ccerr != 0

			eachBit(emrLow, emrHigh, c.config.NumDmaChannels, func(channel uint32) {
				c.cc.Strobe(regs.EMCR, channel)
				c.Global().Strobe(regs.SECR, channel)

				tcc, mapped := c.dmaChanTcc[channel].Get()
				if mapped && c.tccHandlers[tcc] != nil {
					calls = append(calls, pendingCall{handler: c.tccHandlers[tcc], tcc: tcc, status: DmaEventMissed})
				}
			})

			eachBit(qemr, 0, c.config.NumQdmaChannels, func(channel uint32) {
				var mask uint32
				bits.Set(&mask, int(channel))
				c.cc.Write(regs.QEMCR, mask)
				c.Global().Write(regs.QSECR, mask)

				tcc, mapped := c.qdmaChanTcc[channel].Get()
				if mapped && c.tccHandlers[tcc] != nil {
					calls = append(calls, pendingCall{handler: c.tccHandlers[tcc], tcc: tcc, status: QdmaEventMissed})
				}
			})

			for queue := uint32(0); queue < c.config.NumEventQueues; queue++ {
				if bits.Get(&ccerr, int(queue), 1) == 1 {
					c.cc.Write(regs.CCERRCLR, 1<<queue)
					errs = append(errs, pendingError{class: QueueThresholdExceeded, id: queue})
				}
			}
			if ccerr&regs.CCERRTccErr != 0 {
				c.cc.Write(regs.CCERRCLR, regs.CCERRTccErr)
				errs = append(errs, pendingError{class: TccOverflow, id: c.id})
			}
		})

		for _, call := range calls {
			call.handler.TransferEvent(call.tcc, call.status)
		}
		if errorHandler != nil {
			for _, e := range errs {
				errorHandler.ControllerError(e.class, e.id)
			}
		}

		if !found {
			break
		}
	}

	c.Masked(func() {
		c.cc.Write(regs.EEVAL, 1)
	})
}

// HandleTCError services the error interrupt of transfer controller tc, reporting each latched
// error class to the master instance's ErrorHandler and clearing it
func (c *Controller) HandleTCError(tc uint32) {
	c.logger.Debug("Controller::HandleTCError", slog.Int("TC", int(tc)))

	tcRegs, ok := c.TC(tc)
	if !ok {
		return
	}
	_, errorHandler := c.snapshot()

	var classes []ErrorClass
	c.Masked(func() {
		stat := tcRegs.Read(regs.ERRSTAT)

		if bits.Get(&stat, regs.TCErrBus, 1) == 1 {
			detail := tcRegs.Read(regs.ERRDET) & regs.ERRDETStatMask
			switch {
			case detail >= 1 && detail <= 7:
				classes = append(classes, TCReadError)
			case detail >= 8:
				classes = append(classes, TCWriteError)
			}
			tcRegs.Write(regs.ERRCLR, 1<<regs.TCErrBus)
		}
		if bits.Get(&stat, regs.TCErrTR, 1) == 1 {
			classes = append(classes, TCTransferRequestError)
			tcRegs.Write(regs.ERRCLR, 1<<regs.TCErrTR)
		}
		if bits.Get(&stat, regs.TCErrMMRAddr, 1) == 1 {
			classes = append(classes, TCMMRAddressError)
			tcRegs.Write(regs.ERRCLR, 1<<regs.TCErrMMRAddr)
		}
	})

	if errorHandler == nil {
		return
	}
	for _, class := range classes {
		errorHandler.ControllerError(class, tc)
	}
}

// Global is the controller-wide view of the channel registers
func (c *Controller) Global() regs.Bank {
	return c.cc.Global()
}
