package main

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/drv"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

// engine is an AM335x controller on simulated registers with one driver open on it
type engine struct {
	registry   *rm.Registry
	controller *rm.Controller
	driver     *drv.Driver
	id         uint32
}

func openEngine(logger *slog.Logger, s settings, master bool, simOptions regs.SimulatorOptions) (*engine, error) {
	config := rm.AM335xGlobalConfig()
	config.CCBase = s.CCBase

	var tcs []regs.Window
	for tc := uint32(0); tc < config.NumTCs; tc++ {
		tcs = append(tcs, regs.NewSimulatedTC())
	}

	registry := rm.NewRegistry(logger)
	controller, err := registry.Create(s.Controller, config, regs.NewSimulator(simOptions), tcs, rm.CreateOptions{})
	if err != nil {
		return nil, err
	}

	driver, err := drv.Open(logger, controller, rm.AM335xInstanceConfig(s.Region, master), drv.OpenOptions{})
	if err != nil {
		return nil, errors.CombineErrors(err, registry.Delete(s.Controller))
	}

	return &engine{
		registry:   registry,
		controller: controller,
		driver:     driver,
		id:         s.Controller,
	}, nil
}

// freeAll releases channels in reverse order of request
func (e *engine) freeAll(channels []drv.Channel) error {
	var err error
	for i := len(channels) - 1; i >= 0; i-- {
		err = errors.CombineErrors(err, e.driver.FreeChannel(channels[i].ID))
	}
	return err
}

func (e *engine) close() error {
	err := e.driver.Close()
	if err != nil {
		return err
	}
	return e.registry.Delete(e.id)
}
