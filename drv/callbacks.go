package drv

import (
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

func (d *Driver) ownTcc(c boundChannel) (uint32, error) {
	tcc, ok := c.binding.allocatedTcc.Get()
	if !ok {
		return 0, errors.Wrapf(edmautils.ErrInvalidParam, "channel %d has no tcc of its own", c.id)
	}
	return tcc, nil
}

// RegisterTccCallback attaches handler to the TCC a logical channel was allocated with. It fails
// with ErrAlreadyRegistered if the TCC already has a handler.
func (d *Driver) RegisterTccCallback(ch uint32, handler rm.TccHandler) error {
	d.logger.Debug("Driver::RegisterTccCallback", slog.Int("Channel", int(ch)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	tcc, err := d.ownTcc(c)
	if err != nil {
		return err
	}
	return d.instance.RegisterTccCallback(c.resource(), tcc, handler)
}

// UnregisterTccCallback detaches the handler from the TCC a logical channel was allocated with
func (d *Driver) UnregisterTccCallback(ch uint32) error {
	d.logger.Debug("Driver::UnregisterTccCallback", slog.Int("Channel", int(ch)))

	d.mutex.Lock()
	defer d.mutex.Unlock()

	c, err := d.bound(ch)
	if err != nil {
		return err
	}
	tcc, err := d.ownTcc(c)
	if err != nil {
		return err
	}
	return d.instance.UnregisterTccCallback(c.resource(), tcc)
}
