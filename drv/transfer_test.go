package drv

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/param"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
	"go.uber.org/mock/gomock"
)

func TestEventTransfer(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})
	channel := h.requestDma(t, d, rm.Concrete(9))

	require.NoError(t, d.EnableTransfer(channel.ID, TriggerEvent))
	global := h.global()
	require.True(t, global.Test(regs.EER, 9))

	h.sim.RaiseEvent(9)
	h.sim.RaiseMissedEvent(9)

	status, err := d.GetChannelStatus(channel.ID)
	require.NoError(t, err)
	require.Equal(t, ChannelEventPending|ChannelEventMissed, status)

	require.NoError(t, d.DisableTransfer(channel.ID, TriggerEvent))
	require.False(t, global.Test(regs.EER, 9))
	require.False(t, global.Test(regs.ER, 9))
	require.False(t, h.controller.CC().Test(regs.EMR, 9))

	status, err = d.GetChannelStatus(channel.ID)
	require.NoError(t, err)
	require.Equal(t, ChannelStatus(0), status)
}

func TestTriggerModeValidation(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})

	plain := h.requestDma(t, d, rm.Concrete(3))
	link := h.requestLink(t, d)
	qdma, err := d.RequestChannel(ChannelRequest{Kind: ChannelQdma, ID: rm.Any(), Tcc: rm.Any()})
	require.NoError(t, err)

	cases := []struct {
		name string
		ch   uint32
		mode TriggerMode
	}{
		{"event without hardware event", plain.ID, TriggerEvent},
		{"qdma on dma channel", plain.ID, TriggerQdma},
		{"manual on link", link.ID, TriggerManual},
		{"manual on qdma", qdma.ID, TriggerManual},
		{"event on qdma", qdma.ID, TriggerEvent},
		{"none", plain.ID, TriggerNone},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.ErrorIs(t, d.EnableTransfer(c.ch, c.mode), edmautils.ErrInvalidParam)
			require.ErrorIs(t, d.DisableTransfer(c.ch, c.mode), edmautils.ErrInvalidParam)
		})
	}

	require.ErrorIs(t, d.DisableLogicalChannel(plain.ID, TriggerManual), edmautils.ErrInvalidParam)
	require.ErrorIs(t, d.EnableTransfer(5, TriggerManual), edmautils.ErrNotAllocated)
}

func TestDisarmIsIdempotent(t *testing.T) {
	ctrl := gomock.NewController(t)
	writes := 0

	h := newHarnessWithOptions(t, testConfig(), regs.SimulatorOptions{ChannelMapping: true}, countingWindow(ctrl, &writes))
	d := h.open(t, ownEverything(0), OpenOptions{})

	event := h.requestDma(t, d, rm.Concrete(12))
	manual := h.requestDma(t, d, rm.Concrete(2))
	qdma, err := d.RequestChannel(ChannelRequest{Kind: ChannelQdma, ID: rm.Any(), Tcc: rm.Any()})
	require.NoError(t, err)
	require.NoError(t, d.DisableTransfer(qdma.ID, TriggerQdma))

	before := writes
	require.NoError(t, d.DisableTransfer(event.ID, TriggerEvent))
	require.NoError(t, d.DisableTransfer(manual.ID, TriggerManual))
	require.NoError(t, d.DisableTransfer(qdma.ID, TriggerQdma))
	require.Equal(t, before, writes)

	require.NoError(t, d.EnableTransfer(event.ID, TriggerEvent))
	require.NoError(t, d.DisableTransfer(event.ID, TriggerEvent))
	before = writes
	require.NoError(t, d.DisableTransfer(event.ID, TriggerEvent))
	require.Equal(t, before, writes)
}

func TestDisarmUsesArmedMode(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})
	channel := h.requestDma(t, d, rm.Concrete(9))
	global := h.global()

	require.NoError(t, d.EnableTransfer(channel.ID, TriggerEvent))
	require.ErrorIs(t, d.DisableTransfer(channel.ID, TriggerManual), edmautils.ErrInvalidParam)
	require.True(t, global.Test(regs.EER, 9))

	binding, err := d.Binding(channel.ID)
	require.NoError(t, err)
	require.Equal(t, TriggerEvent, binding.Mode)

	require.NoError(t, d.FreeChannel(channel.ID))
	require.False(t, global.Test(regs.EER, 9))
}

func TestDisableLogicalChannel(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})
	global := h.global()

	qdma, err := d.RequestChannel(ChannelRequest{Kind: ChannelQdma, ID: rm.Concrete(1), Tcc: rm.Any()})
	require.NoError(t, err)
	require.NoError(t, d.DisableLogicalChannel(qdma.ID, TriggerQdma))
	require.False(t, global.TestQdma(regs.QEER, 1))

	binding, err := d.Binding(qdma.ID)
	require.NoError(t, err)
	require.Equal(t, TriggerNone, binding.Mode)

	require.NoError(t, d.EnableTransfer(qdma.ID, TriggerQdma))
	require.True(t, global.TestQdma(regs.QEER, 1))

	event := h.requestDma(t, d, rm.Concrete(10))
	require.NoError(t, d.EnableTransfer(event.ID, TriggerEvent))
	h.sim.RaiseEvent(10)

	require.NoError(t, d.DisableLogicalChannel(event.ID, TriggerEvent))
	require.False(t, global.Test(regs.EER, 10))
	require.True(t, global.Test(regs.ER, 10))
}

func TestClearErrorBits(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})
	channel := h.requestDma(t, d, rm.Concrete(11))

	require.NoError(t, d.EnableTransfer(channel.ID, TriggerEvent))
	h.sim.RaiseMissedEvent(11)
	h.sim.RaiseCCError(0x5 | regs.CCERRTccErr)

	require.NoError(t, d.ClearErrorBits(channel.ID))

	cc := h.controller.CC()
	require.False(t, h.global().Test(regs.EER, 11))
	require.False(t, cc.Test(regs.EMR, 11))
	require.Equal(t, uint32(0), cc.Read(regs.CCERR))

	link := h.requestLink(t, d)
	require.ErrorIs(t, d.ClearErrorBits(link.ID), edmautils.ErrInvalidParam)
}

func TestCompletionStatusAndPolling(t *testing.T) {
	h := newHarnessWithOptions(t, testConfig(), regs.SimulatorOptions{ChannelMapping: true, AutoComplete: true}, nil)
	d := h.open(t, ownEverything(0), OpenOptions{})

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(4), Tcc: rm.Concrete(21)})
	require.NoError(t, err)
	require.NoError(t, d.SetOptField(channel.ID, param.OptTCIntEn, 1))

	require.NoError(t, d.EnableTransfer(channel.ID, TriggerManual))

	status, err := d.GetChannelStatus(channel.ID)
	require.NoError(t, err)
	require.Equal(t, ChannelTransferComplete, status)

	done, err := d.CheckAndClearTcc(21)
	require.NoError(t, err)
	require.True(t, done)

	done, err = d.CheckAndClearTcc(21)
	require.NoError(t, err)
	require.False(t, done)

	require.NoError(t, d.EnableTransfer(channel.ID, TriggerManual))
	require.NoError(t, d.WaitAndClearTcc(21))
	require.False(t, h.global().Test(regs.IPR, 21))

	_, err = d.CheckAndClearTcc(64)
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)

	link := h.requestLink(t, d)
	_, err = d.GetChannelStatus(link.ID)
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)
}

func TestCompletionReachesHandler(t *testing.T) {
	h := newHarnessWithOptions(t, testConfig(), regs.SimulatorOptions{ChannelMapping: true, AutoComplete: true}, nil)
	d := h.open(t, ownEverything(0), OpenOptions{})

	var statuses []rm.TransferStatus
	handler := rm.TccHandlerFunc(func(tcc uint32, status rm.TransferStatus) {
		require.Equal(t, uint32(6), tcc)
		statuses = append(statuses, status)
	})

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(6), Tcc: rm.Concrete(6), Handler: handler})
	require.NoError(t, err)
	require.Equal(t, rm.Some(6), channel.Tcc)
	require.NoError(t, d.SetOptField(channel.ID, param.OptTCIntEn, 1))

	require.NoError(t, d.EnableTransfer(channel.ID, TriggerManual))
	h.controller.HandleCompletion()
	require.Equal(t, []rm.TransferStatus{rm.TransferComplete}, statuses)

	require.NoError(t, d.UnregisterTccCallback(channel.ID))
	require.NoError(t, d.EnableTransfer(channel.ID, TriggerManual))
	h.controller.HandleCompletion()
	require.Len(t, statuses, 1)

	require.NoError(t, d.RegisterTccCallback(channel.ID, handler))
	require.ErrorIs(t, d.RegisterTccCallback(channel.ID, handler), edmautils.ErrAlreadyRegistered)

	link := h.requestLink(t, d)
	require.ErrorIs(t, d.RegisterTccCallback(link.ID, handler), edmautils.ErrInvalidParam)
}
