package drv

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
)

func TestMapChannelToQueue(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})
	cc := h.controller.CC()

	dma := h.requestDma(t, d, rm.Concrete(20))
	qdma, err := d.RequestChannel(ChannelRequest{Kind: ChannelQdma, ID: rm.Concrete(2), Tcc: rm.Any()})
	require.NoError(t, err)
	link := h.requestLink(t, d)

	require.NoError(t, d.MapChannelToQueue(dma.ID, 2))
	require.Equal(t, uint32(2), cc.DmaQueue(20))
	queue, err := d.GetQueue(dma.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(2), queue)

	require.NoError(t, d.MapChannelToQueue(qdma.ID, 1))
	require.Equal(t, uint32(1), cc.QdmaQueue(2))
	queue, err = d.GetQueue(qdma.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(1), queue)

	require.ErrorIs(t, d.MapChannelToQueue(link.ID, 1), edmautils.ErrInvalidParam)
	_, err = d.GetQueue(link.ID)
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)
	require.ErrorIs(t, d.MapChannelToQueue(dma.ID, 3), edmautils.ErrInvalidParam)
	require.ErrorIs(t, d.MapChannelToQueue(21, 0), edmautils.ErrNotAllocated)
}

func TestStaticQueueMapping(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{Flags: rm.OpenStaticQueueMapping})

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(4), Tcc: rm.Any(), Queue: 1})
	require.NoError(t, err)

	require.ErrorIs(t, d.MapChannelToQueue(channel.ID, 2), edmautils.ErrFeatureUnsupported)
	queue, err := d.GetQueue(channel.ID)
	require.NoError(t, err)
	require.Equal(t, uint32(1), queue)
}

func TestQueuePriority(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})

	require.NoError(t, d.SetQueuePriority([]uint32{7, 3}))
	priority, err := d.QueuePriority(0)
	require.NoError(t, err)
	require.Equal(t, uint32(7), priority)
	priority, err = d.QueuePriority(1)
	require.NoError(t, err)
	require.Equal(t, uint32(3), priority)
	priority, err = d.QueuePriority(2)
	require.NoError(t, err)
	require.Equal(t, uint32(2), priority)

	// nothing is written when any priority is out of range
	require.ErrorIs(t, d.SetQueuePriority([]uint32{1, 8}), edmautils.ErrInvalidParam)
	priority, err = d.QueuePriority(0)
	require.NoError(t, err)
	require.Equal(t, uint32(7), priority)

	require.ErrorIs(t, d.SetQueuePriority([]uint32{0, 0, 0, 0}), edmautils.ErrInvalidParam)
	_, err = d.QueuePriority(3)
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)
}

func TestTcErrorReporting(t *testing.T) {
	h := newHarness(t)

	var reported []rm.ErrorClass
	errorHandler := rm.ErrorHandlerFunc(func(class rm.ErrorClass, id uint32) {
		require.Equal(t, uint32(1), id)
		reported = append(reported, class)
	})
	d := h.open(t, ownEverything(0), OpenOptions{ErrorHandler: errorHandler})
	tc, ok := h.controller.TC(1)
	require.True(t, ok)

	require.NoError(t, d.SetTcErrorReporting(1, TCErrorAll, true))
	require.Equal(t, uint32(1<<regs.TCErrBus|1<<regs.TCErrTR|1<<regs.TCErrMMRAddr), tc.Read(regs.ERREN))

	h.tcs[1].RaiseError(regs.TCErrBus, 9)
	h.controller.HandleTCError(1)
	require.Equal(t, []rm.ErrorClass{rm.TCWriteError}, reported)
	require.Equal(t, uint32(0), tc.Read(regs.ERRSTAT))

	require.NoError(t, d.SetTcErrorReporting(1, TCErrorBus, false))
	require.Equal(t, uint32(1<<regs.TCErrTR|1<<regs.TCErrMMRAddr), tc.Read(regs.ERREN))

	reported = nil
	h.tcs[1].RaiseError(regs.TCErrBus, 1)
	h.tcs[1].RaiseError(regs.TCErrTR, 0)
	h.controller.HandleTCError(1)
	require.Equal(t, []rm.ErrorClass{rm.TCTransferRequestError}, reported)

	require.NoError(t, d.SetTcErrorReporting(1, TCErrorAll, false))
	require.Equal(t, uint32(0), tc.Read(regs.ERREN))

	require.ErrorIs(t, d.SetTcErrorReporting(3, TCErrorAll, true), edmautils.ErrInvalidParam)
	require.ErrorIs(t, d.SetTcErrorReporting(0, TCErrorClass(9), true), edmautils.ErrInvalidParam)
}

func TestCCRegisterAccess(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})

	require.NoError(t, d.SetCCRegister(regs.QWMTHRA, 0x10101010))
	value, err := d.GetCCRegister(regs.QWMTHRA)
	require.NoError(t, err)
	require.Equal(t, uint32(0x10101010), value)

	_, err = d.GetCCRegister(regs.QWMTHRA + 2)
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)
	require.ErrorIs(t, d.SetCCRegister(regs.CCSize, 0), edmautils.ErrInvalidParam)
}
