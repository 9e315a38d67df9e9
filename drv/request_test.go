package drv

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/param"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/regs/mocks"
	"github.com/vkngwrapper/edma3/rm"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slices"
)

func TestManualTransferLifecycle(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, smallPartition(0), OpenOptions{})

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Any(), Tcc: rm.Any(), Queue: 0})
	require.NoError(t, err)
	require.Equal(t, uint32(0), channel.ID)

	tcc, ok := channel.Tcc.Get()
	require.True(t, ok)
	require.Less(t, tcc, uint32(16))

	binding, err := d.Binding(channel.ID)
	require.NoError(t, err)
	require.Equal(t, rm.Some(channel.Slot), binding.Slot)
	require.Equal(t, TriggerNone, binding.Mode)

	require.NoError(t, d.SetTransferParams(channel.ID, 4, 10, 1, 0, param.SyncA))

	set, err := d.GetParam(channel.ID)
	require.NoError(t, err)
	require.Equal(t, uint16(4), set.ACnt)
	require.Equal(t, uint16(10), set.BCnt)
	require.Equal(t, uint16(1), set.CCnt)
	require.Equal(t, uint32(param.SyncA), param.OptSyncDim.Get(set.Opt))
	require.Equal(t, tcc, param.OptTCC.Get(set.Opt))

	require.NoError(t, d.EnableTransfer(channel.ID, TriggerManual))
	binding, err = d.Binding(channel.ID)
	require.NoError(t, err)
	require.Equal(t, TriggerManual, binding.Mode)

	global := h.global()
	require.True(t, global.Test(regs.ESR, channel.ID))

	require.NoError(t, d.DisableTransfer(channel.ID, TriggerManual))
	binding, err = d.Binding(channel.ID)
	require.NoError(t, err)
	require.Equal(t, TriggerNone, binding.Mode)

	require.False(t, global.Test(regs.ESR, channel.ID))
	require.False(t, global.Test(regs.SER, channel.ID))
	require.False(t, global.Test(regs.ER, channel.ID))
	require.False(t, h.controller.CC().Test(regs.EMR, channel.ID))

	require.NoError(t, d.FreeChannel(channel.ID))
	requireUnbound(t, d, channel.ID)
}

func TestRequestDmaUsesBoardMaps(t *testing.T) {
	config := testConfig()
	config.ChannelParamMap = make([]rm.OptionalID, testDmaChannels)
	config.ChannelTccMap = make([]rm.OptionalID, testDmaChannels)
	config.ChannelParamMap[5] = rm.Some(100)
	config.ChannelTccMap[5] = rm.Some(20)

	h := newHarnessWithOptions(t, config, regs.SimulatorOptions{ChannelMapping: true}, nil)
	d := h.open(t, ownEverything(0), OpenOptions{})

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(5), Tcc: rm.Any(), Queue: 2})
	require.NoError(t, err)
	require.Equal(t, uint32(5), channel.ID)
	require.Equal(t, uint32(100), channel.Slot)
	require.Equal(t, rm.Some(20), channel.Tcc)

	cc := h.controller.CC()
	require.Equal(t, uint32(100), cc.ChannelParam(5))
	require.Equal(t, uint32(2), cc.DmaQueue(5))

	tcc, err := d.GetOptField(channel.ID, param.OptTCC)
	require.NoError(t, err)
	require.Equal(t, uint32(20), tcc)

	// a named tcc wins over the board map
	channel, err = d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(6), Tcc: rm.Concrete(33)})
	require.NoError(t, err)
	require.Equal(t, rm.Some(33), channel.Tcc)
}

func TestRequestWithoutChannelMapping(t *testing.T) {
	config := testConfig()
	config.ChannelMapping = false

	h := newHarnessWithOptions(t, config, regs.SimulatorOptions{}, nil)
	d := h.open(t, ownEverything(0), OpenOptions{})

	channel := h.requestDma(t, d, rm.Concrete(9))
	require.Equal(t, uint32(9), channel.Slot)
	require.Equal(t, uint32(0), h.controller.CC().ChannelParam(9))

	qdma, err := d.RequestChannel(ChannelRequest{Kind: ChannelQdma, ID: rm.Any(), Tcc: rm.Any()})
	require.NoError(t, err)
	require.GreaterOrEqual(t, qdma.Slot, uint32(testDmaChannels))
}

func TestRequestQdma(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelQdma, ID: rm.Concrete(3), Tcc: rm.Any(), Queue: 1})
	require.NoError(t, err)
	require.Equal(t, d.QdmaChannelID(3), channel.ID)
	require.Equal(t, uint32(testParamSets+3), channel.ID)

	binding, err := d.Binding(channel.ID)
	require.NoError(t, err)
	require.Equal(t, TriggerQdma, binding.Mode)

	cc := h.controller.CC()
	require.Equal(t, channel.Slot, cc.QdmaParam(3))
	require.Equal(t, uint32(param.EntryCCnt), cc.QdmaTrigWord(3))
	require.Equal(t, uint32(1), cc.QdmaQueue(3))
	require.True(t, h.global().TestQdma(regs.QEER, 3))

	require.NoError(t, d.FreeChannel(channel.ID))
	require.False(t, h.global().TestQdma(regs.QEER, 3))
	require.Equal(t, uint32(0), cc.QdmaParam(3))
	require.Equal(t, uint32(0), cc.QdmaQueue(3))
	requireUnbound(t, d, channel.ID)
}

func TestRequestLink(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})

	link := h.requestLink(t, d)
	require.Equal(t, uint32(testDmaChannels), link.ID)
	require.Equal(t, link.ID, link.Slot)
	require.False(t, link.Tcc.IsSome())

	_, err := d.RequestChannel(ChannelRequest{Kind: ChannelLink, ID: rm.Concrete(10)})
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)

	_, err = d.RequestChannel(ChannelRequest{Kind: ChannelLink, ID: rm.Concrete(link.ID)})
	require.ErrorIs(t, err, edmautils.ErrResourceUnavailable)

	withTcc, err := d.RequestChannel(ChannelRequest{Kind: ChannelLinkWithTcc, ID: rm.Concrete(90), Tcc: rm.Concrete(12)})
	require.NoError(t, err)
	require.Equal(t, uint32(90), withTcc.ID)
	require.Equal(t, rm.Some(12), withTcc.Tcc)

	tcc, err := d.GetOptField(withTcc.ID, param.OptTCC)
	require.NoError(t, err)
	require.Equal(t, uint32(12), tcc)

	require.NoError(t, d.FreeChannel(withTcc.ID))
	require.False(t, d.Instance().IsAllocated(rm.Tcc, 12))
	require.False(t, d.Instance().IsAllocated(rm.ParamSet, 90))
	requireUnbound(t, d, withTcc.ID)
}

func TestRequestValidation(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})

	_, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Any(), Tcc: rm.Any(), Queue: 3})
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)

	_, err = d.RequestChannel(ChannelRequest{Kind: ChannelKind(9), ID: rm.Any()})
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)

	_, err = d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(64), Tcc: rm.Any()})
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)

	err = d.FreeChannel(7)
	require.ErrorIs(t, err, edmautils.ErrNotAllocated)

	_, err = d.Binding(testParamSets + 8)
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)
}

func TestRequestRollsBackOnFailure(t *testing.T) {
	h := newHarness(t)
	config := smallPartition(0)
	config.Owned.Tccs = []uint32{0x1}
	d := h.open(t, config, OpenOptions{})

	first := h.requestDma(t, d, rm.Any())
	require.Equal(t, rm.Some(0), first.Tcc)

	// every owned tcc is taken, so the channel and set claimed before the tcc must be released
	_, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(4), Tcc: rm.Any()})
	require.ErrorIs(t, err, edmautils.ErrAllUnavailable)

	instance := d.Instance()
	require.False(t, instance.IsAllocated(rm.DmaChannel, 4))
	require.Equal(t, 1, instance.Statistics(rm.ParamSet).AllocatedCount)
	require.False(t, h.controller.CC().RegionAccess(0, 4))
	requireUnbound(t, d, 4)

	_, err = d.RequestChannel(ChannelRequest{Kind: ChannelQdma, ID: rm.Any(), Tcc: rm.Any()})
	require.ErrorIs(t, err, edmautils.ErrAllUnavailable)
	require.False(t, instance.IsAllocated(rm.QdmaChannel, 0))
	require.False(t, h.controller.CC().QdmaRegionAccess(0, 0))
	requireUnbound(t, d, d.QdmaChannelID(0))
}

func TestRequestRollsBackWhenHandlerTaken(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})
	instance := d.Instance()

	// freeing a tcc leaves its handler attached, so the request below cannot register its own
	stale := rm.TccHandlerFunc(func(tcc uint32, status rm.TransferStatus) {})
	_, err := instance.Allocate(rm.Resource{Kind: rm.Tcc, ID: rm.Concrete(30)})
	require.NoError(t, err)
	require.NoError(t, instance.RegisterTccCallback(rm.Resource{Kind: rm.DmaChannel, ID: rm.Concrete(30)}, 30, stale))
	require.NoError(t, instance.Free(rm.Resource{Kind: rm.Tcc, ID: rm.Concrete(30)}))

	handler := rm.TccHandlerFunc(func(tcc uint32, status rm.TransferStatus) {})
	_, err = d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(30), Tcc: rm.Concrete(30), Handler: handler})
	require.ErrorIs(t, err, edmautils.ErrAlreadyRegistered)

	for _, kind := range rm.ResourceKinds {
		require.Equal(t, 0, instance.Statistics(kind).AllocatedCount, kind.String())
	}
	requireUnbound(t, d, 30)

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(2), Tcc: rm.Concrete(2), Handler: handler})
	require.NoError(t, err)
	require.True(t, h.controller.HasTccCallback(2))
	require.True(t, h.global().Test(regs.IER, 2))

	require.NoError(t, d.FreeChannel(channel.ID))
	require.False(t, h.controller.HasTccCallback(2))
	require.False(t, h.global().Test(regs.IER, 2))
	require.False(t, h.controller.CC().RegionAccess(0, 2))
	requireUnbound(t, d, channel.ID)
}

func TestFreeRestoresHardware(t *testing.T) {
	h := newHarness(t)
	d := h.open(t, ownEverything(0), OpenOptions{})

	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(9), Tcc: rm.Concrete(40), Queue: 2})
	require.NoError(t, err)
	require.NoError(t, d.EnableTransfer(channel.ID, TriggerEvent))
	require.True(t, h.global().Test(regs.EER, 9))

	require.NoError(t, d.FreeChannel(channel.ID))

	cc := h.controller.CC()
	require.False(t, h.global().Test(regs.EER, 9))
	require.Equal(t, uint32(0), cc.DmaQueue(9))
	require.Equal(t, uint32(0), cc.ChannelParam(9))
	require.False(t, cc.RegionAccess(0, 9))
	require.False(t, cc.RegionAccess(0, 40))

	for _, kind := range rm.ResourceKinds {
		require.Equal(t, 0, d.Instance().Statistics(kind).AllocatedCount, kind.String())
	}
	requireUnbound(t, d, channel.ID)

	require.NoError(t, d.Close())
}

func TestRequestOfForeignChannelWritesNothing(t *testing.T) {
	ctrl := gomock.NewController(t)
	writes := 0

	h := newHarnessWithOptions(t, testConfig(), regs.SimulatorOptions{ChannelMapping: true}, countingWindow(ctrl, &writes))
	owner := h.open(t, ownEverything(0), OpenOptions{})
	other := h.open(t, smallPartition(1), OpenOptions{})

	h.requestDma(t, owner, rm.Concrete(20))
	before := writes

	_, err := other.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(20), Tcc: rm.Any()})
	require.ErrorIs(t, err, edmautils.ErrNotOwned)
	require.Equal(t, before, writes)

	h.requestDma(t, other, rm.Concrete(3))
	afterOwnRequest := writes
	require.Greater(t, afterOwnRequest, before)

	_, err = other.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(3), Tcc: rm.Any()})
	require.ErrorIs(t, err, edmautils.ErrResourceUnavailable)
	require.Equal(t, afterOwnRequest, writes)
}

func TestFreeDisarmsBeforeDetachingHandler(t *testing.T) {
	ctrl := gomock.NewController(t)
	var offsets []uint32

	h := newHarnessWithOptions(t, testConfig(), regs.SimulatorOptions{ChannelMapping: true}, func(sim *regs.Simulator) regs.Window {
		window := mocks.NewMockWindow(ctrl)
		window.EXPECT().Read32(gomock.Any()).DoAndReturn(sim.Read32).AnyTimes()
		window.EXPECT().Write32(gomock.Any(), gomock.Any()).Do(func(offset uint32, value uint32) {
			offsets = append(offsets, offset)
			sim.Write32(offset, value)
		}).AnyTimes()
		return window
	})
	d := h.open(t, ownEverything(0), OpenOptions{})

	handler := rm.TccHandlerFunc(func(tcc uint32, status rm.TransferStatus) {})
	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: rm.Concrete(9), Tcc: rm.Concrete(9), Handler: handler})
	require.NoError(t, err)
	require.NoError(t, d.EnableTransfer(channel.ID, TriggerEvent))

	offsets = nil
	require.NoError(t, d.FreeChannel(channel.ID))

	disarm := slices.Index(offsets, regs.ShadowRegionBase+uint32(regs.EECR))
	detach := slices.Index(offsets, regs.ShadowRegionBase+uint32(regs.IECR))
	require.NotEqual(t, -1, disarm)
	require.NotEqual(t, -1, detach)
	require.Less(t, disarm, detach)
}
