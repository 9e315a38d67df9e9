package drv

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/regs/mocks"
	"github.com/vkngwrapper/edma3/rm"
	"go.uber.org/mock/gomock"
	"golang.org/x/exp/slog"
)

const (
	testDmaChannels = 64
	testParamSets   = 128
)

func testConfig() rm.GlobalConfig {
	return rm.GlobalConfig{
		NumDmaChannels:  testDmaChannels,
		NumQdmaChannels: 8,
		NumTccs:         64,
		NumParamSets:    testParamSets,
		NumEventQueues:  3,
		NumTCs:          3,
		NumRegions:      4,

		ChannelMapping: true,

		CCBase: 0x49000000,
		TCBase: []uint32{0x49800000, 0x49900000, 0x49A00000},

		QueueTC:            []uint32{0, 1, 2},
		QueuePriority:      []uint32{0, 1, 2},
		QueueWatermark:     []uint32{16, 16, 16},
		TCDefaultBurstSize: []uint32{16, 32, 64},

		// channels 8-15 are tied to peripheral events
		HardwareEvents: [2]uint32{0x0000FF00, 0},
	}
}

func ownEverything(region uint32) rm.InstanceConfig {
	return rm.InstanceConfig{
		Region: region,
		Master: true,
		Owned: rm.ResourceWords{
			DmaChannels:  []uint32{0xFFFFFFFF, 0xFFFFFFFF},
			QdmaChannels: []uint32{0xFF},
			Tccs:         []uint32{0xFFFFFFFF, 0xFFFFFFFF},
			ParamSets:    []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
		},
	}
}

// smallPartition owns DMA channels 0-7, QDMA channels 0-1, TCCs 0-15 and PaRAM sets 0-15
func smallPartition(region uint32) rm.InstanceConfig {
	return rm.InstanceConfig{
		Region: region,
		Owned: rm.ResourceWords{
			DmaChannels:  []uint32{0xFF},
			QdmaChannels: []uint32{0x3},
			Tccs:         []uint32{0xFFFF},
			ParamSets:    []uint32{0xFFFF},
		},
	}
}

type testHarness struct {
	sim        *regs.Simulator
	tcs        []*regs.SimulatedTC
	controller *rm.Controller
	logger     *slog.Logger
}

func newHarness(t *testing.T) *testHarness {
	return newHarnessWithOptions(t, testConfig(), regs.SimulatorOptions{ChannelMapping: true}, nil)
}

func newHarnessWithOptions(t *testing.T, config rm.GlobalConfig, options regs.SimulatorOptions, wrap func(sim *regs.Simulator) regs.Window) *testHarness {
	h := &testHarness{
		sim:    regs.NewSimulator(options),
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	var cc regs.Window = h.sim
	if wrap != nil {
		cc = wrap(h.sim)
	}

	var tcWindows []regs.Window
	for tc := 0; tc < 3; tc++ {
		simTC := regs.NewSimulatedTC()
		h.tcs = append(h.tcs, simTC)
		tcWindows = append(tcWindows, simTC)
	}

	registry := rm.NewRegistry(h.logger)
	controller, err := registry.Create(0, config, cc, tcWindows, rm.CreateOptions{})
	require.NoError(t, err)
	h.controller = controller

	return h
}

// countingWindow passes every access through to sim and counts the writes
func countingWindow(ctrl *gomock.Controller, writes *int) func(sim *regs.Simulator) regs.Window {
	return func(sim *regs.Simulator) regs.Window {
		window := mocks.NewMockWindow(ctrl)
		window.EXPECT().Read32(gomock.Any()).DoAndReturn(sim.Read32).AnyTimes()
		window.EXPECT().Write32(gomock.Any(), gomock.Any()).Do(func(offset uint32, value uint32) {
			*writes++
			sim.Write32(offset, value)
		}).AnyTimes()
		return window
	}
}

func (h *testHarness) open(t *testing.T, config rm.InstanceConfig, options OpenOptions) *Driver {
	driver, err := Open(h.logger, h.controller, config, options)
	require.NoError(t, err)
	return driver
}

func (h *testHarness) global() regs.Bank {
	return h.controller.Global()
}

func (h *testHarness) requestDma(t *testing.T, d *Driver, id rm.ID) Channel {
	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelDma, ID: id, Tcc: rm.Any()})
	require.NoError(t, err)
	return channel
}

func (h *testHarness) requestLink(t *testing.T, d *Driver) Channel {
	channel, err := d.RequestChannel(ChannelRequest{Kind: ChannelLink, ID: rm.Any()})
	require.NoError(t, err)
	return channel
}

func requireUnbound(t *testing.T, d *Driver, ch uint32) {
	binding, err := d.Binding(ch)
	require.NoError(t, err)
	require.Equal(t, Binding{}, binding)
}
