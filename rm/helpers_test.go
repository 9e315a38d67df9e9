package rm

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slog"
)

func testConfig() GlobalConfig {
	return GlobalConfig{
		NumDmaChannels:  64,
		NumQdmaChannels: 8,
		NumTccs:         64,
		NumParamSets:    128,
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
	}
}

func ownEverything(region uint32, master bool) InstanceConfig {
	return InstanceConfig{
		Region: region,
		Master: master,
		Owned: ResourceWords{
			DmaChannels:  []uint32{0xFFFFFFFF, 0xFFFFFFFF},
			QdmaChannels: []uint32{0xFF},
			Tccs:         []uint32{0xFFFFFFFF, 0xFFFFFFFF},
			ParamSets:    []uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
		},
	}
}

type testHarness struct {
	sim        *regs.Simulator
	tcs        []*regs.SimulatedTC
	registry   *Registry
	controller *Controller
}

func newHarness(t *testing.T) *testHarness {
	return newHarnessWithWindow(t, nil)
}

// newHarnessWithWindow creates controller 0 on a fresh simulator, seen through wrap if it is set
func newHarnessWithWindow(t *testing.T, wrap func(sim *regs.Simulator) regs.Window) *testHarness {
	h := &testHarness{
		sim: regs.NewSimulator(regs.SimulatorOptions{ChannelMapping: true}),
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

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	h.registry = NewRegistry(logger)

	controller, err := h.registry.Create(0, testConfig(), cc, tcWindows, CreateOptions{})
	require.NoError(t, err)
	h.controller = controller

	return h
}

func (h *testHarness) open(t *testing.T, config InstanceConfig, options OpenOptions) *Instance {
	instance, err := h.controller.Open(config, options)
	require.NoError(t, err)
	return instance
}
