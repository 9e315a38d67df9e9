package main

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/edma3/drv"
	"github.com/vkngwrapper/edma3/edmautils"
	"golang.org/x/exp/slog"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestRunMemcpy(t *testing.T) {
	s, err := parseSettings(mapLookup(nil))
	require.NoError(t, err)

	report, err := runMemcpy(discardLogger(), s, memcpyOptions{Channels: 3, Size: 64, Src: 0x80000000, Dest: 0x80100000})
	require.NoError(t, err)
	require.Len(t, report.Channels, 3)

	last := report.Channels[2]
	tcc, ok := last.Tcc.Get()
	require.True(t, ok)
	require.Equal(t, []uint32{tcc}, report.Completed)
	require.Equal(t, drv.ChannelStatus(0), report.Status)

	_, err = runMemcpy(discardLogger(), s, memcpyOptions{Channels: 0, Size: 64})
	require.ErrorIs(t, err, edmautils.ErrInvalidParam)
}

func TestBuildStats(t *testing.T) {
	s, err := parseSettings(mapLookup(nil))
	require.NoError(t, err)

	stats, err := buildStats(discardLogger(), s, statsOptions{Dma: 2, Qdma: 1, Links: 3, Detailed: true})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(stats, "{"))
	require.Contains(t, stats, "DmaChannel")

	_, err = buildStats(discardLogger(), s, statsOptions{Qdma: 9})
	require.ErrorIs(t, err, edmautils.ErrAllUnavailable)
}
