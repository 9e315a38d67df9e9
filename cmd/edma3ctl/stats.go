package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/edma3/drv"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

type statsOptions struct {
	Dma      int
	Qdma     int
	Links    int
	Detailed bool
}

var statsFlags statsOptions

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the resource statistics of an instance partition as JSON",
	Long: `stats opens an instance with the AM335x default partition on a simulated controller, ` +
		`requests the given number of channels of each kind and prints the instance's resource ` +
		`statistics.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		stats, err := buildStats(logger, config, statsFlags)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), stats)
		return nil
	},
}

func init() {
	statsCmd.Flags().IntVar(&statsFlags.Dma, "dma", 0, "number of DMA channels to request first")
	statsCmd.Flags().IntVar(&statsFlags.Qdma, "qdma", 0, "number of QDMA channels to request first")
	statsCmd.Flags().IntVar(&statsFlags.Links, "links", 0, "number of link channels to request first")
	statsCmd.Flags().BoolVar(&statsFlags.Detailed, "detailed", false, "list every allocated id")
	rootCmd.AddCommand(statsCmd)
}

func buildStats(logger *slog.Logger, s settings, options statsOptions) (stats string, err error) {
	e, err := openEngine(logger, s, false, regs.SimulatorOptions{ChannelMapping: true})
	if err != nil {
		return "", err
	}

	var channels []drv.Channel
	defer func() {
		err = errors.CombineErrors(err, e.freeAll(channels))
		err = errors.CombineErrors(err, e.close())
	}()

	requests := []struct {
		kind  drv.ChannelKind
		count int
	}{
		{drv.ChannelDma, options.Dma},
		{drv.ChannelQdma, options.Qdma},
		{drv.ChannelLink, options.Links},
	}
	for _, request := range requests {
		for i := 0; i < request.count; i++ {
			channel, err := e.driver.RequestChannel(drv.ChannelRequest{
				Kind:  request.kind,
				ID:    rm.Any(),
				Tcc:   rm.Any(),
				Queue: s.Queue,
			})
			if err != nil {
				return "", errors.Wrapf(err, "%s channel %d of %d", request.kind, i+1, request.count)
			}
			channels = append(channels, channel)
		}
	}

	return e.driver.Instance().BuildStatsString(options.Detailed), nil
}
