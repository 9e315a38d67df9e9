package main

import (
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/edma3/drv"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/param"
	"github.com/vkngwrapper/edma3/regs"
	"github.com/vkngwrapper/edma3/rm"
	"golang.org/x/exp/slog"
)

type memcpyOptions struct {
	Channels int
	Size     uint16
	Src      uint32
	Dest     uint32
}

type memcpyReport struct {
	Channels  []drv.Channel
	Completed []uint32
	Status    drv.ChannelStatus
}

var memcpyFlags = memcpyOptions{
	Channels: 1,
	Size:     256,
	Src:      0x80000000,
	Dest:     0x80100000,
}

var memcpyCmd = &cobra.Command{
	Use:   "memcpy",
	Short: "Copy through a chain of DMA channels on a simulated controller",
	Long: `memcpy requests a chain of DMA channels on a simulated AM335x controller, each copying ` +
		`one block, starts the first one manually and reports the completion delivered to the ` +
		`last channel's handler.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		report, err := runMemcpy(logger, config, memcpyFlags)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, channel := range report.Channels {
			fmt.Fprintf(out, "channel %d: param set %d, tcc %s\n", channel.ID, channel.Slot, channel.Tcc)
		}
		fmt.Fprintf(out, "completed tccs: %v\n", report.Completed)
		fmt.Fprintf(out, "final channel status: %s\n", report.Status)
		return nil
	},
}

func init() {
	memcpyCmd.Flags().IntVar(&memcpyFlags.Channels, "channels", memcpyFlags.Channels, "number of chained channels")
	memcpyCmd.Flags().Uint16Var(&memcpyFlags.Size, "size", memcpyFlags.Size, "bytes copied by each channel")
	memcpyCmd.Flags().Uint32Var(&memcpyFlags.Src, "src", memcpyFlags.Src, "source address of the first block")
	memcpyCmd.Flags().Uint32Var(&memcpyFlags.Dest, "dest", memcpyFlags.Dest, "destination address of the first block")
	rootCmd.AddCommand(memcpyCmd)
}

func runMemcpy(logger *slog.Logger, s settings, options memcpyOptions) (report memcpyReport, err error) {
	if options.Channels < 1 || options.Channels > int(rm.MaxDmaChannels) {
		return report, errors.Wrapf(edmautils.ErrInvalidParam, "%d channels requested", options.Channels)
	}

	e, err := openEngine(logger, s, true, regs.SimulatorOptions{ChannelMapping: true, AutoComplete: true})
	if err != nil {
		return report, err
	}
	defer func() {
		err = errors.CombineErrors(err, e.freeAll(report.Channels))
		err = errors.CombineErrors(err, e.close())
	}()

	var completed []uint32
	handler := rm.TccHandlerFunc(func(tcc uint32, status rm.TransferStatus) {
		logger.Info("transfer event", slog.Int("Tcc", int(tcc)), slog.String("Status", status.String()))
		if status == rm.TransferComplete {
			completed = append(completed, tcc)
		}
	})

	d := e.driver
	for i := 0; i < options.Channels; i++ {
		request := drv.ChannelRequest{Kind: drv.ChannelDma, ID: rm.Any(), Tcc: rm.Any(), Queue: s.Queue}
		if i == options.Channels-1 {
			request.Handler = handler
		}
		channel, err := d.RequestChannel(request)
		if err != nil {
			return report, err
		}
		report.Channels = append(report.Channels, channel)

		offset := uint32(i) * uint32(options.Size)
		err = d.SetSrcParams(channel.ID, options.Src+offset, param.AddrModeIncr, param.FifoWidth8Bit)
		if err != nil {
			return report, err
		}
		err = d.SetDestParams(channel.ID, options.Dest+offset, param.AddrModeIncr, param.FifoWidth8Bit)
		if err != nil {
			return report, err
		}
		err = d.SetTransferParams(channel.ID, options.Size, 1, 1, 0, param.SyncA)
		if err != nil {
			return report, err
		}
	}

	for i := 0; i+1 < len(report.Channels); i++ {
		err = d.ChainChannel(report.Channels[i].ID, report.Channels[i+1].ID, drv.ChainOptions{FinalChain: true})
		if err != nil {
			return report, err
		}
	}

	last := report.Channels[len(report.Channels)-1]
	err = d.SetOptField(last.ID, param.OptTCIntEn, 1)
	if err != nil {
		return report, err
	}

	err = d.EnableTransfer(report.Channels[0].ID, drv.TriggerManual)
	if err != nil {
		return report, err
	}
	e.controller.HandleCompletion()

	report.Completed = completed
	report.Status, err = d.GetChannelStatus(last.ID)
	return report, err
}
