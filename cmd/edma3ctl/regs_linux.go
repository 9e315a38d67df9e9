//go:build linux

package main

import (
	"fmt"
	"strconv"

	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/vkngwrapper/edma3/edmautils"
	"github.com/vkngwrapper/edma3/regs"
	"golang.org/x/exp/slices"
)

var defaultRegisters = []uint32{
	regs.PID,
	regs.CCCFG,
	regs.QUEPRI,
	uint32(regs.EMR),
	uint32(regs.EMR) + 4,
	regs.QEMR,
	regs.CCERR,
}

var regsCmd = &cobra.Command{
	Use:   "regs [offset...]",
	Short: "Read channel controller registers through /dev/mem",
	Long: `regs maps the channel controller at EDMA3_CC_BASE through /dev/mem and prints the ` +
		`registers at the given byte offsets, or a summary of identification and error ` +
		`registers when none are given. It needs root.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		offsets, err := parseOffsets(args)
		if err != nil {
			return err
		}

		window, err := regs.OpenDevMem(config.CCBase, int(regs.CCSize))
		if err != nil {
			return err
		}
		defer window.Close()

		for _, offset := range offsets {
			fmt.Fprintf(cmd.OutOrStdout(), "0x%04x: 0x%08x\n", offset, window.Read32(offset))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(regsCmd)
}

// parseOffsets returns the sorted, de-duplicated register offsets named by args
func parseOffsets(args []string) ([]uint32, error) {
	if len(args) == 0 {
		return slices.Clone(defaultRegisters), nil
	}

	offsets := make([]uint32, 0, len(args))
	for _, arg := range args {
		value, err := strconv.ParseUint(arg, 0, 32)
		if err != nil {
			return nil, errors.Wrapf(edmautils.ErrInvalidParam, "offset %q is not a number", arg)
		}
		offset := uint32(value)
		if !edmautils.IsAligned(offset, 4) || offset >= regs.CCSize {
			return nil, errors.Wrapf(edmautils.ErrInvalidParam, "offset 0x%x is unaligned or outside the controller", offset)
		}
		offsets = append(offsets, offset)
	}

	slices.Sort(offsets)
	return slices.Compact(offsets), nil
}
