package drv

import (
	"fmt"
	"strings"

	"github.com/vkngwrapper/edma3/rm"
)

// TriggerMode is how a logical channel's transfers are started
type TriggerMode int

const (
	// TriggerNone means the channel is disarmed
	TriggerNone TriggerMode = iota
	// TriggerManual starts one transfer each time the channel is armed, through ESR
	TriggerManual
	// TriggerEvent starts a transfer each time the channel's peripheral event fires
	TriggerEvent
	// TriggerQdma starts a transfer each time the channel's trigger word is written
	TriggerQdma
)

func (m TriggerMode) String() string {
	switch m {
	case TriggerNone:
		return "None"
	case TriggerManual:
		return "Manual"
	case TriggerEvent:
		return "Event"
	case TriggerQdma:
		return "Qdma"
	}
	return fmt.Sprintf("TriggerMode(%d)", int(m))
}

// ChannelKind is the kind of logical channel being requested
type ChannelKind int

const (
	// ChannelDma is a DMA channel with its own PaRAM set and TCC
	ChannelDma ChannelKind = iota
	// ChannelQdma is a QDMA channel with its own PaRAM set and TCC
	ChannelQdma
	// ChannelLink is a bare PaRAM set that other channels link to
	ChannelLink
	// ChannelLinkWithTcc is a bare PaRAM set that also reports completion through its own TCC
	ChannelLinkWithTcc
)

func (k ChannelKind) String() string {
	switch k {
	case ChannelDma:
		return "Dma"
	case ChannelQdma:
		return "Qdma"
	case ChannelLink:
		return "Link"
	case ChannelLinkWithTcc:
		return "LinkWithTcc"
	}
	return fmt.Sprintf("ChannelKind(%d)", int(k))
}

// ChannelRequest describes the logical channel RequestChannel should build
type ChannelRequest struct {
	Kind ChannelKind
	// ID is the DMA channel for ChannelDma, the QDMA channel (counting from 0) for ChannelQdma,
	// and the PaRAM set for the link kinds. Link sets must be at or above the DMA channel count.
	ID rm.ID
	// Tcc is the completion code for every kind but ChannelLink. A DMA channel requested with
	// Any uses the TCC the board configuration ties to it, if there is one.
	Tcc rm.ID
	// Queue is the event queue that services a DMA or QDMA channel
	Queue uint32
	// Handler, if set, is registered against the channel's TCC
	Handler rm.TccHandler
}

// Channel is a logical channel returned by RequestChannel
type Channel struct {
	// ID is the logical channel id: DMA channels keep their number, link channels take their
	// PaRAM set number, and QDMA channels are numbered after the last PaRAM set
	ID   uint32
	Slot uint32
	Tcc  rm.OptionalID
}

// Binding is the driver's record of the resources behind a logical channel. The zero value
// is the record of a channel that is not allocated.
type Binding struct {
	Slot rm.OptionalID
	Tcc  rm.OptionalID
	Mode TriggerMode

	// allocatedTcc is the TCC that was allocated when the channel was requested, which
	// MapTccLinkChannel may later replace in Tcc
	allocatedTcc rm.OptionalID
}

// ChainOptions selects the completion behaviors of a chained channel
type ChainOptions struct {
	// FinalChain triggers the chained channel when the whole transfer completes
	FinalChain bool
	// IntermediateChain triggers the chained channel when each intermediate transfer completes
	IntermediateChain bool
	// FinalInterrupt raises the completion interrupt when the whole transfer completes
	FinalInterrupt bool
	// IntermediateInterrupt raises the completion interrupt when each intermediate transfer completes
	IntermediateInterrupt bool
}

// ChannelStatus is a set of flags describing the hardware state of a logical channel
type ChannelStatus int32

const (
	// ChannelEventPending means an event for the channel is latched but not yet serviced
	ChannelEventPending ChannelStatus = 1 << iota
	// ChannelEventMissed means an event arrived while the previous one was still pending
	ChannelEventMissed
	// ChannelTransferComplete means the channel's TCC is pending in this region
	ChannelTransferComplete
)

var channelStatusNames = []struct {
	flag ChannelStatus
	name string
}{
	{ChannelEventPending, "ChannelEventPending"},
	{ChannelEventMissed, "ChannelEventMissed"},
	{ChannelTransferComplete, "ChannelTransferComplete"},
}

func (s ChannelStatus) String() string {
	if s == 0 {
		return "None"
	}

	var names []string
	for _, n := range channelStatusNames {
		if s&n.flag != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// TCErrorClass selects the transfer controller error that SetTcErrorReporting enables or disables
type TCErrorClass int

const (
	// TCErrorBus covers bus errors on reads and writes
	TCErrorBus TCErrorClass = iota
	// TCErrorTransferRequest covers invalid transfer requests
	TCErrorTransferRequest
	// TCErrorMMRAddress covers accesses to invalid register addresses
	TCErrorMMRAddress
	// TCErrorAll covers every class
	TCErrorAll
)

func (c TCErrorClass) String() string {
	switch c {
	case TCErrorBus:
		return "Bus"
	case TCErrorTransferRequest:
		return "TransferRequest"
	case TCErrorMMRAddress:
		return "MMRAddress"
	case TCErrorAll:
		return "All"
	}
	return fmt.Sprintf("TCErrorClass(%d)", int(c))
}

// OpenOptions contains optional settings when opening a driver
type OpenOptions struct {
	Flags rm.OpenFlags
	// ErrorHandler receives controller-wide errors when the driver's instance is the master
	ErrorHandler rm.ErrorHandler
}
