package rm

import (
	"fmt"
	"strings"
)

type flagName[T ~int32] struct {
	flag T
	name string
}

func flagsToString[T ~int32](flags T, names []flagName[T]) string {
	if flags == 0 {
		return "None"
	}

	var sb strings.Builder
	remaining := flags
	for _, n := range names {
		if flags&n.flag == 0 {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(n.name)
		remaining &^= n.flag
	}
	if remaining != 0 {
		if sb.Len() > 0 {
			sb.WriteString("|")
		}
		sb.WriteString(fmt.Sprintf("0x%x", int32(remaining)))
	}
	return sb.String()
}

// CreateFlags indicate specific controller behaviors to activate or deactivate
type CreateFlags int32

const (
	// CreateSkipGlobalInit leaves the controller-wide registers alone on Create, for
	// processors that are not the one responsible for bringing the controller up
	CreateSkipGlobalInit CreateFlags = 1 << iota
)

var createFlagNames = []flagName[CreateFlags]{
	{CreateSkipGlobalInit, "CreateSkipGlobalInit"},
}

func (f CreateFlags) String() string {
	return flagsToString(f, createFlagNames)
}

// OpenFlags indicate specific instance behaviors to activate or deactivate
type OpenFlags int32

const (
	// OpenExternallySynchronized ensures that this instance will not be synchronized internally.
	// The consumer must guarantee it is used from only one thread at a time.
	OpenExternallySynchronized OpenFlags = 1 << iota
	// OpenStaticQueueMapping fixes the channel to event queue assignment at request time.
	// Remapping a channel afterwards fails with ErrFeatureUnsupported.
	OpenStaticQueueMapping
	// OpenKeepParamContents stops PaRAM sets from being zeroed when allocated or freed
	OpenKeepParamContents
)

var openFlagNames = []flagName[OpenFlags]{
	{OpenExternallySynchronized, "OpenExternallySynchronized"},
	{OpenStaticQueueMapping, "OpenStaticQueueMapping"},
	{OpenKeepParamContents, "OpenKeepParamContents"},
}

func (f OpenFlags) String() string {
	return flagsToString(f, openFlagNames)
}

// CreateOptions contains optional settings when creating a controller
type CreateOptions struct {
	Flags CreateFlags
	// Masker masks the controller's interrupts around register updates the interrupt handlers
	// also touch. When nil, a mutex shared with the handlers is used.
	Masker InterruptMasker
}

// OpenOptions contains optional settings when opening an instance
type OpenOptions struct {
	Flags OpenFlags
	// ErrorHandler receives controller-wide errors. It is only used by the master instance.
	ErrorHandler ErrorHandler
}
