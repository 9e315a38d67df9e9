package rm

import "fmt"

// TransferStatus is reported to a TccHandler when the hardware signals a TCC
type TransferStatus int

const (
	// TransferComplete means the transfer reporting through the TCC completed
	TransferComplete TransferStatus = iota
	// DmaEventMissed means a DMA channel's event arrived while the previous one was still pending
	DmaEventMissed
	// QdmaEventMissed means a QDMA channel's trigger arrived while the previous one was still pending
	QdmaEventMissed
)

func (s TransferStatus) String() string {
	switch s {
	case TransferComplete:
		return "TransferComplete"
	case DmaEventMissed:
		return "DmaEventMissed"
	case QdmaEventMissed:
		return "QdmaEventMissed"
	}
	return fmt.Sprintf("TransferStatus(%d)", int(s))
}

// TccHandler receives completion and missed-event notifications for one TCC. TransferEvent is
// called from the interrupt handlers and must not block.
type TccHandler interface {
	TransferEvent(tcc uint32, status TransferStatus)
}

// TccHandlerFunc adapts a function to TccHandler
type TccHandlerFunc func(tcc uint32, status TransferStatus)

func (f TccHandlerFunc) TransferEvent(tcc uint32, status TransferStatus) {
	f(tcc, status)
}

// ErrorClass is reported to an ErrorHandler for controller-wide errors
type ErrorClass int

const (
	// QueueThresholdExceeded means an event queue crossed its watermark; the id is the queue
	QueueThresholdExceeded ErrorClass = iota
	// TccOverflow means more completion codes were outstanding than the controller can track
	TccOverflow
	// TCReadError means a transfer controller reported a bus error while reading; the id is the TC
	TCReadError
	// TCWriteError means a transfer controller reported a bus error while writing; the id is the TC
	TCWriteError
	// TCTransferRequestError means a transfer controller received an invalid transfer request
	TCTransferRequestError
	// TCMMRAddressError means a transfer controller's registers were accessed at an invalid address
	TCMMRAddressError
)

func (c ErrorClass) String() string {
	switch c {
	case QueueThresholdExceeded:
		return "QueueThresholdExceeded"
	case TccOverflow:
		return "TccOverflow"
	case TCReadError:
		return "TCReadError"
	case TCWriteError:
		return "TCWriteError"
	case TCTransferRequestError:
		return "TCTransferRequestError"
	case TCMMRAddressError:
		return "TCMMRAddressError"
	}
	return fmt.Sprintf("ErrorClass(%d)", int(c))
}

// ErrorHandler receives controller-wide error notifications from the interrupt handlers. It
// must not block.
type ErrorHandler interface {
	ControllerError(class ErrorClass, id uint32)
}

// ErrorHandlerFunc adapts a function to ErrorHandler
type ErrorHandlerFunc func(class ErrorClass, id uint32)

func (f ErrorHandlerFunc) ControllerError(class ErrorClass, id uint32) {
	f(class, id)
}

// InterruptMasker masks the controller's interrupts. Mask returns the state that Restore
// puts back.
type InterruptMasker interface {
	Mask() uint32
	Restore(state uint32)
}
