package edmautils

import "github.com/cockroachdb/errors"

// ErrPowerOfTwo is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var ErrPowerOfTwo error = errors.New("number must be a power of two")

var (
	// ErrInvalidParam is returned when an id is out of range, a field value does not fit its
	// bit width, or a requested trigger mode does not match the logical channel kind
	ErrInvalidParam error = errors.New("invalid parameter")
	// ErrNotOwned is returned when a resource outside the instance's partition is requested or freed
	ErrNotOwned error = errors.New("resource is not owned by this instance")
	// ErrResourceUnavailable is returned when a specific resource is already allocated
	ErrResourceUnavailable error = errors.New("resource is already allocated")
	// ErrAllUnavailable is returned when no resource of the requested kind is free
	ErrAllUnavailable error = errors.New("no resource of the requested kind is available")
	// ErrAlreadyFree is returned when freeing a resource that is not allocated
	ErrAlreadyFree error = errors.New("resource is already free")
	// ErrAlreadyRegistered is returned when a TCC already has a callback
	ErrAlreadyRegistered error = errors.New("a callback is already registered for this tcc")
	// ErrAddressNotAligned is returned when a FIFO mode address is not 32-byte aligned
	ErrAddressNotAligned error = errors.New("address is not aligned for fifo addressing")
	// ErrFifoWidthUnsupported is returned when a FIFO width exceeds the serving transfer controller's burst size
	ErrFifoWidthUnsupported error = errors.New("fifo width is not supported by the transfer controller")
	// ErrFeatureUnsupported is returned when an operation needs a hardware feature this controller lacks
	ErrFeatureUnsupported error = errors.New("feature is not supported by this controller")
	// ErrInvalidState is returned when the controller or instance is not in a state that permits the operation
	ErrInvalidState error = errors.New("object is in an invalid state for this operation")
	// ErrResourcesAllocated is returned when closing an instance that still holds allocations
	ErrResourcesAllocated error = errors.New("instance still holds allocated resources")
	// ErrMasterExists is returned when a second master instance is opened on one controller
	ErrMasterExists error = errors.New("a master instance is already open on this controller")
	// ErrMaxInstances is returned when every shadow region of a controller already has an instance
	ErrMaxInstances error = errors.New("maximum number of instances already opened")
	// ErrNotAllocated is returned when an operation targets a logical channel that was never requested
	ErrNotAllocated error = errors.New("resource has not been allocated")
)
