package field

import (
	"errors"
	"fmt"
)

// Startup errors. None of them are transient, so none are retried.
var (
	// ErrResourceAllocation indicates the device could not allocate the particle buffer.
	ErrResourceAllocation = errors.New("field: particle buffer allocation failed")

	// ErrEntryNotFound indicates a kernel entry point missing from the compute program.
	ErrEntryNotFound = errors.New("field: compute entry point not found")

	// ErrInvalidConfiguration indicates a configuration rejected before any device work.
	ErrInvalidConfiguration = errors.New("field: invalid configuration")
)

// EntryError wraps ErrEntryNotFound with the entry name and the device that was asked.
type EntryError struct {
	Entry  string
	Device string
}

func (e *EntryError) Error() string {
	return fmt.Sprintf("%s: %q on device %s", ErrEntryNotFound.Error(), e.Entry, e.Device)
}

func (e *EntryError) Unwrap() error {
	return ErrEntryNotFound
}

// ConfigError wraps ErrInvalidConfiguration with the offending field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfiguration.Error(), e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// AllocationError wraps ErrResourceAllocation with the requested size.
type AllocationError struct {
	Bytes   int64
	Wrapped error
}

func (e *AllocationError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %d bytes: %v", ErrResourceAllocation.Error(), e.Bytes, e.Wrapped)
	}
	return fmt.Sprintf("%s: %d bytes", ErrResourceAllocation.Error(), e.Bytes)
}

func (e *AllocationError) Unwrap() []error {
	if e.Wrapped != nil {
		return []error{ErrResourceAllocation, e.Wrapped}
	}
	return []error{ErrResourceAllocation}
}
