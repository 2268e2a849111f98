package lsm303

import "errors"

var (
	// ErrBusTransaction reports a failed write or read request (device absent, NACK).
	ErrBusTransaction = errors.New("lsm303: bus transaction failed")

	// ErrDeviceUnresponsive reports that the requested bytes never arrived.
	ErrDeviceUnresponsive = errors.New("lsm303: device unresponsive")

	// ErrInvalidConfiguration reports a gain or data rate outside the supported set.
	ErrInvalidConfiguration = errors.New("lsm303: invalid configuration")
)
