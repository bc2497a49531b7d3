package service

import "errors"

// Sentinel errors mapped to HTTP statuses at the handler boundary.
var (
	// ErrTenantNotFound means the remote store has no tenant with the
	// requested identifier.
	ErrTenantNotFound = errors.New("tenant not found in remote store")

	// ErrRemoteUnavailable means the remote store could not be reached.
	// The operation is not retried automatically; retry is the caller's
	// responsibility.
	ErrRemoteUnavailable = errors.New("remote store unavailable")

	// ErrUploadInFlight means an upload cycle for the tenant is already
	// running. Concurrent triggers are rejected, not queued.
	ErrUploadInFlight = errors.New("upload already in flight")
)
