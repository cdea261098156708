package models

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is the parent of every validation error returned before I/O.
var ErrInvalidArgument = errors.New("invalid argument")

// Sentinel errors for the manual log API.
var (
	ErrMissingEntity = fmt.Errorf("%w: entity is required", ErrInvalidArgument)
	ErrMissingAction = fmt.Errorf("%w: action is required", ErrInvalidArgument)
	ErrMissingActor  = fmt.Errorf("%w: actor id is required", ErrInvalidArgument)
	ErrInvalidAction = fmt.Errorf("%w: action must be Create, Update, Delete or SoftDelete", ErrInvalidArgument)
)

// ErrInvalidTimeRange indicates a query whose lower bound is after its upper bound.
var ErrInvalidTimeRange = fmt.Errorf("%w: from must not be after to", ErrInvalidArgument)

// ErrFieldTooLong returns an error indicating a field exceeds its maximum length.
func ErrFieldTooLong(field string, maxLen int) error {
	return fmt.Errorf("%w: %s exceeds maximum length of %d", ErrInvalidArgument, field, maxLen)
}

// ErrDuplicateEntry is returned when an audit entry with the same ID already exists.
var ErrDuplicateEntry = errors.New("audit entry already exists")

// ErrMissingEntityName is returned by queries that require an entity name.
var ErrMissingEntityName = fmt.Errorf("%w: entity name is required", ErrInvalidArgument)

// ErrMissingTenant is returned by tenant-scoped queries without a tenant.
var ErrMissingTenant = fmt.Errorf("%w: tenant id is required", ErrInvalidArgument)
