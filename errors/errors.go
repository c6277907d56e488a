/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrAlreadyExists is returned when attempting to create an entity that already exists
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional update fails
	ErrConditionFailed = errors.New("condition check failed")

	// ErrStorage is returned when a storage collaborator reports a failed operation
	ErrStorage = errors.New("storage operation failed")

	// ErrReadonly is returned when writing through a read-only mapper
	ErrReadonly = errors.New("mapper is readonly")

	// ErrConfig is returned for invalid mapper or schema configuration
	ErrConfig = errors.New("invalid configuration")
)

// Property error kinds. Every PropertyError matches ErrProperty and its own kind.
var (
	ErrProperty                = errors.New("property error")
	ErrUndefinedProperty       = errors.New("undefined property")
	ErrDeprecatedProperty      = errors.New("deprecated property")
	ErrRefuseUpdateProperty    = errors.New("refuse update property")
	ErrUnexpectedPropertyValue = errors.New("unexpected property value")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// AlreadyExistsError represents an error when an entity already exists
type AlreadyExistsError struct {
	Type string
	Key  string
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Type, e.Key)
}

func (e *AlreadyExistsError) Is(target error) bool {
	return target == ErrAlreadyExists
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// PropertyError reports a problem with a single entity field. Kind is one of
// the property sentinels; Cause, when set, is the codec or validator error
// behind an unexpected value.
type PropertyError struct {
	Class    string
	Property string
	Kind     error
	Reason   string
	Cause    error
}

func (e *PropertyError) Error() string {
	msg := e.Reason
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Class != "" {
		return fmt.Sprintf("%s: property %q, %s", e.Class, e.Property, msg)
	}
	return fmt.Sprintf("property %q, %s", e.Property, msg)
}

func (e *PropertyError) Is(target error) bool {
	return target == ErrProperty || target == e.Kind
}

func (e *PropertyError) Unwrap() error {
	return e.Cause
}

// StorageError wraps a failure reported by a storage collaborator during a
// mapper operation.
type StorageError struct {
	Class     string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s failed: %v", e.Class, e.Operation, e.Cause)
	}
	return fmt.Sprintf("%s: %s failed", e.Class, e.Operation)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorage
}

func (e *StorageError) Unwrap() error {
	return e.Cause
}

// ReadonlyError is returned by save and destroy on a read-only mapper.
type ReadonlyError struct {
	Class     string
	Operation string
}

func (e *ReadonlyError) Error() string {
	return fmt.Sprintf("%s is readonly, %s refused", e.Class, e.Operation)
}

func (e *ReadonlyError) Is(target error) bool {
	return target == ErrReadonly
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewAlreadyExistsError creates a new AlreadyExistsError
func NewAlreadyExistsError(entityType, key string) error {
	return &AlreadyExistsError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewUndefinedPropertyError creates a PropertyError for an unknown field
func NewUndefinedPropertyError(class, property string) error {
	return &PropertyError{Class: class, Property: property, Kind: ErrUndefinedProperty, Reason: "undefined property"}
}

// NewDeprecatedPropertyError creates a PropertyError for a deprecated field
func NewDeprecatedPropertyError(class, property string) error {
	return &PropertyError{Class: class, Property: property, Kind: ErrDeprecatedProperty, Reason: "is deprecated"}
}

// NewRefuseUpdateError creates a PropertyError for a field that cannot change after persisting
func NewRefuseUpdateError(class, property string) error {
	return &PropertyError{Class: class, Property: property, Kind: ErrRefuseUpdateProperty, Reason: "refuse update"}
}

// NewUnexpectedValueError creates a PropertyError for a rejected value
func NewUnexpectedValueError(class, property, reason string, cause error) error {
	return &PropertyError{Class: class, Property: property, Kind: ErrUnexpectedPropertyValue, Reason: reason, Cause: cause}
}

// NewStorageError creates a new StorageError
func NewStorageError(class, operation string, cause error) error {
	return &StorageError{Class: class, Operation: operation, Cause: cause}
}

// NewReadonlyError creates a new ReadonlyError
func NewReadonlyError(class, operation string) error {
	return &ReadonlyError{Class: class, Operation: operation}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if an error is an already exists error
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsProperty checks if an error is any property error
func IsProperty(err error) bool {
	return errors.Is(err, ErrProperty)
}

// IsUndefinedProperty checks if an error is an undefined property error
func IsUndefinedProperty(err error) bool {
	return errors.Is(err, ErrUndefinedProperty)
}

// IsDeprecatedProperty checks if an error is a deprecated property error
func IsDeprecatedProperty(err error) bool {
	return errors.Is(err, ErrDeprecatedProperty)
}

// IsRefuseUpdate checks if an error is a refuse update error
func IsRefuseUpdate(err error) bool {
	return errors.Is(err, ErrRefuseUpdateProperty)
}

// IsUnexpectedValue checks if an error is an unexpected property value error
func IsUnexpectedValue(err error) bool {
	return errors.Is(err, ErrUnexpectedPropertyValue)
}

// IsStorage checks if an error is a storage failure
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}

// IsReadonly checks if an error is a readonly error
func IsReadonly(err error) bool {
	return errors.Is(err, ErrReadonly)
}

// IsConfig checks if an error is a configuration error
func IsConfig(err error) bool {
	return errors.Is(err, ErrConfig)
}
