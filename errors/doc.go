/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

/*
Package errors provides semantic error types for the entity mapper.

The package defines common error scenarios with specific types that can be
checked using the standard errors.Is() function or the provided helper functions.

Common Errors:

	var (
	    ErrNotFound        = errors.New("entity not found")
	    ErrAlreadyExists   = errors.New("entity already exists")
	    ErrInvalidInput    = errors.New("invalid input")
	    ErrConditionFailed = errors.New("condition check failed")
	    ErrStorage         = errors.New("storage operation failed")
	    ErrReadonly        = errors.New("mapper is readonly")
	    ErrConfig          = errors.New("invalid configuration")
	)

Property errors are raised by entity field access and validation. Each one
matches ErrProperty and one of ErrUndefinedProperty, ErrDeprecatedProperty,
ErrRefuseUpdateProperty or ErrUnexpectedPropertyValue:

	if err := user.Set("id", 2); errors.IsRefuseUpdate(err) {
	    // primary keys cannot change once persisted
	}

	if err := user.Validate(); errors.IsUnexpectedValue(err) {
	    var ve *errors.ValidationError
	    if stderrors.As(err, &ve) {
	        // nested field that failed, e.g. "address.zip"
	    }
	}

Usage:

	user, err := mapper.FindOrFail(ctx, 123)
	if err != nil {
	    if errors.IsNotFound(err) {
	        return nil, fmt.Errorf("user %d does not exist", 123)
	    }
	    return nil, err
	}

The error types implement the error interface and support wrapping,
making them compatible with Go's standard error handling patterns.
*/
package errors
