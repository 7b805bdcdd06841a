// Copyright (C) 2025 TrueValue AI (engineering@truevalueai.com)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package llm

import (
	"errors"
	"fmt"
	"net/http"
)

// ModelError reports that the model backend could not serve a request:
// authentication failure, quota exhaustion, transport error, or a 5xx from
// the provider. It is fatal for the current query — there is no degraded
// text-only answer to fall back to.
//
// Thread Safety: ModelError is immutable once constructed.
type ModelError struct {
	// Status is the HTTP status returned by the provider, or 0 for
	// transport-level failures where no response was received.
	Status int

	// Transient reports whether retrying the same request later could
	// succeed (rate limits, 5xx, transport errors). Auth and bad-request
	// failures are not transient.
	Transient bool

	// Message is the provider's error text, if any.
	Message string

	// Err is the underlying error, if any.
	Err error
}

func (e *ModelError) Error() string {
	switch {
	case e.Status != 0 && e.Message != "":
		return fmt.Sprintf("model unavailable (status %d): %s", e.Status, e.Message)
	case e.Status != 0:
		return fmt.Sprintf("model unavailable (status %d)", e.Status)
	case e.Err != nil:
		return fmt.Sprintf("model unavailable: %v", e.Err)
	default:
		return "model unavailable"
	}
}

func (e *ModelError) Unwrap() error { return e.Err }

// IsModelUnavailable reports whether err is (or wraps) a ModelError.
func IsModelUnavailable(err error) bool {
	var me *ModelError
	return errors.As(err, &me)
}

// newStatusError classifies a non-200 provider response.
func newStatusError(status int, message string) *ModelError {
	transient := status == http.StatusTooManyRequests ||
		status == http.StatusRequestTimeout ||
		status >= 500
	return &ModelError{Status: status, Transient: transient, Message: message}
}
