// Package errors defines the stable error kinds shared across the service
// layer. Callers classify failures with errors.Is against these sentinels;
// services add detail with fmt.Errorf("%w: ...").
package errors

import (
	"fmt"
)

var (
	// ErrUnauthenticated means the credential is absent or garbled.
	ErrUnauthenticated = fmt.Errorf("unauthenticated")
	// ErrInvalidCredential means the credential failed signature or claim checks.
	ErrInvalidCredential = fmt.Errorf("invalid credential")
	// ErrForbidden means the caller is authenticated but lacks the required role.
	ErrForbidden = fmt.Errorf("forbidden")
	// ErrNotFound means an entity id did not resolve.
	ErrNotFound = fmt.Errorf("not found")
	// ErrConflict means a uniqueness or state violation, e.g. a duplicate
	// membership row or company name.
	ErrConflict = fmt.Errorf("conflict")
	// ErrInvalidInput means a structural validation failure.
	ErrInvalidInput = fmt.Errorf("invalid input")
	// ErrUnavailable means a downstream store is unreachable.
	ErrUnavailable = fmt.Errorf("unavailable")
)
