package instance

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gogpu/frame/driver"
)

// Instance errors.
var (
	// ErrUnsupported is returned when a requested layer or extension is not
	// installed.
	ErrUnsupported = errors.New("instance: requested layer or extension unsupported")

	// ErrConnection is returned when the backend fails to create the
	// connection or bind its entry points.
	ErrConnection = errors.New("instance: backend connection failed")

	// ErrEnumeration is returned when physical device enumeration fails.
	ErrEnumeration = errors.New("instance: physical device enumeration failed")

	// ErrDiagnostic is returned when the diagnostic bridge cannot be installed.
	ErrDiagnostic = errors.New("instance: diagnostic bridge install failed")

	// ErrValidationTriggered is raised for error-severity diagnostic messages.
	ErrValidationTriggered = errors.New("instance: validation error triggered")

	// ErrAlreadyCreated is returned by Create on a Ready instance.
	ErrAlreadyCreated = errors.New("instance: already created")

	// ErrDestroyed is returned by Create after Destroy.
	ErrDestroyed = errors.New("instance: destroyed")
)

// UnsupportedError lists the requested names the backend does not provide.
type UnsupportedError struct {
	Layers     []string
	Extensions []string
}

func (e *UnsupportedError) Error() string {
	var parts []string
	if len(e.Layers) > 0 {
		parts = append(parts, "layers ["+strings.Join(e.Layers, ", ")+"]")
	}
	if len(e.Extensions) > 0 {
		parts = append(parts, "extensions ["+strings.Join(e.Extensions, ", ")+"]")
	}
	return fmt.Sprintf("instance: unsupported %s", strings.Join(parts, " and "))
}

// Unwrap returns ErrUnsupported.
func (e *UnsupportedError) Unwrap() error { return ErrUnsupported }

func (e *UnsupportedError) empty() bool {
	return len(e.Layers) == 0 && len(e.Extensions) == 0
}

// ValidationError is an error-severity diagnostic message.
type ValidationError struct {
	Message driver.Message
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("instance: validation error %s (%d): %s",
		e.Message.IDName, e.Message.IDNumber, e.Message.Text)
}

// Unwrap returns ErrValidationTriggered.
func (e *ValidationError) Unwrap() error { return ErrValidationTriggered }
