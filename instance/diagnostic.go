package instance

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/frame/driver"
	"github.com/gogpu/frame/internal/logging"
	"github.com/gogpu/frame/telemetry"
)

// ValidationPolicy decides what happens after an error-severity diagnostic
// message has been logged.
type ValidationPolicy interface {
	OnValidationError(err *ValidationError)
}

// ValidationPolicyFunc adapts a function to ValidationPolicy.
type ValidationPolicyFunc func(err *ValidationError)

// OnValidationError calls f(err).
func (f ValidationPolicyFunc) OnValidationError(err *ValidationError) { f(err) }

// PanicPolicy stops execution with the validation error as panic value.
var PanicPolicy ValidationPolicy = ValidationPolicyFunc(func(err *ValidationError) {
	panic(err)
})

// LogPolicy only logs; execution continues.
var LogPolicy ValidationPolicy = ValidationPolicyFunc(func(*ValidationError) {})

// DefaultValidationPolicy returns PanicPolicy in framedebug builds and
// LogPolicy otherwise.
func DefaultValidationPolicy() ValidationPolicy {
	return defaultValidationPolicy
}

// bridge routes backend diagnostic messages into the logger. It is closed
// before its messenger is removed so late messages are dropped.
type bridge struct {
	policy  ValidationPolicy
	metrics *telemetry.Metrics
	closed  atomic.Bool
}

func (b *bridge) descriptor(verbose bool) *driver.MessengerDescriptor {
	severities := driver.SeverityWarning | driver.SeverityError
	if verbose {
		severities |= driver.SeverityVerbose | driver.SeverityInfo
	}
	return &driver.MessengerDescriptor{
		Severities: severities,
		Types:      driver.MessageTypeGeneral | driver.MessageTypeValidation | driver.MessageTypePerformance,
		Callback:   b.handle,
	}
}

func (b *bridge) handle(msg driver.Message) {
	if b.closed.Load() {
		return
	}
	b.metrics.DiagnosticMessage(msg.Severity.String())

	header := fmt.Sprintf("validation: %s (%d)", msg.IDName, msg.IDNumber)
	log := logging.Logger()

	switch msg.Severity {
	case driver.SeverityError:
		log.Error(header)
		log.Error(msg.Text)
		b.policy.OnValidationError(&ValidationError{Message: msg})
	case driver.SeverityWarning:
		log.Warn(header)
		log.Warn(msg.Text)
	case driver.SeverityInfo:
		log.Info(header)
		log.Info(msg.Text)
	case driver.SeverityVerbose:
		logging.Trace(header)
		logging.Trace(msg.Text)
	default:
		log.Debug(header, slog.Any("severity", msg.Severity))
	}
}
