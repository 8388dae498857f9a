package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"led-state-controller/internal/logger"
)

// DiagnosticPublisher publishes a diagnostic code and message somewhere an
// operator can see it
type DiagnosticPublisher interface {
	PublishDiagnostic(ctx context.Context, code int, message string) error
}

// ErrorHandler provides centralized error handling
type ErrorHandler struct {
	diagnosticPublisher DiagnosticPublisher
	log                 logger.ILogger
}

// NewErrorHandler creates a new error handler. publisher may be nil.
func NewErrorHandler(publisher DiagnosticPublisher, log logger.ILogger) *ErrorHandler {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &ErrorHandler{
		diagnosticPublisher: publisher,
		log:                 log,
	}
}

// SetPublisher replaces the diagnostic publisher
func (h *ErrorHandler) SetPublisher(publisher DiagnosticPublisher) {
	h.diagnosticPublisher = publisher
}

// Handle logs err according to its type and severity and publishes a diagnostic
func (h *ErrorHandler) Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	var (
		cfgMissing *ConfigurationMissingError
		transport  *TransportError
		command    *CommandError
		mqttErr    *MQTTError
		eventErr   *EventError
		cfgErr     *ConfigError
		validation *ValidationError
		base       *ControllerError
	)

	switch {
	case stderrors.As(err, &cfgMissing):
		h.logBySeverity("Controller", cfgMissing.Severity, err)
		h.publish(ctx, cfgMissing.Code, "Base address not resolved")
	case stderrors.As(err, &transport):
		h.logBySeverity("Device", transport.Severity, err)
		h.publish(ctx, transport.Code, fmt.Sprintf("Status read failed: %s", transport.URL))
	case stderrors.As(err, &command):
		h.logBySeverity("Command", command.Severity, err)
		h.publish(ctx, command.Code, fmt.Sprintf("Command %s failed: %s", command.Command, command.Reason()))
	case stderrors.As(err, &mqttErr):
		// not published: the diagnostic publisher is the MQTT bridge itself
		h.logBySeverity("MQTT", mqttErr.Severity, err)
	case stderrors.As(err, &eventErr):
		h.logBySeverity("Events", eventErr.Severity, err)
		h.publish(ctx, eventErr.Code, fmt.Sprintf("Event publish to '%s' failed", eventErr.Subject))
	case stderrors.As(err, &cfgErr):
		h.log.LogError("🔴 CRITICAL Configuration Error: %s", err.Error())
		h.publish(ctx, cfgErr.Code, fmt.Sprintf("Config field '%s': %s", cfgErr.Field, cfgErr.Op))
	case stderrors.As(err, &validation):
		h.log.LogWarn("Validation Error: %s", err.Error())
		h.publish(ctx, validation.Code, fmt.Sprintf("Validation failed for '%s'", validation.Field))
	case stderrors.As(err, &base):
		h.logBySeverity("Controller", base.Severity, err)
		h.publish(ctx, base.Code, base.Op)
	default:
		h.log.LogError("Untyped Error: %v", err)
		h.publish(ctx, CodeGeneric, err.Error())
	}
}

func (h *ErrorHandler) logBySeverity(source string, severity ErrorSeverity, err error) {
	switch severity {
	case SeverityCritical:
		h.log.LogError("🔴 CRITICAL %s Error: %s", source, err.Error())
	case SeverityError:
		h.log.LogError("%s Error: %s", source, err.Error())
	case SeverityWarning:
		h.log.LogWarn("%s Warning: %s", source, err.Error())
	default:
		h.log.LogInfo("%s Info: %s", source, err.Error())
	}
}

func (h *ErrorHandler) publish(ctx context.Context, code int, message string) {
	if h.diagnosticPublisher == nil {
		return
	}
	if err := h.diagnosticPublisher.PublishDiagnostic(ctx, code, message); err != nil {
		h.log.LogDebug("Failed to publish diagnostic %d: %v", code, err)
	}
}

// IsRecoverable returns true if the process can keep running after err
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}
	var cfgErr *ConfigError
	if stderrors.As(err, &cfgErr) {
		return false
	}
	var classified interface{ severity() ErrorSeverity }
	if stderrors.As(err, &classified) {
		return classified.severity() != SeverityCritical
	}
	return true
}

// GetDiagnosticCode extracts the diagnostic code from an error
func GetDiagnosticCode(err error) int {
	if err == nil {
		return CodeOK
	}
	var coded interface{ diagnosticCode() int }
	if stderrors.As(err, &coded) {
		return coded.diagnosticCode()
	}
	return CodeGeneric
}

func (e *ControllerError) diagnosticCode() int { return e.Code }

func (e *ControllerError) severity() ErrorSeverity { return e.Severity }

// KindOf classifies err into one of the controller error kinds
func KindOf(err error) Kind {
	var (
		cfgMissing *ConfigurationMissingError
		transport  *TransportError
		command    *CommandError
	)
	switch {
	case err == nil:
		return KindNone
	case stderrors.As(err, &cfgMissing):
		return KindConfigurationMissing
	case stderrors.As(err, &command):
		return KindCommandFailure
	case stderrors.As(err, &transport):
		return KindTransportFailure
	default:
		return KindNone
	}
}
