package errors

import (
	"fmt"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic codes published alongside errors
const (
	CodeOK                   = 0
	CodeConfig               = 1
	CodeConfigurationMissing = 2
	CodeTransport            = 3
	CodeCommand              = 4
	CodeValidation           = 5
	CodeMQTT                 = 6
	CodeEvents               = 7
	CodeGeneric              = 99
)

// Kind classifies the errors the controller itself can produce
type Kind int

const (
	KindNone Kind = iota
	KindConfigurationMissing
	KindTransportFailure
	KindCommandFailure
)

func (k Kind) String() string {
	switch k {
	case KindConfigurationMissing:
		return "ConfigurationMissing"
	case KindTransportFailure:
		return "TransportFailure"
	case KindCommandFailure:
		return "CommandFailure"
	default:
		return "None"
	}
}

// ControllerError is the base error type shared by all typed errors
type ControllerError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code
}

// Error implements the error interface
func (e *ControllerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *ControllerError) Unwrap() error {
	return e.Err
}

// ConfigurationMissingError is returned when a command is attempted before
// the device base address is known
type ConfigurationMissingError struct {
	ControllerError
}

// NewConfigurationMissingError creates a configuration-missing error for op
func NewConfigurationMissingError(op string) *ConfigurationMissingError {
	return &ConfigurationMissingError{
		ControllerError: ControllerError{
			Op:       op,
			Err:      fmt.Errorf("base address not resolved"),
			Severity: SeverityWarning,
			Code:     CodeConfigurationMissing,
		},
	}
}

// TransportError is a failed status read: a network error or a non-2xx reply
type TransportError struct {
	ControllerError
	URL        string
	StatusCode int // 0 when the request never got a response
}

// NewTransportError creates a transport error for a read of url
func NewTransportError(op string, err error, url string, statusCode int) *TransportError {
	return &TransportError{
		ControllerError: ControllerError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeTransport,
		},
		URL:        url,
		StatusCode: statusCode,
	}
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] %s %s: HTTP %d", e.Severity, e.Op, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("[%s] %s %s: %v", e.Severity, e.Op, e.URL, e.Err)
}

// CommandError is a failed command write, tagged with the attempted command
type CommandError struct {
	ControllerError
	Command    string // device endpoint, e.g. LED_ON
	StatusCode int
}

// NewCommandError creates a command error for the given endpoint
func NewCommandError(command string, err error, statusCode int) *CommandError {
	return &CommandError{
		ControllerError: ControllerError{
			Op:       "send_command",
			Err:      err,
			Severity: SeverityError,
			Code:     CodeCommand,
		},
		Command:    command,
		StatusCode: statusCode,
	}
}

// Error implements the error interface
func (e *CommandError) Error() string {
	return fmt.Sprintf("[%s] command %s: %s", e.Severity, e.Command, e.Reason())
}

// Reason is the short failure cause: the HTTP status or the transport error
func (e *CommandError) Reason() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

// MQTTError represents errors from MQTT operations
type MQTTError struct {
	ControllerError
	Broker string
	Topic  string
}

// NewMQTTError creates a new MQTT error
func NewMQTTError(op string, err error, broker string) *MQTTError {
	return &MQTTError{
		ControllerError: ControllerError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeMQTT,
		},
		Broker: broker,
	}
}

// Error implements the error interface
func (e *MQTTError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] MQTT broker '%s' (topic: %s): %s: %v",
			e.Severity, e.Broker, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] MQTT broker '%s': %s: %v",
		e.Severity, e.Broker, e.Op, e.Err)
}

// EventError represents errors publishing state-change events to NATS
type EventError struct {
	ControllerError
	Subject string
}

// NewEventError creates a new event publishing error
func NewEventError(op string, err error, subject string) *EventError {
	return &EventError{
		ControllerError: ControllerError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodeEvents,
		},
		Subject: subject,
	}
}

// Error implements the error interface
func (e *EventError) Error() string {
	return fmt.Sprintf("[%s] NATS subject '%s': %s: %v", e.Severity, e.Subject, e.Op, e.Err)
}

// ConfigError represents configuration errors
type ConfigError struct {
	ControllerError
	Field string
}

// NewConfigError creates a new configuration error
func NewConfigError(op string, err error, field string) *ConfigError {
	return &ConfigError{
		ControllerError: ControllerError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical,
			Code:     CodeConfig,
		},
		Field: field,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] Configuration field '%s': %s: %v",
			e.Severity, e.Field, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Configuration: %s: %v",
		e.Severity, e.Op, e.Err)
}

// ValidationError represents validation errors
type ValidationError struct {
	ControllerError
	Field    string
	Expected interface{}
	Actual   interface{}
}

// NewValidationError creates a new validation error
func NewValidationError(field string, expected, actual interface{}) *ValidationError {
	return &ValidationError{
		ControllerError: ControllerError{
			Op:       "validation",
			Err:      fmt.Errorf("validation failed"),
			Severity: SeverityWarning,
			Code:     CodeValidation,
		},
		Field:    field,
		Expected: expected,
		Actual:   actual,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Field '%s': expected %v, got %v",
		e.Severity, e.Field, e.Expected, e.Actual)
}
