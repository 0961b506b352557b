package util

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors covering spec.md §7's error taxonomy: terminal vs.
// recoverable connection failures, and input/expression-parse failures
// that are reported at startup rather than during a crawl or connect.
var (
	// Connection failures.
	ErrConnectionTimeout    = errors.New("connection timed out")
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrNoEligibleConnector  = errors.New("no connector eligible for this platform")
	ErrConnectionUnexpected = errors.New("unexpected connector error")

	// Registry/state-machine invariants.
	ErrNotConnected  = errors.New("connection is not connected")
	ErrAlreadyExists = errors.New("resource already exists")
	ErrNotFound      = errors.New("resource not found")

	// Input parsing (expressions, credentials, filters).
	ErrExpressionParse = errors.New("expression parse failed")
	ErrCredentialParse = errors.New("credential parse failed")
	ErrFilterParse     = errors.New("neighbor filter parse failed")
	ErrValidationFailed = errors.New("validation failed")

	// Module dispatch.
	ErrModuleFailed = errors.New("module run failed")
)

// ConnectionError describes a single connector attempt's failure,
// classified per spec.md §4.5/§7: a Timeout is terminal for the
// connection, an AuthFailed attempt leaves the connection idle so other
// credentials can still be tried, and Unexpected covers everything else
// (logged, connector moves on to the next address/credential).
type ConnectionError struct {
	Host      string
	Connector string
	Address   string
	Reason    error // one of ErrConnectionTimeout, ErrAuthenticationFailed, ErrConnectionUnexpected
	Detail    string
}

func (e *ConnectionError) Error() string {
	msg := fmt.Sprintf("%s: connector %q to %s@%s: %v", e.Host, e.Connector, e.Address, e.Host, e.Reason)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

func (e *ConnectionError) Unwrap() error {
	return e.Reason
}

// NewConnectionError builds a ConnectionError; reason should be one of the
// three connection sentinels above.
func NewConnectionError(host, connector, address string, reason error, detail string) *ConnectionError {
	return &ConnectionError{Host: host, Connector: connector, Address: address, Reason: reason, Detail: detail}
}

// IsTerminal reports whether a connection error should stop further
// attempts against this connection entirely (spec.md §4.5 step 6: a
// timeout is terminal, an auth failure or unexpected error is not).
func (e *ConnectionError) IsTerminal() bool {
	return errors.Is(e.Reason, ErrConnectionTimeout)
}

// ParseError wraps a failure to decode an expression, credential, or
// filter token/file, carrying the offending source text for diagnostics.
type ParseError struct {
	Kind   string // "expression", "credential", "filter"
	Source string
	Detail string
	Reason error
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("%s parse failed on %q", e.Kind, e.Source)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

func (e *ParseError) Unwrap() error {
	return e.Reason
}

// NewParseError builds a ParseError; reason should be one of
// ErrExpressionParse, ErrCredentialParse, or ErrFilterParse.
func NewParseError(kind, source, detail string, reason error) *ParseError {
	return &ParseError{Kind: kind, Source: source, Detail: detail, Reason: reason}
}

// ValidationError represents one or more validation failures accumulated
// while checking a batch of input (credentials, filters, module options).
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 1 {
		return "validation failed: " + e.Errors[0]
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NewValidationError creates a validation error from messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Errors: messages}
}

// ValidationBuilder helps accumulate validation errors across a batch of
// checks before deciding whether input is acceptable.
type ValidationBuilder struct {
	errors []string
}

// Add adds an error message if condition is false.
func (v *ValidationBuilder) Add(condition bool, message string) *ValidationBuilder {
	if !condition {
		v.errors = append(v.errors, message)
	}
	return v
}

// AddError adds an error message unconditionally.
func (v *ValidationBuilder) AddError(message string) *ValidationBuilder {
	v.errors = append(v.errors, message)
	return v
}

// AddErrorf adds a formatted error message.
func (v *ValidationBuilder) AddErrorf(format string, args ...interface{}) *ValidationBuilder {
	v.errors = append(v.errors, fmt.Sprintf(format, args...))
	return v
}

// HasErrors returns true if there are validation errors.
func (v *ValidationBuilder) HasErrors() bool {
	return len(v.errors) > 0
}

// Build returns the validation error or nil if no errors were added.
func (v *ValidationBuilder) Build() error {
	if len(v.errors) == 0 {
		return nil
	}
	return &ValidationError{Errors: v.errors}
}

// ModuleError wraps a bundled or user module's Run failure with the
// module's name, so the engine can report which module in the pipeline
// failed without the module itself needing to embed its own name in every
// error string.
type ModuleError struct {
	Module string
	Reason error
}

func (e *ModuleError) Error() string {
	return fmt.Sprintf("module %q failed: %v", e.Module, e.Reason)
}

func (e *ModuleError) Unwrap() error {
	return e.Reason
}

// NewModuleError builds a ModuleError.
func NewModuleError(module string, reason error) *ModuleError {
	return &ModuleError{Module: module, Reason: reason}
}
