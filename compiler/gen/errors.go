package gen

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for common failure cases.
var (
	// ErrResolution indicates that semantic analysis of a type failed.
	ErrResolution = errors.New("partialgen: semantic analysis failed")
	// ErrSynthesis indicates that code synthesis for a type failed.
	ErrSynthesis = errors.New("partialgen: synthesis failed")
	// ErrMissingConfig indicates a configuration error.
	ErrMissingConfig = errors.New("partialgen: missing configuration")
	// ErrGenerationFailed indicates a failure outside of the per-type stages,
	// such as loading packages or writing files.
	ErrGenerationFailed = errors.New("partialgen: code generation failed")
)

// ResolveError represents a failure of the semantic resolver for one type.
type ResolveError struct {
	Type    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return typeError("semantic analysis failed", e.Type, e.Message, e.Cause)
}

// Unwrap returns the underlying error.
func (e *ResolveError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for ResolveError.
func (e *ResolveError) Is(target error) bool {
	return target == ErrResolution
}

// NewResolveError creates a new ResolveError.
func NewResolveError(typeName, message string, cause error) *ResolveError {
	return &ResolveError{
		Type:    typeName,
		Message: message,
		Cause:   cause,
	}
}

// SynthesisError represents a failure of code synthesis or emission for one type.
type SynthesisError struct {
	Type    string
	Phase   string // "property", "interface", "mapper", "imports", "emit"
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *SynthesisError) Error() string {
	prefix := "synthesis failed"
	if e.Phase != "" {
		prefix += " in phase " + e.Phase
	}
	return typeError(prefix, e.Type, e.Message, e.Cause)
}

// Unwrap returns the underlying error.
func (e *SynthesisError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for SynthesisError.
func (e *SynthesisError) Is(target error) bool {
	return target == ErrSynthesis
}

// NewSynthesisError creates a new SynthesisError.
func NewSynthesisError(typeName, phase, message string, cause error) *SynthesisError {
	return &SynthesisError{
		Type:    typeName,
		Phase:   phase,
		Message: message,
		Cause:   cause,
	}
}

func typeError(prefix, typeName, message string, cause error) string {
	var b strings.Builder
	b.WriteString("partialgen: ")
	b.WriteString(prefix)
	if typeName != "" {
		b.WriteString(" for type ")
		b.WriteString(typeName)
	}
	if message != "" {
		b.WriteString(": ")
		b.WriteString(message)
	}
	if cause != nil {
		b.WriteString(": ")
		b.WriteString(cause.Error())
	}
	return b.String()
}

// ConfigError represents a configuration error.
type ConfigError struct {
	Option  string
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("partialgen: config error for %q (value: %v): %s", e.Option, e.Value, e.Message)
	}
	return fmt.Sprintf("partialgen: config error for %q: %s", e.Option, e.Message)
}

// Is reports whether the target matches the sentinel error for ConfigError.
func (e *ConfigError) Is(target error) bool {
	return target == ErrMissingConfig
}

// NewConfigError creates a new ConfigError.
func NewConfigError(option string, value any, message string) *ConfigError {
	return &ConfigError{
		Option:  option,
		Value:   value,
		Message: message,
	}
}

// GenerationError represents an error returned to the caller of the
// generator: loading, cache or file system failures.
type GenerationError struct {
	Phase   string // "load", "cache", "write", "prune"
	File    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("partialgen: generation error")
	if e.Phase != "" {
		b.WriteString(" in phase ")
		b.WriteString(e.Phase)
	}
	if e.File != "" {
		b.WriteString(" (file: ")
		b.WriteString(e.File)
		b.WriteString(")")
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *GenerationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches the sentinel error for GenerationError.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// NewGenerationError creates a new GenerationError.
func NewGenerationError(phase, file, message string, cause error) *GenerationError {
	return &GenerationError{
		Phase:   phase,
		File:    file,
		Message: message,
		Cause:   cause,
	}
}

// IsResolveError reports whether the error is a ResolveError.
func IsResolveError(err error) bool {
	var resolveErr *ResolveError
	return errors.As(err, &resolveErr)
}

// IsSynthesisError reports whether the error is a SynthesisError.
func IsSynthesisError(err error) bool {
	var synthErr *SynthesisError
	return errors.As(err, &synthErr)
}

// IsConfigError reports whether the error is a ConfigError.
func IsConfigError(err error) bool {
	var configErr *ConfigError
	return errors.As(err, &configErr)
}

// IsGenerationError reports whether the error is a GenerationError.
func IsGenerationError(err error) bool {
	var genErr *GenerationError
	return errors.As(err, &genErr)
}

// recovered converts a recovered panic value into an error carrying the
// stack of the panicking goroutine.
func recovered(v any) error {
	if err, ok := v.(error); ok {
		return errors.WithStackDepth(err, 2)
	}
	return errors.NewWithDepthf(2, "%v", v)
}

// trace renders the stack trace of err when debug is set.
func trace(err error, debug bool) string {
	if !debug || err == nil {
		return ""
	}
	return fmt.Sprintf("%+v", err)
}

// message returns the user facing message of a per-type failure: the
// message of the typed error when there is one, the error text otherwise.
func message(err error) string {
	var (
		resolveErr *ResolveError
		synthErr   *SynthesisError
	)
	switch {
	case errors.As(err, &resolveErr):
		return joinCause(resolveErr.Message, resolveErr.Cause)
	case errors.As(err, &synthErr):
		return joinCause(synthErr.Message, synthErr.Cause)
	}
	return err.Error()
}

func joinCause(msg string, cause error) string {
	switch {
	case cause == nil:
		return msg
	case msg == "":
		return cause.Error()
	}
	return msg + ": " + cause.Error()
}
