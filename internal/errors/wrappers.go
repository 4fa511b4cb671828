package errors

import "fmt"

// NewSyntaxError reports a malformed binding tag
func NewSyntaxError(tag, message string) *BaseError {
	return New(SyntaxErrorCode, message).
		WithContext("tag", tag)
}

// WrapParseError wraps a parser failure for a binding tag
func WrapParseError(tag string, cause error) *BaseError {
	return Wrap(SyntaxErrorCode, fmt.Sprintf("failed to parse binding tag %q", tag), cause).
		WithContext("tag", tag).
		WithSuggestion("flags are written -Name or -Name=value, quote values containing spaces with '...'")
}

// NewRegistrationError reports a handler or action that cannot be registered
func NewRegistrationError(handler, reason string) *BaseError {
	return New(RegistrationErrorCode, reason).
		WithLocation(SourceLocation{Handler: handler})
}

// NewBindingError reports a parameter whose binding cannot be compiled
func NewBindingError(loc SourceLocation, reason string, cause error) *BaseError {
	return Wrap(BindingErrorCode, reason, cause).WithLocation(loc)
}

// WrapConfigurationError wraps configuration-related errors
func WrapConfigurationError(key, operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s configuration '%s'", operation, key)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("key", key).
		WithContext("operation", operation)
}

// NewConfigurationError reports an invalid configuration value
func NewConfigurationError(key, reason string) *BaseError {
	return New(ConfigurationErrorCode, fmt.Sprintf("invalid configuration '%s': %s", key, reason)).
		WithContext("key", key)
}
