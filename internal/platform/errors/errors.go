package errors

import (
	"bytes"
	stderrors "errors"
	"text/template"

	"github.com/louisbranch/oracles/internal/platform/i18n/catalog"
)

// errorsNamespace is the catalog namespace holding user-facing error templates.
const errorsNamespace = "errors"

// Error is the domain error type with structured metadata.
type Error struct {
	Code     Code              // Machine-readable error code
	Message  string            // Internal message (for logs)
	Metadata map[string]string // Additional context for templating
	Cause    error             // Wrapped underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// New creates a simple domain error with a code and message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithMetadata creates a domain error with metadata for i18n templating.
func WithMetadata(code Code, message string, metadata map[string]string) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// WrapWithMetadata creates a domain error with both metadata and a cause.
func WrapWithMetadata(code Code, message string, metadata map[string]string, cause error) *Error {
	return &Error{Code: code, Message: message, Metadata: metadata, Cause: cause}
}

// CodeOf returns the code of the first domain error in err's chain.
func CodeOf(err error) Code {
	var domainErr *Error
	if stderrors.As(err, &domainErr) {
		return domainErr.Code
	}
	return CodeUnknown
}

// UserMessage renders the localized message for err. Errors outside the
// domain, or codes without a template, fall back to err.Error().
func UserMessage(err error, locale string) string {
	if err == nil {
		return ""
	}
	var domainErr *Error
	if !stderrors.As(err, &domainErr) {
		return err.Error()
	}
	_, messages := catalog.Default().NamespaceMessagesWithFallback(locale, errorsNamespace)
	tmpl, ok := messages[string(domainErr.Code)]
	if !ok {
		return err.Error()
	}
	metadata := domainErr.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	parsed, parseErr := template.New("msg").Option("missingkey=zero").Parse(tmpl)
	if parseErr != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if execErr := parsed.Execute(&buf, metadata); execErr != nil {
		return tmpl
	}
	return buf.String()
}
