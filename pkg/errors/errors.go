package errors

import (
	"fmt"
	"time"
)

// ErrorType represents the type of error
type ErrorType string

const (
	// ErrorTypeNavigation represents page navigation failures
	ErrorTypeNavigation ErrorType = "navigation"
	// ErrorTypeRender represents rendering session failures
	ErrorTypeRender ErrorType = "render"
	// ErrorTypeExtraction represents faults while extracting listings
	ErrorTypeExtraction ErrorType = "extraction"
	// ErrorTypeParsing represents HTML parsing errors
	ErrorTypeParsing ErrorType = "parsing"
	// ErrorTypeRateLimit represents a source in cooldown
	ErrorTypeRateLimit ErrorType = "rate_limit"
	// ErrorTypeCache represents cache-related errors
	ErrorTypeCache ErrorType = "cache"
	// ErrorTypePublisher represents publisher-related errors
	ErrorTypePublisher ErrorType = "publisher"
	// ErrorTypeValidation represents validation errors
	ErrorTypeValidation ErrorType = "validation"
	// ErrorTypeConfiguration represents configuration errors
	ErrorTypeConfiguration ErrorType = "configuration"
)

// SourceError represents an error raised while serving one marketplace source
type SourceError struct {
	Type    ErrorType
	Source  string
	Message string
	Err     error
	Time    time.Time
}

// Error implements the error interface
func (e *SourceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %s - %v", e.Type, e.Source, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Type, e.Source, e.Message)
}

// Unwrap returns the underlying error
func (e *SourceError) Unwrap() error {
	return e.Err
}

// Is matches another SourceError of the same type, so errors.Is can test categories
func (e *SourceError) Is(target error) bool {
	t, ok := target.(*SourceError)
	if !ok {
		return false
	}
	return t.Type == e.Type && (t.Source == "" || t.Source == e.Source)
}

// New creates a new SourceError
func New(errType ErrorType, source, message string, err error) *SourceError {
	return &SourceError{
		Type:    errType,
		Source:  source,
		Message: message,
		Err:     err,
		Time:    time.Now(),
	}
}

// NewNavigation creates a new navigation error
func NewNavigation(source, message string, err error) *SourceError {
	return New(ErrorTypeNavigation, source, message, err)
}

// NewRender creates a new rendering session error
func NewRender(source, message string, err error) *SourceError {
	return New(ErrorTypeRender, source, message, err)
}

// NewExtraction creates a new extraction error
func NewExtraction(source, message string, err error) *SourceError {
	return New(ErrorTypeExtraction, source, message, err)
}

// NewParsing creates a new parsing error
func NewParsing(source, message string, err error) *SourceError {
	return New(ErrorTypeParsing, source, message, err)
}

// NewRateLimit creates a new rate limit error
func NewRateLimit(source string, duration time.Duration) *SourceError {
	message := fmt.Sprintf("in cooldown for %v", duration)
	return New(ErrorTypeRateLimit, source, message, nil)
}

// NewCache creates a new cache error
func NewCache(source, message string, err error) *SourceError {
	return New(ErrorTypeCache, source, message, err)
}

// NewPublisher creates a new publisher error
func NewPublisher(message string, err error) *SourceError {
	return New(ErrorTypePublisher, "", message, err)
}

// NewValidation creates a new validation error
func NewValidation(source, message string) *SourceError {
	return New(ErrorTypeValidation, source, message, nil)
}

// NewConfiguration creates a new configuration error
func NewConfiguration(message string, err error) *SourceError {
	return New(ErrorTypeConfiguration, "", message, err)
}
