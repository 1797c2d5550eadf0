package errors

import (
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceErrorMessage(t *testing.T) {
	err := NewNavigation("vendora", "navigate failed", stderrors.New("connection refused"))
	assert.Equal(t, "[navigation] vendora: navigate failed - connection refused", err.Error())

	err = NewValidation("", "min price above max price")
	assert.Equal(t, "[validation] : min price above max price", err.Error())
}

func TestSourceErrorUnwrapAndIs(t *testing.T) {
	cause := stderrors.New("socket closed")
	err := NewRender("skroutz", "session start", cause)

	assert.True(t, stderrors.Is(err, cause))
	assert.True(t, stderrors.Is(err, &SourceError{Type: ErrorTypeRender}))
	assert.True(t, stderrors.Is(err, &SourceError{Type: ErrorTypeRender, Source: "skroutz"}))
	assert.False(t, stderrors.Is(err, &SourceError{Type: ErrorTypeRender, Source: "facebook"}))
	assert.False(t, stderrors.Is(err, &SourceError{Type: ErrorTypeNavigation}))

	var se *SourceError
	assert.True(t, stderrors.As(err, &se))
	assert.Equal(t, "skroutz", se.Source)
}

func TestNewRateLimit(t *testing.T) {
	err := NewRateLimit("facebook", 5*time.Minute)
	assert.Equal(t, ErrorTypeRateLimit, err.Type)
	assert.Contains(t, err.Error(), "5m0s")
	assert.False(t, err.Time.IsZero())
}
