package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name string
		base string
		ref  string
		want string
	}{
		{"absolute", "https://vendora.gr/items", "https://vendora.gr/items/1", "https://vendora.gr/items/1"},
		{"scheme relative", "https://www.skroutz.gr/", "//a.scdn.gr/x.jpeg", "https://a.scdn.gr/x.jpeg"},
		{"root relative", "https://vendora.gr/items?q=laptop", "/items/12345", "https://vendora.gr/items/12345"},
		{"path relative", "https://vendora.gr/items/", "12345", "https://vendora.gr/items/12345"},
		{"empty", "https://vendora.gr/", "  ", ""},
		{"no base", "", "/items/1", "/items/1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveURL(tt.base, tt.ref))
		})
	}
}

func TestLastPathSegment(t *testing.T) {
	assert.Equal(t, "12345", LastPathSegment("https://vendora.gr/items/12345"))
	assert.Equal(t, "12345", LastPathSegment("https://vendora.gr/items/12345/?ref=feed"))
	assert.Equal(t, "items", LastPathSegment("https://vendora.gr/items"))
	assert.Equal(t, "", LastPathSegment("https://vendora.gr/"))
}

func TestOrigin(t *testing.T) {
	assert.Equal(t, "https://vendora.gr", Origin("https://vendora.gr/items?q=a"))
	assert.Equal(t, "", Origin("/items"))
}
