package price

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		input string
		want  float64
		ok    bool
	}{
		{"100 €", 100, true},
		{"1.500", 1500, true},
		{"45,50", 45.5, true},
		{"1.234,56", 1234.56, true},
		{"1,234.56", 1234.56, true},
		{"€1.299", 1299, true},
		{"  350 € ", 350, true},
		{"12 ευρώ", 12, true},
		{"99.99 EUR", 9999, true},
		{"$15", 15, true},
		{"£7,5", 7.5, true},
		{"1.234.567,8", 1234567.8, true},
		{"0", 0, true},
		{"abc", 0, false},
		{"", 0, false},
		{"€", 0, false},
		{"Δωρεάν", 0, false},
		{"1 500 €", 0, false},
		{"-20 €", 0, false},
		{"1e5", 0, false},
		{"12,34,56", 0, false},
		{"Τιμή: 100 €", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := Parse(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestFind(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Laptop Dell 450 € Αθήνα", "450 €"},
		{"Τιμή: €1.299 (συζητήσιμη)", "€1.299"},
		{"MacBook Air\n1.234,56 €", "1.234,56 €"},
		{"iPhone 12 - 300 ευρώ", "300 ευρώ"},
		{"Κονσόλα 200 EUR μόνο", "200 EUR"},
		{"Laptop 15 ιντσών", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Find(tt.input))
		})
	}
}

func TestFindThenParse(t *testing.T) {
	value, ok := Parse(Find("Gaming laptop ASUS 1.150 € Θεσσαλονίκη"))
	assert.True(t, ok)
	assert.Equal(t, 1150.0, value)
}
