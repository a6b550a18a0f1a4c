package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		amount float64
		want   string
	}{
		{0, "0.00"},
		{10, "10.00"},
		{30.5, "30.50"},
		{0.1 + 0.2, "0.30"},
		{19.999, "20.00"},
		{1.005, "1.01"},
		{-2.5, "-2.50"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.amount), "amount %v", tt.amount)
	}
}

func TestRound2(t *testing.T) {
	assert.Equal(t, 0.3, Round2(0.1+0.2))
	assert.Equal(t, 12.35, Round2(12.345))
	assert.Equal(t, 7.0, Round2(7))
}
