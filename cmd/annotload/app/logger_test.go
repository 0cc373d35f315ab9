package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetermineLogLevel(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		want   string
	}{
		{"default is info", Config{}, "info"},
		{"verbose means debug", Config{Verbose: true}, "debug"},
		{"quiet means warn", Config{Quiet: true}, "warn"},
		{"quiet wins over verbose", Config{Verbose: true, Quiet: true}, "warn"},
		{"explicit level wins over shortcuts", Config{Verbose: true, LogLevel: "error"}, "error"},
		{"invalid level falls back to info", Config{LogLevel: "loud"}, "info"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, determineLogLevel(&tc.config))
		})
	}
}

func TestUpdateFromFlags(t *testing.T) {
	c := &Config{LogLevel: "info"}
	c.UpdateFromFlags(true, false, true, "")
	assert.True(t, c.Verbose)
	assert.True(t, c.NoColor)
	assert.Equal(t, "info", c.LogLevel) // empty flag leaves the level alone

	c.UpdateFromFlags(false, true, false, "debug")
	assert.Equal(t, "debug", c.LogLevel)
}
