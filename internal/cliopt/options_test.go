package cliopt

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyDefaultsKeepsExplicitFlags(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	g := DefaultGlobalOptions()
	BindGlobalFlags(fs, &g)
	require.NoError(t, fs.Parse([]string{"--format", "json"}))

	err := ApplyDefaults(fs, map[string]string{
		"format":      "pretty",
		"sqlite-path": "/data",
		"verbose":     "true",
		"unknown":     "x",
	})
	require.NoError(t, err)
	assert.Equal(t, "json", g.Format)
	assert.Equal(t, "/data", g.SQLitePath)
	assert.True(t, g.Verbose)
	assert.Equal(t, "sqlite", g.Backend)
}

func TestApplyDefaultsBadValue(t *testing.T) {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	g := DefaultGlobalOptions()
	BindGlobalFlags(fs, &g)
	require.NoError(t, fs.Parse(nil))
	assert.ErrorContains(t, ApplyDefaults(fs, map[string]string{"verbose": "maybe"}), "config verbose")
}
