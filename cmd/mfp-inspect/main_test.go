package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSampleAndInspect(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name     string
		args     []string
		contains []string
	}{
		{
			name:     "text with priority",
			args:     []string{"--text", "hello", "--priority", "4"},
			contains: []string{"JMS_TEXT", "Priority: 4", `text: "hello"`, "Persistence: PERSISTENT"},
		},
		{
			name:     "bytes without priority",
			args:     []string{"--body", "bytes", "--text", "AB", "--priority", "-1", "--persistent=false"},
			contains: []string{"JMS_BYTES", "Priority: unset", "bytes: 2", "hex: 4142"},
		},
		{
			name:     "map with properties and ttl",
			args:     []string{"--body", "map", "--text", "hi", "--property", "region=eu", "--ttl", "2s", "--correlation-id", "c-1"},
			contains: []string{"JMS_MAP", "text = hi", "length = 2", "region: eu", "Time To Live: 2s", "Correlation ID: c-1"},
		},
		{
			name:     "stream",
			args:     []string{"--body", "stream", "--text", "a b"},
			contains: []string{"JMS_STREAM", "[0] a (string)", "[1] b (string)"},
		},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "msg-"+string(rune('a'+i))+".mfp")

			out, err := run(t, append([]string{"sample", path}, tt.args...)...)
			require.NoError(t, err)
			assert.Contains(t, out, "Wrote")

			out, err = run(t, "inspect", path)
			require.NoError(t, err)
			for _, want := range tt.contains {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestInspectJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "msg.mfp")
	_, err := run(t, "sample", path, "--text", "hello", "--priority", "4")
	require.NoError(t, err)

	out, err := run(t, "inspect", "--json", path)
	require.NoError(t, err)

	var s messageSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "JMS", s.Kind)
	require.NotNil(t, s.Priority)
	assert.Equal(t, 4, *s.Priority)
	assert.Equal(t, []string{`text: "hello"`}, s.Body)
}

func TestInspectErrors(t *testing.T) {
	dir := t.TempDir()

	garbage := filepath.Join(dir, "garbage.mfp")
	require.NoError(t, os.WriteFile(garbage, []byte{0x01, 0x02}, 0o644))

	tests := []struct {
		name string
		args []string
	}{
		{name: "missing file", args: []string{"inspect", filepath.Join(dir, "absent.mfp")}},
		{name: "not a flattened message", args: []string{"inspect", garbage}},
		{name: "unknown body kind", args: []string{"sample", filepath.Join(dir, "x.mfp"), "--body", "object"}},
		{name: "priority out of range", args: []string{"sample", filepath.Join(dir, "y.mfp"), "--priority", "10"}},
		{name: "bad message id", args: []string{"store", "show", "not-a-uuid"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestStoreListEmpty(t *testing.T) {
	out, err := run(t, "store", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No messages found")
}

func TestHealth(t *testing.T) {
	out, err := run(t, "health")
	require.NoError(t, err)
	assert.Contains(t, out, "System Health: healthy")
	assert.Contains(t, out, "store")
	assert.Contains(t, out, "codec")
}
