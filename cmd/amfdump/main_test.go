package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/limscoder/amfast/pkg/amf"
)

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "input.amf")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestRunValue(t *testing.T) {
	raw, err := amf.Encode(map[string]any{"greeting": "hello"}, amf.DefaultOptions())
	require.NoError(t, err)

	cfg := defaultConfig()
	cfg.input = writeTemp(t, raw)

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))
	assert.Contains(t, out.String(), "greeting")
	assert.Contains(t, out.String(), `"hello"`)
}

func TestRunPacket(t *testing.T) {
	p := amf.NewPacket()
	p.Messages = []amf.Message{{Target: "svc.echo", Response: "/1", Body: []any{"hi"}}}
	raw, err := amf.EncodePacket(p, amf.DefaultOptions())
	require.NoError(t, err)

	cfg := defaultConfig()
	cfg.Packet = true
	cfg.input = writeTemp(t, raw)

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))
	assert.Contains(t, out.String(), "svc.echo")
}

func TestRunAMF3Sequence(t *testing.T) {
	opts := amf.Options{AMF3: true, UseReferences: true}
	e := amf.NewEncoder(opts)
	defer e.Release()
	require.NoError(t, e.WriteValue("one"))
	require.NoError(t, e.WriteValue(int32(2)))

	cfg := defaultConfig()
	cfg.AMF3 = true
	cfg.Sequence = true
	cfg.input = writeTemp(t, e.Bytes())

	var out bytes.Buffer
	require.NoError(t, run(cfg, &out))
	assert.Contains(t, out.String(), "value 0")
	assert.Contains(t, out.String(), "value 1")
}

func TestRunBadInput(t *testing.T) {
	cfg := defaultConfig()
	cfg.AMF3 = true
	cfg.input = writeTemp(t, []byte{0xFF})

	var out bytes.Buffer
	require.Error(t, run(cfg, &out))
}

func TestParseFlagsConfigMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(path, []byte("packet: true\nlog_level: debug\n"), 0o644))

	cfg, err := parseFlags([]string{"--config", path, "--log-level", "warn", "dump.amf"})
	require.NoError(t, err)
	assert.True(t, cfg.Packet, "from config file")
	assert.Equal(t, "warn", cfg.LogLevel, "flag overrides file")
	assert.Equal(t, "dump.amf", cfg.input)
}
