package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/XC-/peripheral/config"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quiet() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestSessionDefaultServices(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	out := &printer{w: &buf}

	require.NoError(t, session(context.Background(), config.DefaultConfig(), quiet(), out))

	got := buf.String()
	assert.Contains(t, steps(got), "start")
	assert.Contains(t, steps(got), "advertise")
	for _, want := range []string{
		"onPeerConnected{device=central-1}",
		"onSubscribed{device=central-1",
		"onCharacteristicWritten{",
		"count 3 sent=true",
		"onPeerDisconnected{device=central-1}",
		"onAdvertisingStateChanged{state=idle}",
	} {
		assert.Contains(t, got, want)
	}
}

// steps returns the names of the steps reported ok.
func steps(out string) []string {
	var ss []string
	for _, l := range strings.Split(out, "\n") {
		f := strings.Fields(l)
		if len(f) > 1 && f[len(f)-1] == "ok" {
			ss = append(ss, strings.Join(f[:len(f)-1], " "))
		}
	}
	return ss
}

func TestSessionAdvertisingFailure(t *testing.T) {
	color.NoColor = true
	runFail = 3
	defer func() { runFail = 0 }()
	var buf bytes.Buffer

	err := session(context.Background(), config.DefaultConfig(), quiet(), &printer{w: &buf})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "platform status 3")
}

func TestTableCommand(t *testing.T) {
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs([]string{"table"})
	require.NoError(t, rootCmd.Execute())

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Greater(t, len(lines), 1)
	assert.True(t, strings.HasPrefix(lines[0], "HANDLE"))
	assert.Contains(t, lines[1], "0x0001")
	assert.Contains(t, buf.String(), "read,notify")
}

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.yaml")
	require.NoError(t, os.WriteFile(path, []byte("services: [{uuid: 180f, characteristics: [{uuid: 2a19}]}]"), 0o600))

	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs([]string{"validate", path})
	require.NoError(t, rootCmd.Execute())
	assert.Contains(t, buf.String(), "1 services, 1 characteristics")
}

func TestShort(t *testing.T) {
	assert.Equal(t, "2a19", short("00002a19-0000-1000-8000-00805f9b34fb"))
	assert.Equal(t, "09fc95c0", short("09fc95c0-c111-11e3-9904-0002a5d5c51b"))
}
