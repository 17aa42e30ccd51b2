package diag

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpDisabledByDefault(t *testing.T) {
	var out bytes.Buffer
	l := New(&bytes.Buffer{}, Options{Out: &out})
	l.Dump([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Empty(t, out.String())
}

func TestDumpEnabled(t *testing.T) {
	var out bytes.Buffer
	l := New(&bytes.Buffer{}, Options{Diagnostics: true, Out: &out})
	l.Dump([]byte{0xde, 0xad, 0xbe, 0xef})
	assert.Equal(t, "deadbeef\n", out.String())
}

func TestDefaultLoggerIsSilent(t *testing.T) {
	l := Default()
	require.NotNil(t, l)
	// Default writes to io.Discard and has diagnostics disabled; Dump
	// must not panic even though Out was never set explicitly.
	assert.NotPanics(t, func() { l.Dump([]byte{1, 2, 3}) })
}
