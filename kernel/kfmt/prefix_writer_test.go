package kfmt

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrefixWriter(t *testing.T) {
	var (
		buf bytes.Buffer
		w   = PrefixWriter{Sink: &buf, Prefix: []byte("[kuzne] ")}
	)

	specs := []struct {
		input string
		exp   string
	}{
		{"", ""},
		{"\n", "[kuzne] \n"},
		{"no line break anywhere", "[kuzne] no line break anywhere"},
		{"line feed at the end\n", "[kuzne] line feed at the end\n"},
		{"\nthe big brown\nfox jumped\nover the lazy\ndog", "[kuzne] \n[kuzne] the big brown\n[kuzne] fox jumped\n[kuzne] over the lazy\n[kuzne] dog"},
	}

	for specIndex, spec := range specs {
		buf.Reset()
		w.midLine = false

		n, err := w.Write([]byte(spec.input))
		assert.NoError(t, err, "[spec %d]", specIndex)
		assert.Equal(t, len(spec.input), n, "[spec %d]", specIndex)
		assert.Equal(t, spec.exp, buf.String(), "[spec %d]", specIndex)
	}
}

func TestPrefixWriterAcrossWrites(t *testing.T) {
	var buf bytes.Buffer
	w := PrefixWriter{Sink: &buf, Prefix: []byte("> ")}

	_, _ = w.Write([]byte("load "))
	_, _ = w.Write([]byte("shell.elf\nok"))

	assert.Equal(t, "> load shell.elf\n> ok", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) { return 0, errors.New("write failed") }

func TestPrefixWriterErrors(t *testing.T) {
	w := PrefixWriter{Sink: failingWriter{}, Prefix: []byte("> ")}

	n, err := w.Write([]byte("data"))
	assert.Error(t, err)
	assert.Equal(t, 0, n)
}
