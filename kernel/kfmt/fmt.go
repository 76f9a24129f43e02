// Package kfmt implements the kernel's formatted output and panic reporting.
package kfmt

import (
	"io"
	"strconv"
)

// maxPadLen caps the width accepted by a formatting verb.
const maxPadLen = 64

var (
	errMissingArg   = []byte("(MISSING)")
	errWrongArgType = []byte("%!(WRONGTYPE)")
	errNoVerb       = []byte("%!(NOVERB)")
	errExtraArg     = []byte("%!(EXTRA)")

	// earlyPrintBuffer stores Printf output emitted before a terminal
	// has been attached via SetOutputSink.
	earlyPrintBuffer ringBuffer

	// outputSink is the io.Writer where Printf sends its output. While it
	// is nil, output is captured by earlyPrintBuffer.
	outputSink io.Writer
)

// SetOutputSink sets the default target for calls to Printf to w and flushes
// any data accumulated in the early print buffer to it.
func SetOutputSink(w io.Writer) {
	outputSink = w
	if w != nil {
		_, _ = io.Copy(w, &earlyPrintBuffer)
	}
}

// OutputSink returns the writer installed by SetOutputSink.
func OutputSink() io.Writer {
	return outputSink
}

// Printf provides a minimal printf implementation for kernel diagnostics.
// It supports the following subset of formatting verbs:
//
//	%s  string or byte slice
//	%c  a single byte
//	%d  base 10 integer
//	%o  base 8 integer
//	%x  base 16 integer, lower-case a-f
//	%t  "true" or "false"
//
// A decimal width may precede the verb. Strings and base-10 integers are
// left-padded with spaces; base-8 and base-16 integers with zeroes.
//
// Output goes to the sink registered with SetOutputSink or, before one is
// attached, to a ring buffer that is flushed once a sink becomes available.
func Printf(format string, args ...interface{}) {
	Fprintf(outputSink, format, args...)
}

// Fprintf behaves exactly like Printf but it writes the formatted output to
// the specified io.Writer.
func Fprintf(w io.Writer, format string, args ...interface{}) {
	var (
		out     []byte
		argIdx  int
		fmtLen  = len(format)
		padLen  int
		hasVerb bool
	)

	for i := 0; i < fmtLen; i++ {
		if format[i] != '%' {
			out = append(out, format[i])
			continue
		}

		padLen, hasVerb = 0, false
	parseVerb:
		for i++; i < fmtLen; i++ {
			ch := format[i]
			switch {
			case ch == '%':
				out = append(out, '%')
				hasVerb = true
				break parseVerb
			case ch >= '0' && ch <= '9':
				if padLen = padLen*10 + int(ch-'0'); padLen > maxPadLen {
					padLen = maxPadLen
				}
			case ch == 'd' || ch == 'o' || ch == 'x' || ch == 's' || ch == 't' || ch == 'c':
				hasVerb = true
				if argIdx >= len(args) {
					out = append(out, errMissingArg...)
					break parseVerb
				}

				out = appendArg(out, ch, args[argIdx], padLen)
				argIdx++
				break parseVerb
			default:
				// unknown verb; report it and resume after it
				out = append(out, errNoVerb...)
				hasVerb = true
				break parseVerb
			}
		}

		if !hasVerb {
			out = append(out, errNoVerb...)
		}
	}

	for ; argIdx < len(args); argIdx++ {
		out = append(out, errExtraArg...)
	}

	doWrite(w, out)
}

func appendArg(out []byte, verb byte, arg interface{}, padLen int) []byte {
	switch verb {
	case 'd':
		return appendInt(out, arg, 10, padLen)
	case 'o':
		return appendInt(out, arg, 8, padLen)
	case 'x':
		return appendInt(out, arg, 16, padLen)
	case 's':
		return appendString(out, arg, padLen)
	case 'c':
		return appendChar(out, arg)
	default:
		return appendBool(out, arg)
	}
}

func appendBool(out []byte, v interface{}) []byte {
	b, ok := v.(bool)
	if !ok {
		return append(out, errWrongArgType...)
	}

	return strconv.AppendBool(out, b)
}

func appendChar(out []byte, v interface{}) []byte {
	switch ch := v.(type) {
	case byte:
		return append(out, ch)
	case rune:
		return append(out, byte(ch))
	default:
		return append(out, errWrongArgType...)
	}
}

func appendString(out []byte, v interface{}, padLen int) []byte {
	switch s := v.(type) {
	case string:
		out = appendRepeat(out, ' ', padLen-len(s))
		return append(out, s...)
	case []byte:
		out = appendRepeat(out, ' ', padLen-len(s))
		return append(out, s...)
	default:
		return append(out, errWrongArgType...)
	}
}

func appendRepeat(out []byte, ch byte, count int) []byte {
	for ; count > 0; count-- {
		out = append(out, ch)
	}
	return out
}

// appendInt formats v in the requested base. Negative values keep their sign
// in front of any zero padding.
func appendInt(out []byte, v interface{}, base, padLen int) []byte {
	var (
		uval uint64
		neg  bool
	)

	switch t := v.(type) {
	case uint8:
		uval = uint64(t)
	case uint16:
		uval = uint64(t)
	case uint32:
		uval = uint64(t)
	case uint64:
		uval = t
	case uint:
		uval = uint64(t)
	case uintptr:
		uval = uint64(t)
	case int8:
		uval, neg = abs(int64(t))
	case int16:
		uval, neg = abs(int64(t))
	case int32:
		uval, neg = abs(int64(t))
	case int64:
		uval, neg = abs(t)
	case int:
		uval, neg = abs(int64(t))
	default:
		return append(out, errWrongArgType...)
	}

	var numBuf [64]byte
	digits := strconv.AppendUint(numBuf[:0], uval, base)

	width := len(digits)
	if neg {
		width++
	}

	if base == 10 {
		out = appendRepeat(out, ' ', padLen-width)
		if neg {
			out = append(out, '-')
		}
	} else {
		if neg {
			out = append(out, '-')
		}
		out = appendRepeat(out, '0', padLen-width)
	}

	return append(out, digits...)
}

func abs(v int64) (uint64, bool) {
	if v < 0 {
		return uint64(-v), true
	}
	return uint64(v), false
}

func doWrite(w io.Writer, p []byte) {
	if len(p) == 0 {
		return
	}

	if w != nil {
		_, _ = w.Write(p)
		return
	}

	_, _ = earlyPrintBuffer.Write(p)
}
