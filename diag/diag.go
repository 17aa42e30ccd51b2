// Package diag builds the structured logger shared by the linker and
// the ELF object writer, and implements the optional diagnostic
// side-channel that prints a linked code section as hex.
//
// This is the generalized descendant of the teacher's emit.go, whose
// BufferWrapper.Write printed " %x" for every single byte written to
// stderr unconditionally. Here the hex dump is opt-in, scoped to the
// final linked code section (not every intermediate write), and
// implemented as a fan-out slog.Handler rather than an fmt.Fprintf
// sprinkled through the writer.
package diag

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

// dumpAttrKey is the slog attribute key Dump logs the code bytes
// under; hexDumpHandler looks for exactly this key.
const dumpAttrKey = "code"

// Options controls the optional diagnostic side channel.
type Options struct {
	// Diagnostics, when true, causes Dump to actually print; when
	// false Dump is a no-op. Mirrors spec's "optional mode (controlled
	// by a configuration flag)".
	Diagnostics bool

	// Out is where the hex dump is written (two hex digits per byte,
	// one line ending in a newline). Defaults to io.Discard if nil.
	Out io.Writer
}

// hexDumpHandler is a slog.Handler that ignores every record except
// one carrying a dumpAttrKey attribute, whose []byte value it renders
// as a hex dump to out. Fanned out alongside the ordinary text
// handler, it lets Dump go through the same slog plumbing as every
// other log call instead of writing straight to an io.Writer.
type hexDumpHandler struct {
	out io.Writer
}

func (hexDumpHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h hexDumpHandler) Handle(_ context.Context, record slog.Record) error {
	record.Attrs(func(a slog.Attr) bool {
		code, ok := a.Value.Any().([]byte)
		if a.Key != dumpAttrKey || !ok {
			return true
		}
		for _, b := range code {
			fmt.Fprintf(h.out, "%02x", b)
		}
		fmt.Fprintln(h.out)
		return false
	})
	return nil
}

func (h hexDumpHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h hexDumpHandler) WithGroup(string) slog.Handler      { return h }

// Logger wraps a *slog.Logger along with the diagnostic hex-dump sink
// configured alongside it.
type Logger struct {
	*slog.Logger
	opts Options
}

// New builds a Logger. When opts.Diagnostics is set, the text handler
// written to textOut is fanned out (via slogmulti.Fanout) alongside
// hexDumpHandler, which captures whatever Dump logs and renders it as
// hex to opts.Out; when Diagnostics is false, Dump is a no-op and no
// fan-out is built at all.
func New(textOut io.Writer, opts Options) *Logger {
	var handler slog.Handler = slog.NewTextHandler(textOut, nil)
	if opts.Diagnostics {
		if opts.Out == nil {
			opts.Out = io.Discard
		}
		handler = slogmulti.Fanout(handler, hexDumpHandler{out: opts.Out})
	}
	return &Logger{Logger: slog.New(handler), opts: opts}
}

// Default returns a Logger with diagnostics disabled, logging to
// io.Discard, used whenever a caller passes a nil Logger into package
// link or package elfobj.
func Default() *Logger {
	return New(io.Discard, Options{})
}

// Dump logs code, the linked text section, so that the fanned-out
// hexDumpHandler renders it as two hex digits per byte on one line,
// if and only if diagnostics are enabled. This is spec's "diagnostic
// side channel": the caller is link.Link after applying every
// relocation, so the dumped bytes are the final, patched code
// section.
func (l *Logger) Dump(code []byte) {
	if !l.opts.Diagnostics {
		return
	}
	l.Logger.Debug("code dump", dumpAttrKey, code)
}
