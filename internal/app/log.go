package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"mdvault/internal/mdv"
)

// mdvHandler is a slog.Handler that writes one tab-separated line per record:
//
//	<timestamp>\t<level>\t<opID>\t<message>\t<key=value ...>
//
// Values containing whitespace are quoted so a line always stays a line.
// Handlers derived with WithAttrs or WithGroup share the writer and its lock.
type mdvHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	opID   string
	prefix string // pre-rendered attrs from WithAttrs
	group  string // dotted key prefix from WithGroup
}

func newMDVHandler(w io.Writer, opID string, level slog.Leveler) *mdvHandler {
	return &mdvHandler{mu: &sync.Mutex{}, w: w, level: level, opID: opID}
}

func (h *mdvHandler) Enabled(_ context.Context, l slog.Level) bool {
	return h.level == nil || l >= h.level.Level()
}

func (h *mdvHandler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\t%s\t%s\t%s", r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level, h.opID, r.Message)
	buf.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *mdvHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	var buf bytes.Buffer
	for _, a := range attrs {
		appendAttr(&buf, h.group, a)
	}
	h2 := *h
	h2.prefix = h.prefix + buf.String()
	return &h2
}

func (h *mdvHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.group = h.group + name + "."
	return &h2
}

func appendAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub += a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(buf, sub, ga)
		}
		return
	}

	v := a.Value.String()
	if strings.ContainsAny(v, " \t\n\r\"") {
		v = strconv.Quote(v)
	}
	fmt.Fprintf(buf, "\t%s%s=%s", group, a.Key, v)
}

// parseLevel maps a config log level onto a slog.Level. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return l, nil
}

// newLogger creates a structured logger that writes to both logDir/mdvault.log
// and stderr. It returns the slog.Logger, the open log file (for cleanup), and
// any error.
func newLogger(logDir, opID string, level slog.Leveler) (*slog.Logger, *os.File, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	f, err := os.OpenFile(filepath.Join(logDir, "mdvault.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	return slog.New(newMDVHandler(io.MultiWriter(f, os.Stderr), opID, level)), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the mdv.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

var _ mdv.Logger = (*slogAdapter)(nil)

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
