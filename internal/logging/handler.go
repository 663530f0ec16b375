package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// palette holds the colours used on a terminal. A nil palette prints plain
// text.
type palette struct {
	time  *color.Color
	key   *color.Color
	level map[slog.Level]*color.Color
}

func newPalette() *palette {
	return &palette{
		time: color.New(color.FgHiBlack),
		key:  color.New(color.FgCyan),
		level: map[slog.Level]*color.Color{
			LevelTrace:      color.New(color.FgHiBlack),
			slog.LevelDebug: color.New(color.FgMagenta),
			slog.LevelInfo:  color.New(color.FgGreen),
			slog.LevelWarn:  color.New(color.FgYellow),
			slog.LevelError: color.New(color.FgRed, color.Bold),
		},
	}
}

func (p *palette) paint(c *color.Color, s string) string {
	if p == nil || c == nil {
		return s
	}
	return c.Sprint(s)
}

func (p *palette) paintTime(s string) string {
	if p == nil {
		return s
	}
	return p.paint(p.time, s)
}

func (p *palette) paintKey(s string) string {
	if p == nil {
		return s
	}
	return p.paint(p.key, s)
}

// Handler writes one line per record in the form
//
//	15:04:05 INFO  message key=value group.key=value
//
// Values under secret-looking keys, or that look like tokens, are masked.
type Handler struct {
	level  slog.Leveler
	out    io.Writer
	mu     *sync.Mutex
	colors *palette

	// prefix is the rendered WithAttrs output; group is the dotted prefix
	// applied to record attributes.
	prefix string
	group  string
}

// NewHandler returns a text handler for out. Colours are used when out is a
// terminal that accepts them.
func NewHandler(out io.Writer, opts *slog.HandlerOptions) *Handler {
	h := &Handler{out: out, mu: &sync.Mutex{}, level: slog.LevelInfo}
	if opts != nil && opts.Level != nil {
		h.level = opts.Level
	}
	if SupportsColor(out) {
		h.colors = newPalette()
	}
	return h
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	var buf bytes.Buffer
	if !r.Time.IsZero() {
		buf.WriteString(h.colors.paintTime(r.Time.Format("15:04:05")))
		buf.WriteByte(' ')
	}
	name, c := h.levelName(r.Level)
	fmt.Fprintf(&buf, "%s%s %s", h.colors.paint(c, name), strings.Repeat(" ", 5-len(name)), r.Message)
	buf.WriteString(h.prefix)
	r.Attrs(func(a slog.Attr) bool {
		h.writeAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *Handler) levelName(l slog.Level) (string, *color.Color) {
	var name string
	var base slog.Level
	switch {
	case l >= slog.LevelError:
		name, base = "ERROR", slog.LevelError
	case l >= slog.LevelWarn:
		name, base = "WARN", slog.LevelWarn
	case l >= slog.LevelInfo:
		name, base = "INFO", slog.LevelInfo
	case l > LevelTrace:
		name, base = "DEBUG", slog.LevelDebug
	default:
		name, base = "TRACE", LevelTrace
	}
	if h.colors == nil {
		return name, nil
	}
	return name, h.colors.level[base]
}

func (h *Handler) writeAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		sub := group
		if a.Key != "" {
			sub = join(group, a.Key)
		}
		for _, ga := range a.Value.Group() {
			h.writeAttr(buf, sub, ga)
		}
		return
	}

	var value any = a.Value.Any()
	if str, ok := value.(string); ok {
		value = Redact(a.Key, str)
	} else if ShouldMask(a.Key) {
		value = MaskValue(a.Value.String())
	}
	fmt.Fprintf(buf, " %s=%v", h.colors.paintKey(join(group, a.Key)), value)
}

func join(group, key string) string {
	if group == "" {
		return key
	}
	return group + "." + key
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	var buf bytes.Buffer
	for _, a := range attrs {
		h.writeAttr(&buf, h.group, a)
	}
	next := *h
	next.prefix = h.prefix + buf.String()
	return &next
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.group = join(h.group, name)
	return &next
}
