package busybee

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Console renders access log records as aligned, colored lines,
// one line per record.  It is safe for concurrent use.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	sty consoleStyles
}

type consoleStyles struct {
	dim    lipgloss.Style
	path   lipgloss.Style
	id     lipgloss.Style
	fast   lipgloss.Style
	warn   lipgloss.Style
	slow   lipgloss.Style
	status map[string]lipgloss.Style
	method map[string]lipgloss.Style
	other  lipgloss.Style
}

// NewConsole creates a Console writing to w.
// If w is nil, os.Stdout is used.
func NewConsole(w io.Writer) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{
		w:   w,
		sty: newConsoleStyles(),
	}
}

func newConsoleStyles() consoleStyles {
	var (
		red     = lipgloss.Color("1")
		green   = lipgloss.Color("2")
		yellow  = lipgloss.Color("3")
		blue    = lipgloss.Color("4")
		magenta = lipgloss.Color("5")
		cyan    = lipgloss.Color("6")
		white   = lipgloss.Color("7")
	)
	return consoleStyles{
		dim:  lipgloss.NewStyle().Faint(true),
		path: lipgloss.NewStyle().Bold(true),
		id:   lipgloss.NewStyle().Foreground(cyan),
		fast: lipgloss.NewStyle().Foreground(green),
		warn: lipgloss.NewStyle().Foreground(yellow),
		slow: lipgloss.NewStyle().Foreground(red).Bold(true),
		status: map[string]lipgloss.Style{
			"2xx": lipgloss.NewStyle().Foreground(green).Bold(true),
			"3xx": lipgloss.NewStyle().Foreground(blue).Bold(true),
			"4xx": lipgloss.NewStyle().Foreground(yellow).Bold(true),
			"5xx": lipgloss.NewStyle().Foreground(red).Bold(true),
		},
		method: map[string]lipgloss.Style{
			"GET":     lipgloss.NewStyle().Foreground(green),
			"POST":    lipgloss.NewStyle().Foreground(yellow),
			"PUT":     lipgloss.NewStyle().Foreground(blue),
			"PATCH":   lipgloss.NewStyle().Foreground(magenta),
			"DELETE":  lipgloss.NewStyle().Foreground(red),
			"HEAD":    lipgloss.NewStyle().Foreground(cyan),
			"OPTIONS": lipgloss.NewStyle().Foreground(white),
		},
		other: lipgloss.NewStyle(),
	}
}

func (c *Console) statusStyle(code int) lipgloss.Style {
	if s, ok := c.sty.status[StatusFamily(code)]; ok {
		return s
	}
	return c.sty.other
}

func (c *Console) methodStyle(method string) lipgloss.Style {
	if s, ok := c.sty.method[strings.ToUpper(method)]; ok {
		return s
	}
	return c.sty.other
}

func (c *Console) tierStyle(tier string) lipgloss.Style {
	switch tier {
	case TierSlow.String():
		return c.sty.slow
	case TierWarn.String():
		return c.sty.warn
	default:
		return c.sty.fast
	}
}

// Render formats one record as a single colored line without the
// trailing newline.
func (c *Console) Render(al *AccessLog) string {
	size := "-"
	if al.ResponseLength > 0 {
		size = humanize.Bytes(uint64(al.ResponseLength))
	}
	remote := al.RemoteAddr
	if remote == "" {
		remote = "-"
	}

	var b strings.Builder
	b.WriteString(c.sty.dim.Render(al.LoggedAt.Format("2006/01/02 - 15:04:05")))
	b.WriteByte(' ')
	b.WriteString(c.statusStyle(al.StatusCode).Render(fmt.Sprintf("%-4d", al.StatusCode)))
	b.WriteByte(' ')
	b.WriteString(c.tierStyle(al.LatencyTier).Render(fmt.Sprintf("%9.2fms", al.ElapsedMS)))
	b.WriteByte(' ')
	b.WriteString(c.sty.dim.Render(fmt.Sprintf("%8s", size)))
	b.WriteByte(' ')
	b.WriteString(c.sty.dim.Render(fmt.Sprintf("%-15s", remote)))
	b.WriteByte(' ')
	b.WriteString(c.methodStyle(al.Method).Render(fmt.Sprintf("%-7s", al.Method)))
	b.WriteByte(' ')
	b.WriteString(c.sty.path.Render(fmt.Sprintf("%-30s", al.RequestURI)))
	b.WriteByte(' ')
	b.WriteString(c.sty.id.Render(al.RequestID))
	return b.String()
}

// Print writes one rendered line for al.
func (c *Console) Print(al *AccessLog) {
	line := c.Render(al)
	c.mu.Lock()
	fmt.Fprintln(c.w, line)
	c.mu.Unlock()
}
