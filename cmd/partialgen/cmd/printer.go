package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/syssam/partialgen/compiler/diag"
)

// printer renders diagnostics and summaries for humans.
type printer struct {
	w       io.Writer
	pos     *color.Color
	info    *color.Color
	warning *color.Color
	err     *color.Color
	ok      *color.Color
}

var _ diag.Reporter = (*printer)(nil)

func newPrinter(w io.Writer, noColor bool) *printer {
	p := &printer{
		w:       w,
		pos:     color.New(color.Bold),
		info:    color.New(color.FgCyan),
		warning: color.New(color.FgYellow, color.Bold),
		err:     color.New(color.FgRed, color.Bold),
		ok:      color.New(color.FgGreen),
	}
	for _, c := range []*color.Color{p.pos, p.info, p.warning, p.err, p.ok} {
		if noColor {
			c.DisableColor()
		} else {
			c.EnableColor()
		}
	}
	return p
}

func (p *printer) severity(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warning
	}
	return p.info
}

// Report implements diag.Reporter.
func (p *printer) Report(d diag.Diagnostic) {
	var b strings.Builder
	if d.Pos.IsValid() {
		b.WriteString(p.pos.Sprint(d.Pos.String()))
		b.WriteString(": ")
	}
	b.WriteString(p.severity(d.Severity).Sprintf("%s %s", strings.ToLower(d.Severity.String()), d.Code.ID()))
	b.WriteString(": ")
	b.WriteString(d.Message)
	fmt.Fprintln(p.w, b.String())
}

func (p *printer) success(format string, args ...any) {
	fmt.Fprintln(p.w, p.ok.Sprintf("✓ "+format, args...))
}

func (p *printer) failure(format string, args ...any) {
	fmt.Fprintln(p.w, p.err.Sprintf("✗ "+format, args...))
}

func (p *printer) list(paths []string) {
	for _, path := range paths {
		fmt.Fprintf(p.w, "  - %s\n", path)
	}
}
