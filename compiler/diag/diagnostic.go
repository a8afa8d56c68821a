package diag

import (
	"fmt"
	"go/token"
	"strings"
)

// Diagnostic is a single finding of the generator.
type Diagnostic struct {
	Severity Severity       `msgpack:"severity"`
	Code     Code           `msgpack:"code"`
	Type     string         `msgpack:"type,omitempty"`
	Pos      token.Position `msgpack:"pos"`
	Message  string         `msgpack:"message"`
}

// New returns a diagnostic.
func New(sev Severity, code Code, typ string, pos token.Position, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Type:     typ,
		Pos:      pos,
		Message:  msg,
	}
}

// Info returns an informational diagnostic.
func Info(code Code, typ string, pos token.Position, format string, args ...any) Diagnostic {
	return New(SevInfo, code, typ, pos, fmt.Sprintf(format, args...))
}

// Warning returns a warning diagnostic.
func Warning(code Code, typ string, pos token.Position, format string, args ...any) Diagnostic {
	return New(SevWarning, code, typ, pos, fmt.Sprintf(format, args...))
}

// Failure converts a failed stage into diagnostics. The first one reads
// "<stage> failed for type <typ>: <msg>"; a second, informational one
// carries the stack trace when trace is not empty. Failures are warnings:
// they degrade output for one type but never fail the build.
func Failure(code Code, typ string, pos token.Position, msg, trace string) []Diagnostic {
	out := []Diagnostic{
		New(SevWarning, code, typ, pos, fmt.Sprintf("%s for type %s: %s", failurePrefix(code), typ, msg)),
	}
	if trace = strings.TrimSpace(trace); trace != "" {
		out = append(out, New(SevInfo, traceCode(code), typ, pos, fmt.Sprintf("stack trace for type %s:\n%s", typ, trace)))
	}
	return out
}

func failurePrefix(code Code) string {
	switch code {
	case SemAnalysisFailed:
		return "semantic analysis failed"
	case SynFailed, EmitFailed:
		return "synthesis failed"
	}
	return strings.ToLower(code.Title())
}

func traceCode(code Code) Code {
	if code == SemAnalysisFailed {
		return SemStackTrace
	}
	return SynStackTrace
}

// String renders the diagnostic on one line (plus trace lines), in the
// file:line:col form understood by editors.
func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Pos.IsValid() {
		b.WriteString(d.Pos.String())
		b.WriteString(": ")
	}
	b.WriteString(strings.ToLower(d.Severity.String()))
	b.WriteString(" ")
	b.WriteString(d.Code.ID())
	b.WriteString(": ")
	b.WriteString(d.Message)
	return b.String()
}
