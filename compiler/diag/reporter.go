package diag

// Reporter receives diagnostics from pipeline stages.
type Reporter interface {
	Report(d Diagnostic)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(Diagnostic)

// Report implements Reporter.
func (f ReporterFunc) Report(d Diagnostic) { f(d) }

// MultiReporter fans diagnostics out to several reporters.
type MultiReporter []Reporter

// Report implements Reporter.
func (m MultiReporter) Report(d Diagnostic) {
	for _, r := range m {
		if r != nil {
			r.Report(d)
		}
	}
}

// MinSeverity forwards only diagnostics at or above sev.
func MinSeverity(sev Severity, next Reporter) Reporter {
	return ReporterFunc(func(d Diagnostic) {
		if d.Severity >= sev {
			next.Report(d)
		}
	})
}

// ReportAll sends every diagnostic in ds to r.
func ReportAll(r Reporter, ds []Diagnostic) {
	for _, d := range ds {
		r.Report(d)
	}
}
