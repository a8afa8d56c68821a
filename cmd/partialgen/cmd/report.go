package cmd

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/syssam/partialgen/compiler/gen"
)

type (
	report struct {
		Stats       reportStats        `yaml:"stats"`
		Outputs     []reportOutput     `yaml:"outputs,omitempty"`
		Diagnostics []reportDiagnostic `yaml:"diagnostics,omitempty"`
	}

	reportStats struct {
		Packages   int    `yaml:"packages"`
		Candidates int    `yaml:"candidates"`
		Generated  int    `yaml:"generated"`
		Cached     int    `yaml:"cached"`
		Skipped    int    `yaml:"skipped"`
		Failed     int    `yaml:"failed"`
		Duration   string `yaml:"duration"`
	}

	reportOutput struct {
		Type     string `yaml:"type"`
		Package  string `yaml:"package"`
		Path     string `yaml:"path"`
		Cached   bool   `yaml:"cached,omitempty"`
		Fallback bool   `yaml:"fallback,omitempty"`
	}

	reportDiagnostic struct {
		Severity string `yaml:"severity"`
		Code     string `yaml:"code"`
		Type     string `yaml:"type,omitempty"`
		Position string `yaml:"position,omitempty"`
		Message  string `yaml:"message"`
	}
)

func newReport(res *gen.Result) *report {
	r := &report{
		Stats: reportStats{
			Packages:   res.Stats.Packages,
			Candidates: res.Stats.Candidates,
			Generated:  res.Stats.Generated,
			Cached:     res.Stats.Cached,
			Skipped:    res.Stats.Skipped,
			Failed:     res.Stats.Failed,
			Duration:   res.Stats.Duration.String(),
		},
	}
	for _, out := range res.Outputs {
		r.Outputs = append(r.Outputs, reportOutput{
			Type:     out.Type,
			Package:  out.Package,
			Path:     out.Path,
			Cached:   out.Cached,
			Fallback: out.Fallback,
		})
	}
	for _, d := range res.Diagnostics {
		rd := reportDiagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Type:     d.Type,
			Message:  d.Message,
		}
		if d.Pos.IsValid() {
			rd.Position = d.Pos.String()
		}
		r.Diagnostics = append(r.Diagnostics, rd)
	}
	return r
}

// writeReport writes the YAML report of res to path.
func writeReport(path string, res *gen.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create report directory")
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(newReport(res)); err != nil {
		f.Close()
		return errors.Wrap(err, "encode report")
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return errors.Wrap(err, "encode report")
	}
	return errors.Wrap(f.Close(), "write report")
}
