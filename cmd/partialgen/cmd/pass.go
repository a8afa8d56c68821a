package cmd

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/syssam/partialgen/compiler/diag"
	"github.com/syssam/partialgen/compiler/gen"
	"github.com/syssam/partialgen/compiler/load"
	"github.com/syssam/partialgen/internal/logger"
)

// pass runs the generator once over the packages matching patterns.
type pass struct {
	settings *Settings
	patterns []string
	log      *zap.Logger
	cfg      *gen.Config
	out      *printer
	min      diag.Severity
}

func newPass(s *Settings, patterns []string, stdout, stderr io.Writer) (*pass, error) {
	if len(patterns) == 0 {
		patterns = []string{"./..."}
	}
	log := logger.New(logger.Options{
		JSON:   s.JSONLog,
		Debug:  s.Debug,
		Color:  !s.NoColor,
		Output: stderr,
	})
	minSev, err := s.severity()
	if err != nil {
		return nil, err
	}
	opts, err := s.options(log)
	if err != nil {
		return nil, err
	}
	cfg, err := gen.NewConfig(opts...)
	if err != nil {
		return nil, err
	}
	return &pass{
		settings: s,
		patterns: patterns,
		log:      log,
		cfg:      cfg,
		out:      newPrinter(stdout, s.NoColor),
		min:      minSev,
	}, nil
}

// run loads the packages and generates their partial files. Diagnostics
// are printed and the report is written when configured.
func (p *pass) run(ctx context.Context) (*gen.Result, error) {
	prog, err := load.Packages(ctx, load.Config{
		Dir:        p.settings.Dir,
		BuildFlags: p.settings.buildFlags(),
	}, p.patterns...)
	if err != nil {
		return nil, err
	}
	res, err := gen.New(p.cfg).Generate(ctx, prog.Packages...)
	if err != nil {
		return nil, err
	}
	diag.ReportAll(p.reporter(), res.Diagnostics)
	if p.settings.Report != "" {
		if err := writeReport(p.settings.Report, res); err != nil {
			return nil, err
		}
		p.log.Debug("report written", zap.String("path", p.settings.Report))
	}
	return res, nil
}

// reporter prints diagnostics at or above the configured severity and logs
// all of them at debug level.
func (p *pass) reporter() diag.Reporter {
	return diag.MultiReporter{
		diag.MinSeverity(p.min, p.out),
		logReporter(p.log),
	}
}

func logReporter(log *zap.Logger) diag.Reporter {
	return diag.ReporterFunc(func(d diag.Diagnostic) {
		log.Debug("diagnostic",
			zap.Stringer("severity", d.Severity),
			zap.Stringer("code", d.Code),
			zap.String("type", d.Type),
			zap.String("pos", d.Pos.String()),
			zap.String("message", d.Message),
		)
	})
}

// writer returns a writer configured from the settings.
func (p *pass) writer() *gen.Writer {
	return gen.NewWriter(p.cfg).
		WithWorkers(p.settings.Workers).
		WithPrune(p.settings.Prune).
		WithDryRun(p.settings.DryRun)
}

func (p *pass) sync() {
	_ = p.log.Sync()
}
