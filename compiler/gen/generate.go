package gen

import (
	"context"
	"go/token"
	"go/types"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/syssam/partialgen/compiler/diag"
	"github.com/syssam/partialgen/compiler/load"
)

// Generator runs the pipeline over loaded packages: candidate filtering,
// semantic resolution, synthesis and emission, one type at a time.
type Generator struct {
	cfg *Config
}

// New returns a generator. A nil config means NewConfig defaults.
func New(cfg *Config) *Generator {
	if cfg == nil {
		cfg = MustNewConfig()
	}
	return &Generator{cfg: cfg}
}

// Config returns the generator configuration.
func (g *Generator) Config() *Config {
	return g.cfg
}

// Result is the outcome of a generation pass.
type Result struct {
	// Outputs holds the generated files in source order.
	Outputs []*Output
	// Diagnostics holds every diagnostic, sorted by position.
	Diagnostics []diag.Diagnostic
	// Keep lists generated files that must not be pruned although no
	// output was produced for them: their type failed semantic analysis.
	Keep []string
	// Dirs lists the directories of the processed packages.
	Dirs []string
	// Stats summarizes the pass.
	Stats Stats
}

// Stats counts what a pass did.
type Stats struct {
	Packages   int
	Candidates int
	Generated  int
	Cached     int
	Skipped    int
	Failed     int
	Duration   time.Duration
}

// HasWarnings reports whether the pass produced warnings or errors.
func (r *Result) HasWarnings() bool {
	for _, d := range r.Diagnostics {
		if d.Severity >= diag.SevWarning {
			return true
		}
	}
	return false
}

// job is one candidate type.
type job struct {
	c *load.Context
	n Node
}

// outcome is what a job produced. Jobs never share outcomes.
type outcome struct {
	out     *Output
	diags   []diag.Diagnostic
	keep    string
	skipped bool
	failed  bool
}

// Generate processes the given packages. Per-type failures are reported
// as diagnostics; the returned error is only set when the context is
// canceled.
func (g *Generator) Generate(ctx context.Context, pkgs ...*load.Context) (*Result, error) {
	start := time.Now()
	log := g.cfg.logger()
	res := &Result{}
	bag := diag.NewBag()

	var jobs []job
	seenDir := make(map[string]bool)
	for _, c := range pkgs {
		if c == nil || c.Types == nil {
			continue
		}
		res.Stats.Packages++
		if c.Dir != "" && !seenDir[c.Dir] {
			seenDir[c.Dir] = true
			res.Dirs = append(res.Dirs, c.Dir)
		}
		if len(c.Errors) > 0 {
			bag.Add(typeErrors(c))
		}
		for _, n := range Nodes(c) {
			if IsCandidate(n) {
				jobs = append(jobs, job{c: c, n: n})
			}
		}
	}
	res.Stats.Candidates = len(jobs)
	log.Debug("candidates collected", zap.Int("packages", res.Stats.Packages), zap.Int("candidates", len(jobs)))

	outcomes := make([]outcome, len(jobs))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(max(g.cfg.Workers, 1))
	for i, j := range jobs {
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return err
			}
			outcomes[i] = g.generateType(egCtx, j.c, j.n)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	paths := make(map[string]string)
	for _, o := range outcomes {
		bag.Add(o.diags...)
		switch {
		case o.skipped:
			res.Stats.Skipped++
		case o.failed:
			res.Stats.Failed++
		}
		if o.keep != "" {
			res.Keep = append(res.Keep, o.keep)
		}
		if o.out == nil {
			continue
		}
		if prev, ok := paths[o.out.Path]; ok {
			bag.Add(diag.Warning(diag.EmitFailed, o.out.Type, token.Position{Filename: o.out.Path},
				"output %s already generated for type %s; type %s skipped", o.out.Path, prev, o.out.Type))
			continue
		}
		paths[o.out.Path] = o.out.Type
		if o.out.Cached {
			res.Stats.Cached++
		} else if !o.out.Fallback {
			res.Stats.Generated++
		}
		res.Outputs = append(res.Outputs, o.out)
	}
	// The group context is done once Wait returns.
	g.store(ctx, outcomes)

	bag.Dedup()
	bag.Sort()
	res.Diagnostics = bag.Items()
	res.Stats.Duration = time.Since(start)
	log.Info("generation finished",
		zap.Int("candidates", res.Stats.Candidates),
		zap.Int("generated", res.Stats.Generated),
		zap.Int("cached", res.Stats.Cached),
		zap.Int("failed", res.Stats.Failed),
		zap.Duration("took", res.Stats.Duration),
	)
	return res, nil
}

// generateType runs resolution, synthesis and emission for one candidate.
func (g *Generator) generateType(ctx context.Context, c *load.Context, n Node) outcome {
	cfg := g.cfg
	log := cfg.logger().With(zap.String("type", n.Name()), zap.String("package", c.Path))

	res := Resolve(cfg, c, n)
	switch res.Kind {
	case KindEmpty:
		log.Debug("not a partial type")
		return outcome{skipped: true}
	case KindError:
		log.Warn("semantic analysis failed", zap.String("error", res.Message))
		return outcome{
			failed: true,
			keep:   OutputPath(cfg, c, n),
			diags:  diag.Failure(diag.SemAnalysisFailed, res.TypeName, res.Pos, res.Message, res.Trace),
		}
	}

	if out, ds, ok := g.lookup(ctx, res); ok {
		log.Debug("cache hit", zap.String("key", res.Key))
		return outcome{out: out, diags: ds}
	}

	sc, err := Synthesize(cfg, res)
	var out *Output
	if err == nil {
		out, err = Emit(sc)
	}
	if err != nil {
		msg := message(err)
		log.Warn("synthesis failed", zap.String("error", msg))
		var ds []diag.Diagnostic
		if sc != nil {
			ds = append(ds, sc.Diagnostics()...)
		}
		ds = append(ds, diag.Failure(diag.SynFailed, res.TypeName, res.Pos, msg, trace(err, cfg.Debug))...)
		fb := Fallback(cfg, c, n, msg)
		fb.Key = res.Key
		if out != nil {
			fb.Raw = out.Raw
		}
		return outcome{out: fb, diags: ds, failed: true}
	}
	log.Debug("synthesized", zap.String("path", out.Path))
	return outcome{out: out, diags: sc.Diagnostics()}
}

// lookup returns the cached output of a resolved type.
func (g *Generator) lookup(ctx context.Context, res CandidateResult) (*Output, []diag.Diagnostic, bool) {
	if g.cfg.Cache == nil {
		return nil, nil, false
	}
	b, err := g.cfg.Cache.Get(ctx, res.Key)
	if err != nil {
		g.cfg.logger().Warn("cache read failed", zap.String("type", res.TypeName), zap.Error(err))
		return nil, nil, false
	}
	if b == nil {
		return nil, nil, false
	}
	e, ok := decodeEntry(b)
	if !ok {
		return nil, nil, false
	}
	return &Output{
		Package:  res.Context.Path,
		Type:     res.TypeName,
		Path:     e.Path,
		Source:   e.Source,
		Key:      res.Key,
		Fallback: e.Fallback,
		Cached:   true,
	}, e.Diagnostics, true
}

// store writes freshly synthesized outputs to the cache once every job has
// finished. Fallback units are not cached.
func (g *Generator) store(ctx context.Context, outcomes []outcome) {
	cache := g.cfg.Cache
	if cache == nil {
		return
	}
	log := g.cfg.logger()
	for _, o := range outcomes {
		if o.out == nil || o.out.Cached || o.out.Fallback || o.out.Key == "" {
			continue
		}
		b, err := encodeEntry(o.out, o.diags)
		if err == nil {
			err = cache.Set(ctx, o.out.Key, b)
		}
		if err != nil {
			log.Warn("cache write failed", zap.String("type", o.out.Type), zap.Error(err))
		}
	}
}

// typeErrors summarizes the type errors tolerated while loading c.
func typeErrors(c *load.Context) diag.Diagnostic {
	var pos token.Position
	if te, ok := c.Errors[0].(types.Error); ok {
		pos = c.Position(te.Pos)
	}
	return diag.Info(diag.LoadTypeErrors, "", pos, "package %s has %d type errors; first: %v", c.Path, len(c.Errors), c.Errors[0])
}
