package gen

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Writer writes the outputs of a generation pass to disk with parallel
// execution, skipping files whose content did not change.
type Writer struct {
	cfg     *Config
	workers int
	prune   bool
	dryRun  bool

	// Metrics for performance monitoring
	mu      sync.Mutex
	metrics *WriterMetrics
}

// WriterMetrics tracks what a write pass did.
type WriterMetrics struct {
	FilesWritten   int
	FilesUnchanged int
	FilesRemoved   int
	DebugDumps     int
	TotalBytes     int64
	// Changed lists the written or removed files, sorted.
	Changed []string
}

// NewWriter creates a new writer.
func NewWriter(cfg *Config) *Writer {
	if cfg == nil {
		cfg = MustNewConfig()
	}
	return &Writer{
		cfg:     cfg,
		workers: runtime.GOMAXPROCS(0),
		metrics: &WriterMetrics{},
	}
}

// WithWorkers sets the number of parallel workers.
func (w *Writer) WithWorkers(n int) *Writer {
	if n > 0 {
		w.workers = n
	}
	return w
}

// WithPrune removes generated files of types that no longer qualify.
func (w *Writer) WithPrune(prune bool) *Writer {
	w.prune = prune
	return w
}

// WithDryRun computes changes without touching the file system.
func (w *Writer) WithDryRun(dryRun bool) *Writer {
	w.dryRun = dryRun
	return w
}

// Metrics returns the write metrics.
func (w *Writer) Metrics() *WriterMetrics {
	return w.metrics
}

// Write writes every output of res. Fallback outputs whose round trip
// failed also get their unformatted source dumped next to them with an
// ".error" suffix for debugging.
func (w *Writer) Write(ctx context.Context, res *Result) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(w.workers)

	for _, out := range res.Outputs {
		eg.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return w.writeFile(out)
			}
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	if w.prune {
		stale, err := w.staleFiles(res)
		if err != nil {
			return err
		}
		for _, p := range stale {
			if err := w.remove(p); err != nil {
				return err
			}
		}
	}
	sort.Strings(w.metrics.Changed)
	return nil
}

// writeFile writes a single output.
func (w *Writer) writeFile(out *Output) error {
	log := w.cfg.logger()
	if out.Raw != nil && !w.dryRun {
		// Best effort: the dump only helps debugging a failed round trip.
		_ = os.WriteFile(out.Path+".error", out.Raw, 0o644)
		w.mu.Lock()
		w.metrics.DebugDumps++
		w.mu.Unlock()
	}

	current, err := os.ReadFile(out.Path)
	if err == nil && bytes.Equal(current, out.Source) {
		w.mu.Lock()
		w.metrics.FilesUnchanged++
		w.mu.Unlock()
		return nil
	}
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return NewGenerationError("write", out.Path, "read existing file", err)
	}

	if !w.dryRun {
		if err := os.MkdirAll(filepath.Dir(out.Path), 0o755); err != nil {
			return NewGenerationError("write", out.Path, "create directory", err)
		}
		if err := os.WriteFile(out.Path, out.Source, 0o644); err != nil {
			return NewGenerationError("write", out.Path, "", err)
		}
		log.Debug("file written", zap.String("path", out.Path))
	}

	w.mu.Lock()
	w.metrics.FilesWritten++
	w.metrics.TotalBytes += int64(len(out.Source))
	w.metrics.Changed = append(w.metrics.Changed, out.Path)
	w.mu.Unlock()
	return nil
}

func (w *Writer) remove(p string) error {
	if !w.dryRun {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return NewGenerationError("prune", p, "", err)
		}
		w.cfg.logger().Debug("stale file removed", zap.String("path", p))
	}
	w.mu.Lock()
	w.metrics.FilesRemoved++
	w.metrics.Changed = append(w.metrics.Changed, p)
	w.mu.Unlock()
	return nil
}

// Check returns the files a Write with pruning would change, sorted. It
// never modifies the file system.
func (w *Writer) Check(res *Result) ([]string, error) {
	var changed []string
	for _, out := range res.Outputs {
		current, err := os.ReadFile(out.Path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, NewGenerationError("check", out.Path, "read existing file", err)
		}
		if err != nil || !bytes.Equal(current, out.Source) {
			changed = append(changed, out.Path)
		}
	}
	stale, err := w.staleFiles(res)
	if err != nil {
		return nil, err
	}
	changed = append(changed, stale...)
	sort.Strings(changed)
	return changed, nil
}

// staleFiles returns generated files in the processed directories that
// belong to no output of res.
func (w *Writer) staleFiles(res *Result) ([]string, error) {
	owned := make(map[string]bool, len(res.Outputs)+len(res.Keep))
	for _, out := range res.Outputs {
		owned[filepath.Clean(out.Path)] = true
	}
	for _, p := range res.Keep {
		owned[filepath.Clean(p)] = true
	}
	var stale []string
	for _, dir := range res.Dirs {
		matches, err := filepath.Glob(filepath.Join(dir, "*"+w.cfg.FileSuffix))
		if err != nil {
			return nil, NewGenerationError("prune", dir, "list generated files", err)
		}
		for _, p := range matches {
			if owned[filepath.Clean(p)] {
				continue
			}
			ok, err := w.isGenerated(p)
			if err != nil {
				return nil, err
			}
			if ok {
				stale = append(stale, p)
			}
		}
	}
	slices.Sort(stale)
	return slices.Compact(stale), nil
}

// isGenerated reports whether the file at p starts with the generator
// header, so hand-written files sharing the suffix are never removed.
func (w *Writer) isGenerated(p string) (bool, error) {
	f, err := os.Open(p)
	if err != nil {
		return false, NewGenerationError("prune", p, "open", err)
	}
	defer f.Close()
	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false, nil
	}
	return strings.TrimRight(line, "\r\n") == w.cfg.Header, nil
}
