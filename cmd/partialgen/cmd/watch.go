package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher triggers regeneration when Go sources of the watched package
// directories change. Bursts of events are debounced into one pass.
type watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	suffix   string
	log      *zap.Logger
	dirs     map[string]bool
}

func newWatcher(debounce time.Duration, suffix string, log *zap.Logger) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create file watcher")
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	return &watcher{
		fs:       fs,
		debounce: debounce,
		suffix:   suffix,
		log:      log,
		dirs:     make(map[string]bool),
	}, nil
}

// add starts watching the directories not watched yet.
func (w *watcher) add(dirs []string) error {
	for _, dir := range dirs {
		if w.dirs[dir] {
			continue
		}
		if err := w.fs.Add(dir); err != nil {
			return errors.Wrapf(err, "watch %s", dir)
		}
		w.dirs[dir] = true
		w.log.Debug("watching directory", zap.String("dir", dir))
	}
	return nil
}

func (w *watcher) close() error {
	return w.fs.Close()
}

// relevant reports whether ev may change the generated files. Generated
// files and editor temporaries are ignored.
func (w *watcher) relevant(ev fsnotify.Event) bool {
	name := filepath.Base(ev.Name)
	switch {
	case !strings.HasSuffix(name, ".go"),
		strings.HasSuffix(name, w.suffix),
		strings.HasPrefix(name, "."),
		strings.HasPrefix(name, "_"):
		return false
	}
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

// run calls regenerate after every debounced burst of relevant events
// until ctx is done. regenerate returns the package directories of the
// pass, which are watched from then on. Failed passes are logged and do
// not stop watching.
func (w *watcher) run(ctx context.Context, regenerate func(context.Context) ([]string, error)) error {
	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.log.Debug("change detected", zap.String("file", ev.Name), zap.String("op", ev.Op.String()))
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			dirs, err := regenerate(ctx)
			if err != nil {
				w.log.Error("regeneration failed", zap.Error(err))
				continue
			}
			if err := w.add(dirs); err != nil {
				w.log.Warn("watch new packages", zap.Error(err))
			}
		}
	}
}

// watch generates once, then regenerates on every change until ctx is
// done.
func (p *pass) watch(ctx context.Context) error {
	w, err := newWatcher(p.settings.Debounce, p.cfg.FileSuffix, p.log)
	if err != nil {
		return err
	}
	defer w.close()

	regenerate := func(ctx context.Context) ([]string, error) {
		res, err := p.generate(ctx)
		if err != nil {
			return nil, err
		}
		return res.Dirs, nil
	}
	dirs, err := regenerate(ctx)
	if err != nil {
		return err
	}
	if err := w.add(dirs); err != nil {
		return err
	}
	p.log.Info("watching for changes", zap.Int("dirs", len(dirs)), zap.Duration("debounce", w.debounce))
	return w.run(ctx, regenerate)
}
