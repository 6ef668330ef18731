package mosaic

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultConfigDebounce = 100 * time.Millisecond

// ConfigWatcher reloads a config file when it changes on disk. Editors often
// replace files instead of writing them, so the parent directory is watched.
type ConfigWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	log      Logger
	debounce time.Duration
	onChange func(Config)
}

func NewConfigWatcher(path string, log Logger, onChange func(Config)) (*ConfigWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", abs, err)
	}
	return &ConfigWatcher{
		path:     abs,
		watcher:  w,
		log:      orNop(log),
		debounce: DefaultConfigDebounce,
		onChange: onChange,
	}, nil
}

// Run delivers reloaded configs until ctx is done. Files that fail to parse
// or validate are logged and skipped.
func (w *ConfigWatcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var (
		timer   *time.Timer
		pending <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			pending = timer.C
		case <-pending:
			pending = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warnf("config: watcher: %v", err)
		}
	}
}

func (w *ConfigWatcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.log.Warnf("config: reload %s: %v", w.path, err)
		return
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		w.log.Warnf("config: reload %s: %v", w.path, err)
		return
	}
	w.log.Infof("config: reloaded %s", w.path)
	w.onChange(cfg)
}

// ApplyConfig pushes the parts of cfg that can change at runtime: world
// settings and the debug log level.
func ApplyConfig(cfg Config, bridge *PhysicsBridge, log Logger) {
	log = orNop(log)
	log.SetDebug(cfg.Log.Debug)
	bridge.Configure(cfg.Physics.WorldSettings()).OnError(func(err error) {
		log.Errorf("config: world settings not applied: %v", err)
	})
}
