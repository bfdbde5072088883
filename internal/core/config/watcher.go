package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Watcher reloads the env file when it changes and fans the result out to
// the callbacks registered on the watched Config.
type Watcher struct {
	cfg      *Config
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	debounce time.Duration
	done     chan struct{}
	once     sync.Once
}

// NewWatcher watches the directory holding cfg.EnvFile.
func NewWatcher(cfg *Config) (*Watcher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	path, err := filepath.Abs(cfg.EnvFile)
	if err != nil {
		return nil, fmt.Errorf("resolve env file: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	// Editors replace files on save, so watch the directory rather than the file.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	return &Watcher{
		cfg:      cfg,
		path:     path,
		watcher:  fsw,
		logger:   zap.L().Named("config-watcher"),
		debounce: 250 * time.Millisecond,
		done:     make(chan struct{}),
	}, nil
}

// Watch starts the event loop in the background.
func (w *Watcher) Watch() {
	go w.loop()
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) loop() {
	var timer *time.Timer
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(w.debounce, w.reload)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	if err := godotenv.Overload(w.path); err != nil {
		w.logger.Warn("failed to read env file", zap.String("path", w.path), zap.Error(err))
		return
	}
	next := &Config{}
	if err := env.Parse(next); err != nil {
		w.logger.Warn("failed to parse reloaded config", zap.Error(err))
		return
	}

	w.cfg.mu.Lock()
	w.cfg.LogLevel = next.LogLevel
	w.cfg.CORSAllowedOrigins = next.CORSAllowedOrigins
	w.cfg.mu.Unlock()

	w.cfg.notify(next)
}
