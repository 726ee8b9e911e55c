package config

import (
	"bytes"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

// DefaultWatchInterval is the polling interval used by [NewWatcher].
const DefaultWatchInterval = 5 * time.Second

// ChangeFunc receives the previous and the newly loaded config together with
// their [Diff].
type ChangeFunc func(old, new *Config, d ConfigDiff)

// Watcher polls a config file and reports validated changes. An edit that
// fails to load is logged and ignored; the previous config stays current.
// Edits that change nothing [Diff] tracks (comments, reordering) are absorbed
// silently.
type Watcher struct {
	path     string
	interval time.Duration
	onChange ChangeFunc

	mu       sync.Mutex
	current  *Config
	modTime  time.Time
	sum      [sha256.Size]byte
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Non-positive values are ignored.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads the config at path and starts polling it in a background
// goroutine. Call [Watcher.Stop] to end polling.
func NewWatcher(path string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		interval: DefaultWatchInterval,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	snap, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current, w.sum, w.modTime = snap.cfg, snap.sum, snap.modTime

	go w.loop()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop ends polling. It is safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

func (w *Watcher) loop() {
	t := time.NewTicker(w.interval)
	defer t.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-t.C:
			w.poll()
		}
	}
}

// poll reloads the file when its modification time moved.
func (w *Watcher) poll() {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	unchanged := info.ModTime().Equal(w.modTime)
	w.mu.Unlock()
	if unchanged {
		return
	}

	snap, err := w.read()
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
		return
	}

	w.mu.Lock()
	w.modTime = snap.modTime
	if snap.sum == w.sum {
		w.mu.Unlock()
		return
	}
	old := w.current
	w.current, w.sum = snap.cfg, snap.sum
	w.mu.Unlock()

	d := Diff(old, snap.cfg)
	if !d.Changed() {
		return
	}
	slog.Info("config watcher: configuration reloaded", "path", w.path, "restart_required", d.RestartRequired)
	if w.onChange != nil {
		w.onChange(old, snap.cfg, d)
	}
}

type snapshot struct {
	cfg     *Config
	sum     [sha256.Size]byte
	modTime time.Time
}

// read loads and validates the file once.
func (w *Watcher) read() (snapshot, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return snapshot{}, err
	}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return snapshot{}, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return snapshot{}, err
	}
	return snapshot{cfg: cfg, sum: sha256.Sum256(data), modTime: info.ModTime()}, nil
}
