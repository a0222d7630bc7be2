package config

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"chromalyzer/internal/logger"
)

// StyleSnapshot is the read-only view of the hot-reloadable style overlay:
// chart appearance plus per-variable names/units/colors. Lab users tweak
// this file while the service runs.
type StyleSnapshot struct {
	Version   int64
	LoadedAt  time.Time
	Chart     ChartConfig
	Variables []VariableConfig
}

// StyleListener is called after every successful reload.
type StyleListener func(StyleSnapshot)

// StyleLoader loads the style overlay file and watches it for edits.
type StyleLoader struct {
	path string
	v    *viper.Viper

	mu        sync.RWMutex
	snapshot  StyleSnapshot
	listeners []StyleListener
}

type styleFile struct {
	Chart     ChartConfig      `mapstructure:"chart"`
	Variables []VariableConfig `mapstructure:"variables"`
}

// NewStyleLoader reads the overlay and starts watching. base supplies the
// values used when the overlay omits a section.
func NewStyleLoader(path string, base *Config) (*StyleLoader, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("style loader requires path")
	}
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read style config failed: %w", err)
	}
	loader := &StyleLoader{path: path, v: v}
	if err := loader.reload(base); err != nil {
		return nil, err
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if err := loader.reload(base); err != nil {
			logger.Errorf("style reload failed (%s): %v", evt.Name, err)
			return
		}
		logger.Infof("style config reloaded from %s", loader.path)
		loader.notify()
	})
	v.WatchConfig()
	return loader, nil
}

// Snapshot returns the current style view.
func (l *StyleLoader) Snapshot() StyleSnapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return cloneStyle(l.snapshot)
}

// Subscribe registers a listener and immediately delivers the current
// snapshot on a separate goroutine.
func (l *StyleLoader) Subscribe(fn StyleListener) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.listeners = append(l.listeners, fn)
	snap := cloneStyle(l.snapshot)
	l.mu.Unlock()
	go fn(snap)
}

func (l *StyleLoader) notify() {
	l.mu.RLock()
	snap := cloneStyle(l.snapshot)
	listeners := append([]StyleListener(nil), l.listeners...)
	l.mu.RUnlock()
	for _, fn := range listeners {
		go fn(snap)
	}
}

func (l *StyleLoader) reload(base *Config) error {
	if err := l.v.ReadInConfig(); err != nil {
		return err
	}
	var file styleFile
	if err := l.v.Unmarshal(&file); err != nil {
		return fmt.Errorf("parse style config failed: %w", err)
	}
	snap := StyleSnapshot{LoadedAt: time.Now()}
	snap.Chart = base.Chart
	if file.Chart.WidthPx > 0 {
		snap.Chart.WidthPx = file.Chart.WidthPx
	}
	if file.Chart.HeightPx > 0 {
		snap.Chart.HeightPx = file.Chart.HeightPx
	}
	if file.Chart.Background != "" {
		snap.Chart.Background = file.Chart.Background
	}
	if file.Chart.FontFamily != "" {
		snap.Chart.FontFamily = file.Chart.FontFamily
	}
	if file.Chart.FontSizePx > 0 {
		snap.Chart.FontSizePx = file.Chart.FontSizePx
	}
	if len(file.Variables) > 0 {
		snap.Variables = file.Variables
	} else {
		snap.Variables = base.Variables
	}

	l.mu.Lock()
	snap.Version = l.snapshot.Version + 1
	l.snapshot = snap
	l.mu.Unlock()
	return nil
}

func cloneStyle(s StyleSnapshot) StyleSnapshot {
	out := s
	out.Variables = append([]VariableConfig(nil), s.Variables...)
	return out
}
