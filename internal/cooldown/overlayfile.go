package cooldown

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/park285/epic-reminder-bot/internal/domain"
	"github.com/park285/epic-reminder-bot/internal/obslog"
)

type overlayDoc struct {
	Events []overlayEntry `yaml:"events"`
}

type overlayEntry struct {
	Name        string             `yaml:"name"`
	Start       time.Time          `yaml:"start"`
	End         time.Time          `yaml:"end"`
	Adjustments map[string]string  `yaml:"adjustments"`
	Multipliers map[string]float64 `yaml:"multipliers"`
}

// OverlayFile serves overlays from a YAML file and reloads it on change.
type OverlayFile struct {
	path     string
	overlays atomic.Pointer[[]Overlay]
}

// OpenOverlayFile loads path once. Watch keeps it current.
func OpenOverlayFile(path string) (*OverlayFile, error) {
	f := &OverlayFile{path: path}
	if err := f.Reload(); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *OverlayFile) Overlays() []Overlay {
	if p := f.overlays.Load(); p != nil {
		return *p
	}
	return nil
}

// Reload parses the file and swaps the overlay set. A missing file yields
// no overlays.
func (f *OverlayFile) Reload() error {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		empty := []Overlay{}
		f.overlays.Store(&empty)
		return nil
	}
	if err != nil {
		return fmt.Errorf("read overlay file: %w", err)
	}
	overlays, err := ParseOverlays(raw)
	if err != nil {
		return err
	}
	f.overlays.Store(&overlays)
	return nil
}

// ParseOverlays decodes the overlay file format.
func ParseOverlays(raw []byte) ([]Overlay, error) {
	var doc overlayDoc
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode overlay file: %w", err)
	}
	out := make([]Overlay, 0, len(doc.Events))
	for _, e := range doc.Events {
		if e.Name == "" {
			return nil, fmt.Errorf("overlay without name")
		}
		if !e.End.After(e.Start) {
			return nil, fmt.Errorf("overlay %q: end must be after start", e.Name)
		}
		o := Overlay{Name: e.Name, Start: e.Start, End: e.End}
		for k, v := range e.Adjustments {
			t, ok := domain.ParseActionType(k)
			if !ok {
				return nil, fmt.Errorf("overlay %q: unknown type %q", e.Name, k)
			}
			d, ok := ParseSpan(v)
			if !ok {
				return nil, fmt.Errorf("overlay %q: bad duration %q for %s", e.Name, v, k)
			}
			if o.Adjustments == nil {
				o.Adjustments = map[domain.ActionType]int64{}
			}
			o.Adjustments[t] = int64(d / time.Second)
		}
		for k, v := range e.Multipliers {
			t, ok := domain.ParseActionType(k)
			if !ok {
				return nil, fmt.Errorf("overlay %q: unknown type %q", e.Name, k)
			}
			if o.Multipliers == nil {
				o.Multipliers = map[domain.ActionType]float64{}
			}
			o.Multipliers[t] = v
		}
		out = append(out, o)
	}
	return out, nil
}

// Watch reloads the file whenever it changes until ctx is done. The parent
// directory is watched so editors that replace the file are handled.
func (f *OverlayFile) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	defer w.Close()
	if err := w.Add(filepath.Dir(f.path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(f.path), err)
	}
	log := obslog.Named("overlays")
	target := filepath.Clean(f.path)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if err := f.Reload(); err != nil {
				log.Warn("overlay_reload_failed", zap.String("path", f.path), zap.Error(err))
				continue
			}
			log.Info("overlay_reloaded", zap.String("path", f.path), zap.Int("count", len(f.Overlays())))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("overlay_watch_error", zap.Error(err))
		}
	}
}
