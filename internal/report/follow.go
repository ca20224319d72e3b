package report

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/flightrec/internal/domain"
	"github.com/bft-labs/flightrec/internal/ports"
)

// DefaultDebounce is the quiet period after a store change before the
// report is rebuilt.
const DefaultDebounce = 250 * time.Millisecond

// BuildFunc reconstructs the current chronology.
type BuildFunc func(ctx context.Context) ([]domain.Event, error)

// Follower re-emits the report whenever a SQLite store file changes.
type Follower struct {
	Path     string
	Build    BuildFunc
	Encoder  Encoder
	Out      io.Writer
	Logger   ports.Logger
	Debounce time.Duration

	// Now defaults to time.Now.
	Now func() time.Time
}

// Run emits the report once and again after every debounced change to
// the store file or its WAL. A failure of the first report is returned;
// later failures are logged and the previous report stays current.
// Run returns nil when ctx is canceled.
func (f *Follower) Run(ctx context.Context) error {
	if f.Debounce <= 0 {
		f.Debounce = DefaultDebounce
	}
	if f.Now == nil {
		f.Now = time.Now
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	if err := f.emit(ctx); err != nil {
		return err
	}

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

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !f.relevant(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(f.Debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(f.Debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			if err := f.emit(ctx); err != nil {
				f.Logger.Warn("report rebuild failed", ports.Err(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			f.Logger.Warn("store watcher error", ports.Err(err))
		}
	}
}

// relevant reports whether event touches the store or its journal files.
func (f *Follower) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return false
	}
	base := filepath.Base(f.Path)
	return strings.HasPrefix(filepath.Base(event.Name), base)
}

func (f *Follower) emit(ctx context.Context) error {
	events, err := f.Build(ctx)
	if err != nil {
		return err
	}
	if err := f.Encoder.Header(f.Out, f.Now(), len(events)); err != nil {
		return err
	}
	return Write(f.Out, f.Encoder, events)
}
