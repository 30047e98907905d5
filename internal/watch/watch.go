// Package watch regenerates a collection's JSON-LD context when the
// definitions it is built from change on disk.
package watch

import (
	"context"
	"errors"
	"os"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/agentic-research/annalist/internal/model"
)

// DefaultDelay is how long the watcher waits for changes to settle.
const DefaultDelay = 250 * time.Millisecond

// ContextWatcher watches the definition directories of one collection.
type ContextWatcher struct {
	coll  *model.Collection
	delay time.Duration
	log   zerolog.Logger
	w     *fsnotify.Watcher

	// OnRegenerate, if set, is called after each regeneration attempt.
	OnRegenerate func(error)
}

// New starts watching the definition directories of coll, which must be
// stored on the OS filesystem.
func New(coll *model.Collection, delay time.Duration, log zerolog.Logger) (*ContextWatcher, error) {
	if coll.Store().Root() == "" {
		return nil, errors.New("watch: collection is not stored on disk")
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	cw := &ContextWatcher{
		coll:  coll,
		delay: delay,
		log:   log.With().Str("coll", coll.ID()).Logger(),
		w:     w,
	}
	if err := cw.addDirs(); err != nil {
		_ = w.Close()
		return nil, err
	}
	return cw, nil
}

func (cw *ContextWatcher) addDirs() error {
	store := cw.coll.Store()
	for _, k := range model.DefinitionKinds {
		if !k.AffectsContext {
			continue
		}
		dir := path.Join(cw.coll.Dir(), k.ContainerDir())
		if err := store.MkdirAll(dir); err != nil {
			return err
		}
		if err := cw.w.Add(store.OSPath(dir)); err != nil {
			return err
		}
		ids, err := store.SubDirs(dir)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := cw.w.Add(store.OSPath(path.Join(dir, id))); err != nil {
				return err
			}
		}
	}
	return nil
}

// Run handles change events until ctx is done.
func (cw *ContextWatcher) Run(ctx context.Context) error {
	defer func() { _ = cw.w.Close() }()

	var settle <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-cw.w.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
					if err := cw.w.Add(event.Name); err != nil {
						cw.log.Warn().Err(err).Str("dir", event.Name).Msg("watch failed")
					}
				}
			}
			if relevant(event) {
				settle = time.After(cw.delay)
			}
		case err, ok := <-cw.w.Errors:
			if !ok {
				return nil
			}
			cw.log.Warn().Err(err).Msg("watch error")
		case <-settle:
			settle = nil
			err := cw.coll.GenerateContext()
			if err != nil {
				cw.log.Error().Err(err).Msg("context regeneration failed")
			} else {
				cw.log.Info().Msg("context regenerated")
			}
			if cw.OnRegenerate != nil {
				cw.OnRegenerate(err)
			}
		}
	}
}

// relevant skips the temporary files written before a rename.
func relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := path.Base(strings.ReplaceAll(event.Name, "\\", "/"))
	return !strings.HasPrefix(base, ".")
}

// Close stops watching. It is only needed when Run is never called.
func (cw *ContextWatcher) Close() error { return cw.w.Close() }
