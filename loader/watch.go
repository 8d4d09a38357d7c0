package loader

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultSettle is how long a descriptor must stay quiet before it is
// reloaded. Editors often truncate then write, which produces several events.
const DefaultSettle = 100 * time.Millisecond

// Change reports a skeleton the watcher reloaded or evicted.
type Change struct {
	Path     string
	Skeleton string
	Removed  bool
	Err      error
}

// Watcher reloads a Library's descriptors when their files change on disk.
// Built armatures keep the data they were built from; new builds see the
// reloaded skeleton.
type Watcher struct {
	lib     *Library
	watcher *fsnotify.Watcher
	settle  time.Duration

	Changes chan Change
	Errors  chan error
	closeCh chan struct{}
	done    chan struct{}
	once    sync.Once
}

// Watch starts watching the library's directory.
func (l *Library) Watch(settle time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(l.dir); err != nil {
		_ = fw.Close()
		return nil, err
	}
	if settle <= 0 {
		settle = DefaultSettle
	}
	w := &Watcher{
		lib:     l,
		watcher: fw,
		settle:  settle,
		Changes: make(chan Change, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w, nil
}

// Close stops the watcher and closes its channels.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		<-w.done
		close(w.Changes)
		close(w.Errors)
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.done)
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.settle)
	timer.Stop()
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !IsDescriptor(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			pending[filepath.Clean(event.Name)] = struct{}{}
			timer.Reset(w.settle)
		case <-timer.C:
			for path := range pending {
				delete(pending, path)
				if !w.emit(w.apply(path)) {
					return
				}
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.lib.log.Warn("descriptor watch error", zap.Error(err))
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// apply reloads path, or evicts it when the file is gone.
func (w *Watcher) apply(path string) Change {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		name, ok := w.lib.Remove(path)
		if !ok {
			return Change{}
		}
		w.lib.log.Info("descriptor removed", zap.String("path", path), zap.String("skeleton", name))
		return Change{Path: path, Skeleton: name, Removed: true}
	}
	name, changed, err := w.lib.Reload(path)
	switch {
	case err != nil:
		return Change{Path: path, Skeleton: name, Err: err}
	case !changed:
		return Change{}
	}
	w.lib.log.Info("descriptor reloaded", zap.String("path", path), zap.String("skeleton", name))
	return Change{Path: path, Skeleton: name}
}

func (w *Watcher) emit(c Change) bool {
	if c.Path == "" {
		return true
	}
	select {
	case w.Changes <- c:
		return true
	case <-w.closeCh:
		return false
	}
}
