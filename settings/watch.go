package settings

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/hnimtadd/searchtag/logger"
)

// Watcher reloads a settings file whenever it changes on disk. The directory
// is watched rather than the file so editors that save by renaming a
// temporary file are seen too.
type Watcher struct {
	path  string
	store *FileStore

	watcher *fsnotify.Watcher
	changes chan Settings

	closeOnce sync.Once
	closeCh   chan struct{}
	closedWg  sync.WaitGroup

	logger logger.Logger
}

func NewWatcher(path string, l logger.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watching settings %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watching settings %s: %w", path, err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watching settings %s: %w", path, err)
	}

	w := &Watcher{
		path:    abs,
		store:   NewFileStore(abs),
		watcher: fsw,
		changes: make(chan Settings, 1),
		closeCh: make(chan struct{}),
		logger:  logger.OrDefault(l),
	}
	w.closedWg.Add(1)
	go w.loop()
	return w, nil
}

// Changes delivers the freshly loaded settings after each change. Only the
// latest value is kept if the reader falls behind. The channel is closed by
// Close.
func (w *Watcher) Changes() <-chan Settings {
	return w.changes
}

func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
		w.closedWg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.closedWg.Done()
	defer close(w.changes)

	for {
		select {
		case <-w.closeCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			s, err := Load(w.store)
			if err != nil {
				w.logger.Warn("reloading settings", "path", w.path, "err", err)
				continue
			}
			w.publish(s)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher", "path", w.path, "err", err)
		}
	}
}

func (w *Watcher) publish(s Settings) {
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- s:
	case <-w.closeCh:
	}
}
