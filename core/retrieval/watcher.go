package retrieval

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultReloadDebounce = 250 * time.Millisecond

// Watcher reloads an Index when files in its corpus change. Bursts of
// events are collapsed into one reload.
type Watcher struct {
	index    *Index
	debounce time.Duration
	fsw      *fsnotify.Watcher

	reloadCh chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc

	mu    sync.Mutex
	timer *time.Timer

	closeOnce sync.Once
}

// Watch starts watching the corpus directory tree. The watcher stops when
// ctx ends or Close is called.
func (ix *Index) Watch(ctx context.Context, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		index:    ix,
		debounce: debounce,
		fsw:      fsw,
		reloadCh: make(chan struct{}, 1),
		done:     make(chan struct{}),
	}
	if err := w.addRecursive(ix.corpus.Dir); err != nil {
		fsw.Close()
		return nil, err
	}

	ctx, w.cancel = context.WithCancel(ctx)
	go w.run(ctx)
	return w, nil
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.index.logger.Warn("case corpus watch error", "error", err)
		case <-w.reloadCh:
			if err := w.index.Reload(); err != nil {
				w.index.logger.Warn("case corpus reload failed, keeping previous index", "error", err)
			}
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			_ = w.addRecursive(event.Name)
			w.schedule()
			return
		}
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	if !w.index.corpus.Matches(event.Name) {
		return
	}
	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.reloadCh <- struct{}{}:
		default:
		}
	})
}

// Close stops watching and waits for the event loop to exit. It does not
// close the index.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		w.cancel()
		<-w.done

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()

		err = w.fsw.Close()
	})
	return err
}
