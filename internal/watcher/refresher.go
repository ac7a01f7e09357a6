package watcher

import (
	"sync"
	"time"

	"github.com/wilbur182/sessiontail/internal/cache"
	"github.com/wilbur182/sessiontail/internal/metrics"
)

// refresher re-stats the newest journal file on a fixed period and reads it
// when its size or modification time moved since the last tick.
type refresher struct {
	interval time.Duration
	reader   Reader
	dispatch func(path, trigger string)

	ticker *time.Ticker
	done   chan struct{}
	wg     sync.WaitGroup

	// last observed state of the newest file; only touched by loop.
	path    string
	size    int64
	modTime time.Time
}

func newRefresher(interval time.Duration, reader Reader, dispatch func(path, trigger string)) *refresher {
	return &refresher{
		interval: interval,
		reader:   reader,
		dispatch: dispatch,
		done:     make(chan struct{}),
	}
}

func (r *refresher) start() {
	r.ticker = time.NewTicker(r.interval)
	r.wg.Add(1)
	go r.loop()
}

func (r *refresher) stop() {
	r.ticker.Stop()
	close(r.done)
	r.wg.Wait()
}

func (r *refresher) loop() {
	defer r.wg.Done()
	for {
		select {
		case <-r.ticker.C:
			r.tick()
		case <-r.done:
			return
		}
	}
}

// tick checks the newest file once.
func (r *refresher) tick() {
	path, ok := r.reader.Newest()
	if !ok {
		return
	}
	if path != r.path {
		r.path, r.size, r.modTime = path, -1, time.Time{}
	}

	changed, _, info, err := cache.FileChanged(path, r.size, r.modTime)
	if err != nil || !changed {
		return
	}
	r.size, r.modTime = info.Size(), info.ModTime()
	r.dispatch(path, metrics.TriggerRefresh)
}
