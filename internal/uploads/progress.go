package uploads

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusError     Status = "error"
)

// Event is one status change of one file in a batch.
type Event struct {
	BatchID  string `json:"batchId"`
	Index    int    `json:"index"`
	Name     string `json:"name"`
	Status   Status `json:"status"`
	Progress int    `json:"progress"`
	Error    string `json:"error,omitempty"`
}

type Notifier interface {
	Notify(userID string, ev Event)
}

type NotifierFunc func(userID string, ev Event)

func (f NotifierFunc) Notify(userID string, ev Event) { f(userID, ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(string, Event) {}

// countingReader counts the bytes the store client has consumed. Seeking resets the
// count to the new offset, which happens when a client rewinds to retry or to sign.
type countingReader struct {
	r io.ReadSeeker
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

func (c *countingReader) Seek(offset int64, whence int) (int64, error) {
	pos, err := c.r.Seek(offset, whence)
	if err == nil {
		c.n.Store(pos)
	}
	return pos, err
}

// tracker reports the status of one file. Progress only moves forward and stays below
// 100 until the upload has been confirmed.
type tracker struct {
	notifier Notifier
	userID   string
	base     Event

	mu   sync.Mutex
	last int
	done chan struct{}
	wg   sync.WaitGroup
}

func newTracker(n Notifier, userID, batchID string, index int, name string) *tracker {
	return &tracker{
		notifier: n,
		userID:   userID,
		base:     Event{BatchID: batchID, Index: index, Name: name},
		done:     make(chan struct{}),
	}
}

func (t *tracker) emit(status Status, progress int, errMsg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if progress < t.last {
		progress = t.last
	}
	t.last = progress
	ev := t.base
	ev.Status, ev.Progress, ev.Error = status, progress, errMsg
	t.notifier.Notify(t.userID, ev)
}

func (t *tracker) pending() { t.emit(StatusPending, 0, "") }

// start emits the uploading status and samples r every interval until finish is called.
func (t *tracker) start(r *countingReader, total int64, interval time.Duration) {
	t.emit(StatusUploading, 0, "")
	if interval <= 0 || total <= 0 {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-t.done:
				return
			case <-ticker.C:
				pct := int(r.n.Load() * 100 / total)
				if pct > 99 {
					pct = 99
				}
				t.mu.Lock()
				moved := pct > t.last
				t.mu.Unlock()
				if moved {
					t.emit(StatusUploading, pct, "")
				}
			}
		}
	}()
}

func (t *tracker) stop() {
	select {
	case <-t.done:
	default:
		close(t.done)
	}
	t.wg.Wait()
}

func (t *tracker) succeed() {
	t.stop()
	t.emit(StatusSuccess, 100, "")
}

func (t *tracker) fail(err error) {
	t.stop()
	t.emit(StatusError, 0, err.Error())
}
