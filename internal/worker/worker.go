// ABOUTME: Single-threaded command worker driving the sound registry
// ABOUTME: Owns the registry; commands and queries are marshaled onto its goroutine
package worker

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/Factorio-Access/launcher-audio/internal/registry"
	"github.com/Factorio-Access/launcher-audio/pkg/command"
)

// ErrClosed is returned by Submit after the worker has shut down.
var ErrClosed = errors.New("audio worker closed")

const defaultQueueDepth = 64

// Worker runs the registry on one goroutine. All registry access flows
// through its channels, so the registry itself needs no locking: command
// batches drain in FIFO order, timed work runs on computed deadlines,
// and queries see no half-applied compound.
type Worker struct {
	reg     *registry.Registry
	cmds    chan command.Command
	queries chan chan []registry.SoundInfo
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// New creates a worker over a registry. Start must be called before
// submitting commands.
func New(reg *registry.Registry, queueDepth int) *Worker {
	if queueDepth <= 0 {
		queueDepth = defaultQueueDepth
	}
	return &Worker{
		reg:     reg,
		cmds:    make(chan command.Command, queueDepth),
		queries: make(chan chan []registry.SoundInfo),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start launches the worker goroutine.
func (w *Worker) Start() {
	go w.run()
}

// Submit queues a command for the worker. It blocks only when the queue
// is full and fails once the worker is closed.
func (w *Worker) Submit(cmd command.Command) error {
	select {
	case <-w.stop:
		return ErrClosed
	default:
	}
	select {
	case w.cmds <- cmd:
		return nil
	case <-w.stop:
		return ErrClosed
	}
}

// Snapshot returns the registry's current sounds, evaluated on the
// worker goroutine.
func (w *Worker) Snapshot() ([]registry.SoundInfo, error) {
	reply := make(chan []registry.SoundInfo, 1)
	select {
	case w.queries <- reply:
		return <-reply, nil
	case <-w.done:
		return nil, ErrClosed
	}
}

// Close stops the worker, discards any queued commands, and destroys the
// remaining voices. It blocks until the goroutine has exited.
func (w *Worker) Close() {
	w.once.Do(func() { close(w.stop) })
	<-w.done
}

func (w *Worker) run() {
	defer close(w.done)

	for {
		// Sleep until the next command or the registry's nearest
		// deadline. With only settled looping sounds there is no
		// deadline and the worker blocks on the queue alone.
		var tick <-chan time.Time
		var timer *time.Timer
		if wait, ok := w.reg.NextWake(); ok {
			timer = time.NewTimer(wait)
			tick = timer.C
		}

		select {
		case <-w.stop:
			if timer != nil {
				timer.Stop()
			}
			w.reg.Shutdown()
			return
		case cmd := <-w.cmds:
			w.apply(cmd)
			w.drain()
			w.reg.Reconcile()
		case <-tick:
			w.reg.Reconcile()
		case reply := <-w.queries:
			reply <- w.reg.Snapshot()
		}

		if timer != nil {
			timer.Stop()
		}
	}
}

// drain applies every command already queued so a burst reconciles once.
func (w *Worker) drain() {
	for {
		select {
		case cmd := <-w.cmds:
			w.apply(cmd)
		default:
			return
		}
	}
}

func (w *Worker) apply(cmd command.Command) {
	if err := w.reg.Apply(cmd); err != nil {
		log.Printf("Audio command failed: %v", err)
	}
}
