package card

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"video-browser/internal/metrics"
)

// generation owns one reload's cards and the bounded worker pool executing
// their tasks. The pool is capped because every task may hold a live
// external process; one goroutine per video is not an option.
//
// A generation stays open for late submissions (override changes re-running
// a single thumbnail) until it is drained. drain cancels everything, waits
// for every task to fully terminate, then closes the cards' event channels,
// so a new generation can never race an old one over the shared temp files.
type generation struct {
	ctx    context.Context
	cancel context.CancelFunc
	cards  []*Card
	byID   map[string]*Card
	log    zerolog.Logger

	jobs     chan *Task
	taskWg   sync.WaitGroup
	workerWg sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func newGeneration(cards []*Card, numWorkers int, log zerolog.Logger) *generation {
	ctx, cancel := context.WithCancel(context.Background())

	g := &generation{
		ctx:    ctx,
		cancel: cancel,
		cards:  cards,
		byID:   make(map[string]*Card, len(cards)),
		log:    log,
		// Room for both initial tasks per card plus a margin of re-runs.
		jobs: make(chan *Task, len(cards)*2+64),
	}
	for _, c := range cards {
		g.byID[c.Entry.Identity] = c
	}

	for i := 0; i < numWorkers; i++ {
		g.workerWg.Add(1)
		go g.worker(i)
	}
	log.Debug().Int("workers", numWorkers).Int("cards", len(cards)).Msg("generation started")
	return g
}

func (g *generation) worker(id int) {
	defer g.workerWg.Done()
	for t := range g.jobs {
		metrics.TaskQueueDepth.Dec()
		t.Run(g.ctx)
		g.taskWg.Done()
	}
	g.log.Debug().Int("worker", id).Msg("worker finished")
}

// submit queues a task. Returns false once the generation is draining or
// the queue margin is exhausted; either way the task never runs and is
// marked canceled.
func (g *generation) submit(t *Task) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		t.state.Store(int32(TaskCanceled))
		close(t.done)
		return false
	}

	g.taskWg.Add(1)
	select {
	case g.jobs <- t:
		metrics.TaskQueueDepth.Inc()
		return true
	default:
		// Queue margin exhausted; should not happen with the sizing above.
		g.taskWg.Done()
		t.state.Store(int32(TaskCanceled))
		close(t.done)
		g.log.Warn().Str("task", string(t.kind)).Str("identity", t.tctx.identity).Msg("task queue full, dropping task")
		return false
	}
}

// card returns the generation's card for identity, if present.
func (g *generation) card(identity string) *Card {
	return g.byID[identity]
}

// drain cancels every card and task, kills in-flight external processes via
// the generation context, and blocks until all tasks and workers have fully
// exited. Only then are the event channels closed and the shared temp-file
// namespace safe to reuse.
func (g *generation) drain() {
	for _, c := range g.cards {
		c.Cancel()
	}
	g.cancel()

	g.mu.Lock()
	if !g.closed {
		g.closed = true
		close(g.jobs)
	}
	g.mu.Unlock()

	g.taskWg.Wait()
	g.workerWg.Wait()

	for _, c := range g.cards {
		c.closeEvents()
	}
	g.log.Debug().Int("cards", len(g.cards)).Msg("generation drained")
}
