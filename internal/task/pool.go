// Package task provides the event channel between background work and the
// main loop: a multi-producer, single-consumer queue plus spawn-and-notify
// helpers. Background tasks never touch application state; they only emit
// events here.
package task

import (
	"fmt"

	"github.com/skimreader/skim/internal/debuglog"
)

// Crashed reports a background task that panicked. The panic is absorbed at
// the task boundary and surfaced as an ordinary event instead of taking the
// process down.
type Crashed struct {
	Task string
	Err  error
}

// Pool funnels background-task outcomes into a single ordered channel
// consumed by the event loop.
type Pool struct {
	events chan any
}

func NewPool(buffer int) *Pool {
	return &Pool{events: make(chan any, buffer)}
}

// Events is the single-consumer side of the queue.
func (p *Pool) Events() <-chan any {
	return p.events
}

// Emit queues an event for the main loop. Blocks if the buffer is full,
// which backpressures producers rather than dropping outcomes.
func (p *Pool) Emit(event any) {
	p.events <- event
}

// Go runs fn on its own goroutine. A non-nil return value is emitted as an
// event; a panic becomes a Crashed event carrying the task name.
func (p *Pool) Go(name string, fn func() any) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				debuglog.Error("task %s panicked: %v", name, r)
				p.events <- Crashed{Task: name, Err: fmt.Errorf("%v", r)}
			}
		}()
		if ev := fn(); ev != nil {
			p.events <- ev
		}
	}()
}
