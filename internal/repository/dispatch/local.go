// Package dispatch schedules step executions, decoupling the producer of a
// step message from its executor. Three transports exist: an in-process timer
// queue (default), an HTTP re-entry call to POST /worker, and a RabbitMQ
// publisher/consumer pair. None of them persists scheduled messages: a crash
// between enqueue and execution drops the step.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/Jan-H2M/vidsum/internal/domain/entity"
)

// Processor executes one step message. Failures are handled inside the
// processor (retry or terminal error), so execution returns nothing.
type Processor interface {
	ProcessStep(ctx context.Context, msg entity.StepMessage)
}

// Local runs messages on goroutines within the same process. Immediate
// messages still go through a goroutine, never the caller's stack, so a long
// chain of steps cannot recurse.
type Local struct {
	mu   sync.RWMutex
	proc Processor
}

func NewLocal() *Local {
	return &Local{}
}

// Bind attaches the processor. Done after construction because the
// orchestrator and the dispatcher reference each other.
func (l *Local) Bind(proc Processor) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.proc = proc
}

func (l *Local) Enqueue(_ context.Context, msg entity.StepMessage, delay time.Duration) (string, error) {
	l.mu.RLock()
	proc := l.proc
	l.mu.RUnlock()
	if proc == nil {
		return "", fmt.Errorf("dispatcher has no processor bound")
	}

	id := dispatchID(msg)
	run := func() {
		proc.ProcessStep(context.Background(), msg)
	}
	if delay > 0 {
		log.Printf("scheduling step %s for job %s in %s", msg.Step, msg.JobID, delay)
		time.AfterFunc(delay, run)
	} else {
		go run()
	}
	return id, nil
}

func dispatchID(msg entity.StepMessage) string {
	return fmt.Sprintf("%s-%s-%d", msg.JobID, msg.Step, time.Now().UnixMilli())
}
