// Package task defines background jobs: a named payload submitted to a Queue and executed later by a Runner.
package task

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var ErrUnknownJob = errors.New("unknown job")

type Job struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Args        json.RawMessage `json:"args"`
	SubmittedAt time.Time       `json:"submitted_at"`
}

// NewJob encodes args as the job payload.
func NewJob(name string, args interface{}, now time.Time) (Job, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return Job{}, errors.Wrapf(err, "encoding %s args", name)
	}
	return Job{ID: uuid.New().String(), Name: name, Args: data, SubmittedAt: now.UTC()}, nil
}

// Decode unmarshals the job payload into dest.
func (j Job) Decode(dest interface{}) error {
	if err := json.Unmarshal(j.Args, dest); err != nil {
		return errors.Wrapf(err, "decoding %s args", j.Name)
	}
	return nil
}

// Queue accepts jobs for later execution. Submit returns as soon as the job is accepted.
type Queue interface {
	Submit(ctx context.Context, job Job) error
}

// Handler executes one job. Its error is terminal for that job: it is logged, never retried.
type Handler func(ctx context.Context, job Job) error

// Runner dispatches jobs to the handler registered for their name.
type Runner struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRunner() *Runner {
	return &Runner{handlers: make(map[string]Handler)}
}

// Register binds name to h. Registering a name twice panics.
func (r *Runner) Register(name string, h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.handlers[name]; dup {
		panic(fmt.Sprintf("task: handler %q registered twice", name))
	}
	r.handlers[name] = h
}

func (r *Runner) Handle(ctx context.Context, job Job) error {
	r.mu.RLock()
	h, ok := r.handlers[job.Name]
	r.mu.RUnlock()
	if !ok {
		return errors.Wrap(ErrUnknownJob, job.Name)
	}
	return h(ctx, job)
}

// Names lists the registered job names, sorted.
func (r *Runner) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
