package engine

import "sync"

// RunState is the lifecycle of a mock-mode run.
type RunState string

const (
	RunStateRunning   RunState = "running"
	RunStateCancelled RunState = "cancelled"
)

type cachedRun struct {
	Request RunRequest
	State   RunState
}

// RunCache tracks mock-mode runs behind a mutex. It is an explicit
// concurrency-safe cache owned by the adapter rather than package state.
type RunCache struct {
	mu   sync.Mutex
	runs map[string]*cachedRun
}

func NewRunCache() *RunCache {
	return &RunCache{runs: make(map[string]*cachedRun)}
}

func (c *RunCache) Put(id string, req RunRequest) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs[id] = &cachedRun{Request: req, State: RunStateRunning}
}

func (c *RunCache) Get(id string) (RunRequest, RunState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	run, ok := c.runs[id]
	if !ok {
		return RunRequest{}, "", false
	}
	return run.Request, run.State, true
}

// Cancel marks the run cancelled and reports whether it existed and was
// still running.
func (c *RunCache) Cancel(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	run, ok := c.runs[id]
	if !ok || run.State != RunStateRunning {
		return false
	}
	run.State = RunStateCancelled
	return true
}

func (c *RunCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.runs)
}
