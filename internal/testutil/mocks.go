// Package testutil provides scripted collaborators for orchestrator tests.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

// Response scripts one agent invocation.
type Response struct {
	Output string
	// Timeout makes the call fail with AgentTimeout after returning Output.
	Timeout bool
	// Err is returned as is; Output is still delivered.
	Err error
	// Delay blocks the call, honouring the request timeout and ctx.
	Delay time.Duration
	// Before runs at the start of the call, e.g. to remove an artifact.
	Before func(req core.InvokeRequest)
}

// Fail builds a Response that exits with code 1.
func Fail(agent, msg string) Response {
	return Response{Err: core.ErrAgentFailure(agent, 1, msg)}
}

// TimedOut builds a Response that times out after printing partial.
func TimedOut(partial string) Response {
	return Response{Output: partial, Timeout: true}
}

type scriptKey struct {
	agent string
	phase core.Phase
}

// MockBackend implements core.AgentBackend with per-agent, per-phase
// scripts. Successive calls consume the script in order; the last response
// repeats. Unscripted calls answer with a default status block.
type MockBackend struct {
	mu      sync.Mutex
	scripts map[scriptKey][]Response
	served  map[scriptKey]int
	calls   []core.InvokeRequest
}

var _ core.AgentBackend = (*MockBackend)(nil)

// NewMockBackend creates an empty mock.
func NewMockBackend() *MockBackend {
	return &MockBackend{
		scripts: make(map[scriptKey][]Response),
		served:  make(map[scriptKey]int),
	}
}

// On appends responses for agent in phase.
func (m *MockBackend) On(agent string, phase core.Phase, responses ...Response) *MockBackend {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := scriptKey{agent, phase}
	m.scripts[k] = append(m.scripts[k], responses...)
	return m
}

// Invoke implements core.AgentBackend.
func (m *MockBackend) Invoke(ctx context.Context, req core.InvokeRequest) (*core.InvokeResult, error) {
	resp := m.next(req)
	if resp.Before != nil {
		resp.Before(req)
	}
	start := time.Now()

	if resp.Delay > 0 {
		callCtx := ctx
		if req.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, req.Timeout)
			defer cancel()
		}
		select {
		case <-time.After(resp.Delay):
		case <-callCtx.Done():
			res := &core.InvokeResult{Output: resp.Output, ExitCode: -1, Duration: time.Since(start)}
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
				return res, core.ErrAgentTimeout(req.Agent, fmt.Sprintf("agent %s timed out after %v", req.Agent, req.Timeout))
			}
			return res, ctx.Err()
		}
	}

	res := &core.InvokeResult{Output: resp.Output, Duration: time.Since(start)}
	switch {
	case resp.Timeout:
		res.ExitCode = -1
		return res, core.ErrAgentTimeout(req.Agent, "scripted timeout")
	case resp.Err != nil:
		res.ExitCode = 1
		return res, resp.Err
	}
	return res, nil
}

func (m *MockBackend) next(req core.InvokeRequest) Response {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, req)

	k := scriptKey{req.Agent, req.Phase}
	script := m.scripts[k]
	if len(script) == 0 {
		return Response{Output: Block(req.Phase.StatusBlock(), "EXIT_SIGNAL", "false")}
	}
	i := m.served[k]
	m.served[k]++
	if i >= len(script) {
		i = len(script) - 1
	}
	return script[i]
}

// Calls returns every request received, in arrival order.
func (m *MockBackend) Calls() []core.InvokeRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.InvokeRequest(nil), m.calls...)
}

// CallsIn returns the requests received for phase.
func (m *MockBackend) CallsIn(phase core.Phase) []core.InvokeRequest {
	var out []core.InvokeRequest
	for _, c := range m.Calls() {
		if c.Phase == phase {
			out = append(out, c)
		}
	}
	return out
}
