package routing

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/04arvind/newla/pkg/agent"
	"github.com/04arvind/newla/pkg/bus"
	"github.com/04arvind/newla/pkg/config"
	"github.com/04arvind/newla/pkg/providers"
)

type runHandler interface {
	HandleRun(context.Context, bus.RunRequest)
}

type runnerFactory func(workspace string) (runHandler, error)

type runnerEntry struct {
	handler  runHandler
	requests chan bus.RunRequest
	cancel   context.CancelFunc
}

// RunnerPool keeps one runner per workspace and reuses it. Each runner
// consumes its queue on a single goroutine, so runs against one workspace
// never overlap.
type RunnerPool struct {
	mu      sync.Mutex
	runners map[string]*runnerEntry
	closed  bool
	wg      sync.WaitGroup
	factory runnerFactory
}

func NewRunnerPool(cfg *config.Config, registry *providers.Registry, events *bus.RunBus) *RunnerPool {
	return NewRunnerPoolWithFactory(func(workspace string) (runHandler, error) {
		cloned, err := cloneConfigForWorkspace(cfg, workspace)
		if err != nil {
			return nil, err
		}
		return newWorkspaceRunner(cloned, registry, events), nil
	})
}

func NewRunnerPoolWithFactory(factory runnerFactory) *RunnerPool {
	return &RunnerPool{
		runners: map[string]*runnerEntry{},
		factory: factory,
	}
}

func (p *RunnerPool) Dispatch(ctx context.Context, workspace string, req bus.RunRequest) error {
	entry, err := p.getOrCreate(workspace)
	if err != nil {
		return err
	}

	select {
	case entry.requests <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *RunnerPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.runners)
}

func (p *RunnerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true

	entries := make([]*runnerEntry, 0, len(p.runners))
	for _, e := range p.runners {
		entries = append(entries, e)
	}
	p.mu.Unlock()

	for _, e := range entries {
		e.cancel()
	}
	p.wg.Wait()
}

func (p *RunnerPool) getOrCreate(workspace string) (*runnerEntry, error) {
	workspace = filepath.Clean(workspace)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, fmt.Errorf("runner pool is closed")
	}

	if e, ok := p.runners[workspace]; ok {
		return e, nil
	}

	handler, err := p.factory(workspace)
	if err != nil {
		return nil, err
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	entry := &runnerEntry{
		handler:  handler,
		requests: make(chan bus.RunRequest, 64),
		cancel:   cancel,
	}
	p.runners[workspace] = entry

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		for {
			select {
			case <-workerCtx.Done():
				return
			case req := <-entry.requests:
				entry.handler.HandleRun(workerCtx, req)
			}
		}
	}()

	return entry, nil
}

// workspaceRunner executes requests against one workspace, building an
// orchestrator per provider on first use and forwarding run events to the
// bus.
type workspaceRunner struct {
	cfg      *config.Config
	registry *providers.Registry
	events   *bus.RunBus

	mu            sync.Mutex
	orchestrators map[string]*agent.Orchestrator
}

func newWorkspaceRunner(cfg *config.Config, registry *providers.Registry, events *bus.RunBus) *workspaceRunner {
	return &workspaceRunner{
		cfg:           cfg,
		registry:      registry,
		events:        events,
		orchestrators: map[string]*agent.Orchestrator{},
	}
}

func (r *workspaceRunner) HandleRun(ctx context.Context, req bus.RunRequest) {
	orchestrator, err := r.orchestratorFor(req.Provider)
	if err != nil {
		if r.events != nil {
			r.events.TryPublishEvent(agent.Event{
				RunID:   req.ID,
				Type:    "done",
				Status:  agent.StatusError,
				Message: err.Error(),
			})
		}
		return
	}
	// The request id was already handed to the submitter; the run must keep it.
	orchestrator.RunWithID(ctx, req.ID, req.Prompt)
}

func (r *workspaceRunner) orchestratorFor(name string) (*agent.Orchestrator, error) {
	provider, err := r.registry.Get(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if o, ok := r.orchestrators[provider.Name()]; ok {
		return o, nil
	}

	o, err := agent.NewOrchestrator(r.cfg, provider)
	if err != nil {
		return nil, err
	}
	if r.events != nil {
		o.AddEventSink(busSink{bus: r.events})
	}
	r.orchestrators[provider.Name()] = o
	return o, nil
}

// busSink forwards orchestrator events onto the run bus. Events are dropped
// rather than letting a full buffer stall the run.
type busSink struct {
	bus *bus.RunBus
}

func (s busSink) Emit(event agent.Event) {
	s.bus.TryPublishEvent(event)
}

func cloneConfigForWorkspace(cfg *config.Config, workspace string) (*config.Config, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}
	cloned := *cfg
	cloned.Workspace = workspace
	return &cloned, nil
}
