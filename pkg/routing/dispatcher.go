package routing

import (
	"context"
	"sync"

	"github.com/04arvind/newla/pkg/agent"
	"github.com/04arvind/newla/pkg/bus"
	"github.com/04arvind/newla/pkg/logger"
)

type Dispatcher struct {
	bus      *bus.RunBus
	resolver *Resolver
	pool     *RunnerPool
	mu       sync.RWMutex
}

func NewDispatcher(runBus *bus.RunBus, resolver *Resolver, pool *RunnerPool) *Dispatcher {
	return &Dispatcher{
		bus:      runBus,
		resolver: resolver,
		pool:     pool,
	}
}

// Run consumes queued requests until the bus closes or ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		req, ok := d.bus.ConsumeRequest(ctx)
		if !ok {
			return nil
		}

		decision := d.getResolver().Resolve(req)
		d.logDecision(decision)

		if !decision.Allowed {
			d.bus.TryPublishEvent(agent.Event{
				RunID:   req.ID,
				Type:    "done",
				Status:  agent.StatusError,
				Message: decision.Reason,
			})
			continue
		}

		routed := req
		routed.Provider = decision.Provider
		if err := d.pool.Dispatch(ctx, decision.Workspace, routed); err != nil {
			logger.ErrorCF("routing", EventRouteInvalid, map[string]interface{}{
				"run_id":    req.ID,
				"workspace": decision.Workspace,
				"reason":    err.Error(),
			})
			d.bus.TryPublishEvent(agent.Event{
				RunID:   req.ID,
				Type:    "done",
				Status:  agent.StatusError,
				Message: err.Error(),
			})
		}
	}
}

func (d *Dispatcher) ReplaceResolver(resolver *Resolver) {
	if resolver == nil {
		return
	}
	d.mu.Lock()
	d.resolver = resolver
	d.mu.Unlock()
}

func (d *Dispatcher) getResolver() *Resolver {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.resolver
}

func (d *Dispatcher) logDecision(decision Decision) {
	fields := map[string]interface{}{
		"run_id":    decision.RunID,
		"provider":  decision.Provider,
		"workspace": decision.Workspace,
		"reason":    decision.Reason,
	}
	if decision.Allowed {
		logger.InfoCF("routing", decision.Event, fields)
		return
	}
	logger.WarnCF("routing", decision.Event, fields)
}
