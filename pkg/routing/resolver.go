// Package routing turns queued run requests into orchestrator work: the
// resolver decides whether a request may run and where, the pool keeps one
// orchestrator per workspace, and the dispatcher drives the loop.
package routing

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/04arvind/newla/pkg/bus"
	"github.com/04arvind/newla/pkg/config"
	"github.com/04arvind/newla/pkg/providers"
	"github.com/04arvind/newla/pkg/safety"
)

const (
	EventRouteMatch   = "route_match"
	EventRouteDeny    = "route_deny"
	EventRouteInvalid = "route_invalid"
)

type Decision struct {
	Event     string
	Allowed   bool
	RunID     string
	Provider  string
	Workspace string
	Reason    string
}

// Resolver validates run requests and pins them to a workspace. Named
// workspaces are siblings of the default one; names go through the path
// sandbox so a request can never point a run outside the workspace parent.
type Resolver struct {
	defaultWorkspace string
	workspaceParent  string
	registry         *providers.Registry
}

func NewResolver(cfg *config.Config, registry *providers.Registry) (*Resolver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("routing config is nil")
	}
	if registry == nil {
		return nil, fmt.Errorf("provider registry is nil")
	}
	defaultWorkspace := cfg.WorkspacePath()
	return &Resolver{
		defaultWorkspace: defaultWorkspace,
		workspaceParent:  filepath.Dir(defaultWorkspace),
		registry:         registry,
	}, nil
}

func (r *Resolver) Resolve(req bus.RunRequest) Decision {
	if strings.TrimSpace(req.Prompt) == "" {
		return Decision{
			Event:   EventRouteDeny,
			Allowed: false,
			RunID:   req.ID,
			Reason:  "empty prompt",
		}
	}

	provider := strings.TrimSpace(req.Provider)
	if _, err := r.registry.Get(provider); err != nil {
		return Decision{
			Event:    EventRouteDeny,
			Allowed:  false,
			RunID:    req.ID,
			Provider: provider,
			Reason:   err.Error(),
		}
	}
	if provider == "" {
		provider = r.registry.Default().Name()
	}

	workspace := r.defaultWorkspace
	if name := strings.TrimSpace(req.Workspace); name != "" {
		resolved, err := safety.ValidatePath(name, r.workspaceParent)
		if err != nil {
			return Decision{
				Event:     EventRouteInvalid,
				Allowed:   false,
				RunID:     req.ID,
				Provider:  provider,
				Workspace: name,
				Reason:    fmt.Sprintf("workspace invalid: %v", err),
			}
		}
		workspace = resolved
	}

	return Decision{
		Event:     EventRouteMatch,
		Allowed:   true,
		RunID:     req.ID,
		Provider:  provider,
		Workspace: workspace,
		Reason:    "request accepted",
	}
}
