// Package gateway exposes the build agent over HTTP: synchronous and queued
// runs, workspace inspection, run history, and a websocket event stream.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/04arvind/newla/pkg/agent"
	"github.com/04arvind/newla/pkg/bus"
	"github.com/04arvind/newla/pkg/config"
	"github.com/04arvind/newla/pkg/logger"
	"github.com/04arvind/newla/pkg/providers"
	"github.com/04arvind/newla/pkg/routing"
	"github.com/04arvind/newla/pkg/state"
)

type Server struct {
	cfg          *config.Config
	registry     *providers.Registry
	orchestrator *agent.Orchestrator
	runBus       *bus.RunBus
	dispatcher   *routing.Dispatcher
	pool         *routing.RunnerPool
	hub          *Hub
	stateMgr     *state.Manager
	mux          *http.ServeMux

	altMu sync.Mutex
	alt   map[string]*agent.Orchestrator
}

func NewServer(cfg *config.Config, registry *providers.Registry) (*Server, error) {
	orchestrator, err := agent.NewOrchestrator(cfg, registry.Default())
	if err != nil {
		return nil, err
	}

	runBus := bus.NewRunBus()
	resolver, err := routing.NewResolver(cfg, registry)
	if err != nil {
		runBus.Close()
		return nil, err
	}
	pool := routing.NewRunnerPool(cfg, registry, runBus)

	s := &Server{
		cfg:          cfg,
		registry:     registry,
		orchestrator: orchestrator,
		runBus:       runBus,
		dispatcher:   routing.NewDispatcher(runBus, resolver, pool),
		pool:         pool,
		hub:          NewHub(),
		stateMgr:     state.NewManager(cfg.WorkspacePath()),
		alt:          map[string]*agent.Orchestrator{},
	}
	s.orchestrator.AddEventSink(hubSink{hub: s.hub})
	s.mux = s.routes()
	return s, nil
}

// hubSink broadcasts synchronous-run events straight to websocket clients.
type hubSink struct {
	hub *Hub
}

func (s hubSink) Emit(event agent.Event) { s.hub.Broadcast(event) }

func (s *Server) Handler() http.Handler { return s.mux }

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Gateway.Host, s.cfg.Gateway.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run(ctx, s.runBus)
	go s.dispatcher.Run(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		s.runBus.Close()
		s.pool.Close()
	}()

	logger.InfoCF("gateway", "Listening", map[string]interface{}{"addr": addr})
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /run", s.handleRun)
	mux.HandleFunc("GET /workspace", s.handleWorkspace)
	mux.HandleFunc("GET /workspace/files", s.handleWorkspaceFiles)
	mux.HandleFunc("GET /workspace/files/{path...}", s.handleWorkspaceFile)
	mux.HandleFunc("GET /history", s.handleHistory)
	mux.HandleFunc("GET /providers", s.handleProviders)
	mux.HandleFunc("POST /reset", s.handleReset)
	mux.HandleFunc("GET /ws", s.hub.ServeWS)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":    "Newla",
		"status":  "running",
		"message": "Autonomous build agent gateway",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type runRequest struct {
	Prompt      string `json:"prompt"`
	LLMProvider string `json:"llm_provider,omitempty"`
	Workspace   string `json:"workspace,omitempty"`
	Async       bool   `json:"async,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, http.StatusBadRequest, "prompt must not be empty")
		return
	}

	if req.Async {
		runID := uuid.NewString()
		err := s.runBus.PublishRequest(r.Context(), bus.RunRequest{
			ID:        runID,
			Prompt:    req.Prompt,
			Provider:  req.LLMProvider,
			Workspace: req.Workspace,
		})
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{
			"run_id": runID,
			"status": "queued",
		})
		return
	}

	orchestrator, err := s.orchestratorFor(req.LLMProvider)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result := orchestrator.Run(r.Context(), req.Prompt)
	if err := s.stateMgr.RecordRun(result.RunID, result.Status, result.UserPrompt); err != nil {
		logger.WarnCF("gateway", "State update failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	writeJSON(w, http.StatusOK, result)
}

// orchestratorFor returns the cached orchestrator for a provider, building an
// alternate one on first use. All of them share the workspace run lock and
// history store, so runs against the workspace stay serialized regardless of
// which provider (or which submission path) drives them.
func (s *Server) orchestratorFor(name string) (*agent.Orchestrator, error) {
	provider, err := s.registry.Get(name)
	if err != nil {
		return nil, err
	}
	if provider.Name() == s.registry.Default().Name() {
		return s.orchestrator, nil
	}

	s.altMu.Lock()
	defer s.altMu.Unlock()
	if o, ok := s.alt[provider.Name()]; ok {
		return o, nil
	}
	o, err := agent.NewOrchestrator(s.cfg, provider)
	if err != nil {
		return nil, err
	}
	o.AddEventSink(hubSink{hub: s.hub})
	s.alt[provider.Name()] = o
	return o, nil
}

func (s *Server) handleWorkspace(w http.ResponseWriter, r *http.Request) {
	summary, err := s.orchestrator.ProjectSummary()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleWorkspaceFiles(w http.ResponseWriter, r *http.Request) {
	files, err := s.orchestrator.Executor().WorkspaceFiles()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"files": files,
		"total": len(files),
	})
}

func (s *Server) handleWorkspaceFile(w http.ResponseWriter, r *http.Request) {
	path := r.PathValue("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "file path required")
		return
	}

	content, err := s.orchestrator.Executor().ReadFileContent(path)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"path":    path,
		"content": content,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	runs := s.orchestrator.History().All()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"total": len(runs),
	})
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.registry.Names(),
		"default":   s.registry.Default().Name(),
	})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	// Reset is advertised but deliberately not wired to a destructive action.
	writeError(w, http.StatusNotImplemented, "workspace reset not yet implemented")
}
