package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hugo-lorenzo-mato/crossreview/internal/breaker"
	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
	"github.com/hugo-lorenzo-mato/crossreview/internal/tracking"
)

// RunResponse is the body of GET /api/v1/run.
type RunResponse struct {
	*tracking.State
	Terminal bool `json:"terminal"`
	ExitCode *int `json:"exit_code,omitempty"`
}

// CircuitResponse is the body of GET /api/v1/circuit.
type CircuitResponse struct {
	breaker.Snapshot
	CanExecute bool `json:"can_execute"`
}

func (s *Server) handleGetRun(w http.ResponseWriter, _ *http.Request) {
	st, err := s.runState()
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	resp := RunResponse{State: st, Terminal: st.Status.IsTerminal()}
	if resp.Terminal {
		code := st.Status.ExitCode()
		resp.ExitCode = &code
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetCircuit(w http.ResponseWriter, _ *http.Request) {
	snap, _, err := s.circuitState()
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, CircuitResponse{
		Snapshot:   snap,
		CanExecute: snap.State != breaker.StateOpen,
	})
}

func (s *Server) handleGetCircuitHistory(w http.ResponseWriter, _ *http.Request) {
	_, history, err := s.circuitState()
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	if history == nil {
		history = []breaker.Transition{}
	}
	s.respondJSON(w, http.StatusOK, history)
}

func (s *Server) handleListArtifacts(w http.ResponseWriter, _ *http.Request) {
	refs, err := s.artifacts.List()
	if err != nil {
		s.respondDomainError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, refs)
}

func (s *Server) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	text, err := s.artifacts.ReadName(name)
	if err != nil {
		if core.IsCategory(err, core.ErrCatNotFound) {
			s.respondJSON(w, http.StatusNotFound, map[string]interface{}{
				"error":       "artifact not found: " + name,
				"suggestions": s.artifacts.Suggest(name),
			})
			return
		}
		s.respondDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(text))
}
