package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/scrimlabs/scrim/internal/agent"
	"github.com/scrimlabs/scrim/internal/orchestrator"
	"github.com/scrimlabs/scrim/internal/store"
	"github.com/scrimlabs/scrim/internal/transcript"
)

// errorEnvelope is the uniform error shape: {error, details?}.
type errorEnvelope struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[Server] Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: message, Details: details})
}

// writeFailure maps an error onto the taxonomy: unknown ids are 404,
// precondition and validation failures are 400, everything else is 500 with
// internals redacted.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case store.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", nil)
	case errors.Is(err, agent.ErrMissingInput):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, agent.ErrInputTooLarge):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, agent.ErrValidationFailed):
		writeError(w, http.StatusBadRequest, err.Error(), nil)
	default:
		log.Printf("[Server] Internal error: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error", nil)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
		return false
	}
	return true
}

// handleSetupParse runs the parser-only preview.
// POST /setup/parse {scenario_text}
func (s *Server) handleSetupParse(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req struct {
		ScenarioText string `json:"scenario_text"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.ScenarioText == "" {
		writeError(w, http.StatusBadRequest, "scenario_text is required", nil)
		return
	}

	preview, err := s.manager.Preview(r.Context(), req.ScenarioText)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, preview)
}

// handleProfessorSetup builds a new simulation through the full pipeline.
// POST /professor/setup {name?, scenario, instructions?, actors?, objectives?, parameters?}
func (s *Server) handleProfessorSetup(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}
	var req orchestrator.CreateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Scenario == "" {
		writeError(w, http.StatusBadRequest, "scenario is required", nil)
		return
	}

	record, err := s.manager.CreateSimulation(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"simulationId": record.ID,
		"simulation":   record,
	})
}

// handleProfessorEdit regenerates a simulation's blueprint with edits.
// PATCH /professor/edit {simulationId, name?, scenario?, actors?, objectives?, parameters?}
func (s *Server) handleProfessorEdit(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPatch) {
		return
	}
	var req orchestrator.EditRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.SimulationID == "" {
		writeError(w, http.StatusBadRequest, "simulationId is required", nil)
		return
	}

	record, err := s.manager.EditSimulation(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"simulationId": record.ID,
		"simulation":   record,
	})
}

// handleSimulationState returns the blueprint and, when a session is named,
// its runtime view.
// GET /simulation/state?simulationId&sessionId?
func (s *Server) handleSimulationState(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	simulationID := r.URL.Query().Get("simulationId")
	if simulationID == "" {
		writeError(w, http.StatusBadRequest, "simulationId is required", nil)
		return
	}

	record, err := s.manager.Simulation(r.Context(), simulationID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	response := map[string]any{
		"simulationId": record.ID,
		"name":         record.Name,
		"blueprint":    record.Blueprint,
	}
	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		view, err := s.manager.SessionState(r.Context(), sessionID)
		if err != nil {
			writeFailure(w, err)
			return
		}
		response["session"] = view
	}
	writeJSON(w, http.StatusOK, response)
}

// handleSimulationExport renders a session transcript.
// GET /simulation/export?sessionId&format=json|text
func (s *Server) handleSimulationExport(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required", nil)
		return
	}
	format, err := transcript.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), nil)
		return
	}

	session, err := s.manager.Session(r.Context(), sessionID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	// The simulation is optional context; a dangling session still exports.
	simulation, err := s.manager.Simulation(r.Context(), session.SimulationID)
	if err != nil {
		simulation = nil
	}

	body, err := transcript.Render(session, simulation, format)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// handleSimulationClear deletes a session, or a simulation with all of its
// sessions.
// DELETE /simulation/clear?(sessionId|simulationId)
func (s *Server) handleSimulationClear(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodDelete) {
		return
	}

	if sessionID := r.URL.Query().Get("sessionId"); sessionID != "" {
		if _, err := s.manager.Session(r.Context(), sessionID); err != nil {
			writeFailure(w, err)
			return
		}
		if err := s.manager.ClearSession(r.Context(), sessionID); err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": sessionID})
		return
	}

	if simulationID := r.URL.Query().Get("simulationId"); simulationID != "" {
		if _, err := s.manager.Simulation(r.Context(), simulationID); err != nil {
			writeFailure(w, err)
			return
		}
		if err := s.manager.ClearSimulation(r.Context(), simulationID); err != nil {
			writeFailure(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"deleted": simulationID})
		return
	}

	writeError(w, http.StatusBadRequest, "sessionId or simulationId is required", nil)
}

// handleSimulations lists stored simulations.
// GET /simulations?is_template=
func (s *Server) handleSimulations(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	var isTemplate *bool
	if raw := r.URL.Query().Get("is_template"); raw != "" {
		v := raw == "true"
		isTemplate = &v
	}

	records, err := s.manager.Simulations(r.Context(), isTemplate)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"simulations": records})
}

// handleHealthz reports store connectivity.
// GET /healthz
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodGet) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.manager.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"store":  "disconnected",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"store":  "connected",
	})
}
