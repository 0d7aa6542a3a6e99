package server

import (
	"net/http"
)

// handleStudentRespond drives one turn of the runtime loop.
// POST /student/respond {simulationId, sessionId?, studentInput}
func (s *Server) handleStudentRespond(w http.ResponseWriter, r *http.Request) {
	if !requireMethod(w, r, http.MethodPost) {
		return
	}

	var req struct {
		SimulationID string `json:"simulationId"`
		SessionID    string `json:"sessionId,omitempty"`
		StudentInput string `json:"studentInput"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.StudentInput == "" {
		writeError(w, http.StatusBadRequest, "studentInput is required", nil)
		return
	}
	if req.SimulationID == "" && req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "simulationId is required", nil)
		return
	}

	result, err := s.manager.Respond(r.Context(), req.SimulationID, req.SessionID, req.StudentInput)
	if err != nil {
		writeFailure(w, err)
		return
	}

	response := map[string]any{
		"response":          result.Response,
		"sessionId":         result.SessionID,
		"simulationId":      result.SimulationID,
		"messageCount":      result.MessageCount,
		"triggersActivated": result.TriggersActivated,
	}
	if result.FirstMessage != "" {
		response["firstMessage"] = result.FirstMessage
	}
	writeJSON(w, http.StatusOK, response)
}
