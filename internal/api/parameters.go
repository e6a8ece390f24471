package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/diematic-core/internal/boiler"
	"github.com/nerrad567/diematic-core/internal/register"
)

// maxParamNameLen bounds the {name} path parameter.
const maxParamNameLen = 128

// handleListParameters returns the sorted list of known parameter names.
func (s *Server) handleListParameters(w http.ResponseWriter, _ *http.Request) {
	names := append([]string(nil), s.store.Index().ParameterNames()...)
	sort.Strings(names)

	writeJSON(w, http.StatusOK, map[string]any{
		"parameters": names,
		"count":      len(names),
	})
}

// handleGetParameter returns the full record for one parameter.
func (s *Server) handleGetParameter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxParamNameLen {
		writeBadRequest(w, "invalid parameter name")
		return
	}

	rec, ok := s.store.Get(name)
	if !ok {
		writeNotFound(w, "unknown parameter")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// setParameterRequest is the body of a parameter write.
type setParameterRequest struct {
	Value *json.RawMessage `json:"value"`
}

// handleSetParameter queues a write for one parameter and wakes the
// write pipeline. The response reflects the queued state; the actual
// bus write happens asynchronously.
func (s *Server) handleSetParameter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxParamNameLen {
		writeBadRequest(w, "invalid parameter name")
		return
	}

	var req setParameterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Value == nil {
		writeBadRequest(w, "value is required")
		return
	}

	var value any
	if err := json.Unmarshal(*req.Value, &value); err != nil {
		writeBadRequest(w, "invalid value")
		return
	}

	if err := s.store.RequestWrite(name, value); err != nil {
		switch {
		case errors.Is(err, boiler.ErrUnknownParameter):
			writeNotFound(w, "unknown parameter")
		case errors.Is(err, boiler.ErrWriteInFlight):
			writeConflict(w, "a write for this parameter is being verified")
		case errors.Is(err, register.ErrReadOnly), errors.Is(err, register.ErrInvalidValue):
			writeBadRequest(w, err.Error())
		default:
			writeInternalError(w, "failed to queue write")
		}
		return
	}

	if s.writer != nil {
		s.writer.Kick()
	}

	rec, _ := s.store.Get(name)
	writeJSON(w, http.StatusAccepted, rec)
}

// handleResumeParameter clears a failed write and returns the parameter
// to its normal read state.
func (s *Server) handleResumeParameter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxParamNameLen {
		writeBadRequest(w, "invalid parameter name")
		return
	}

	if err := s.store.ClearError(name); err != nil {
		if errors.Is(err, boiler.ErrUnknownParameter) {
			writeNotFound(w, "unknown parameter")
			return
		}
		writeInternalError(w, "failed to resume parameter")
		return
	}

	rec, _ := s.store.Get(name)
	writeJSON(w, http.StatusOK, rec)
}

// handleParameterHistory returns stored values for one parameter,
// newest first.
func (s *Server) handleParameterHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" || len(name) > maxParamNameLen {
		writeBadRequest(w, "invalid parameter name")
		return
	}

	if _, ok := s.store.Get(name); !ok {
		writeNotFound(w, "unknown parameter")
		return
	}

	if s.history == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "history store disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeBadRequest(w, "invalid limit")
			return
		}
		limit = parsed
	}

	entries, err := s.history.GetHistory(r.Context(), name, limit)
	if err != nil {
		writeInternalError(w, "failed to load parameter history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"parameter": name,
		"history":   entries,
		"count":     len(entries),
	})
}

// handleSnapshot returns the boiler UUID plus every externally visible
// parameter value, the same flat document published to MQTT.
func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	records := s.store.Snapshot()
	out := make(map[string]any, len(records)+1)
	out["uuid"] = s.uuid
	for _, rec := range records {
		out[rec.Name] = rec.Value
	}

	writeJSON(w, http.StatusOK, out)
}

// handleConfig returns the register table the daemon is running with.
func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Index().Descriptors())
}

// handlePoll triggers an immediate poll cycle.
func (s *Server) handlePoll(w http.ResponseWriter, r *http.Request) {
	if s.poller == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "polling disabled")
		return
	}

	if err := s.poller.RunPollCycle(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "poll cycle failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}
