package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"timeglass/internal/types"
)

const dateLayout = "2006-01-02"

// parseDateParam reads a YYYY-MM-DD query parameter, defaulting to
// today when absent. The second return value reports success; a false
// means the response has already been written.
func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Now(), true
	}
	date, err := time.ParseInLocation(dateLayout, raw, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name+" date, expected YYYY-MM-DD")
		return time.Time{}, false
	}
	return date, true
}

func pathID(r *http.Request) int64 {
	// The route pattern guarantees digits only
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// statusResponse reports the live tracker state
type statusResponse struct {
	Tracking     bool         `json:"tracking"`
	OpenEvent    *types.Event `json:"openEvent,omitempty"`
	PendingCount int          `json:"pendingCount"`
	Info         *Info        `json:"info,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Info: s.info}
	if s.status != nil {
		resp.Tracking = s.status.IsRunning()
		resp.OpenEvent = s.status.OpenEvent()
		resp.PendingCount = s.status.PendingCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}

	summary, err := s.reports.Summary(r.Context(), date)
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleRollup(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}

	rollup, err := s.reports.Rollup(r.Context(), date)
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rollup)
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	start, ok := parseDateParam(w, r, "start")
	if !ok {
		return
	}
	end, ok := parseDateParam(w, r, "end")
	if !ok {
		return
	}

	overview, err := s.reports.Overview(r.Context(), start, end)
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDateParam(w, r, "date")
	if !ok {
		return
	}

	events, err := s.reports.ListEvents(r.Context(), date)
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	if events == nil {
		events = []types.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := s.events.GetEvent(r.Context(), pathID(r))
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	var patch types.EventPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := s.events.UpdateEvent(r.Context(), pathID(r), &patch)
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleListMappings(w http.ResponseWriter, r *http.Request) {
	mappings, err := s.mappings.ListMappings(r.Context())
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	if mappings == nil {
		mappings = []types.ProjectMapping{}
	}
	writeJSON(w, http.StatusOK, mappings)
}

func (s *Server) handleUpsertMapping(w http.ResponseWriter, r *http.Request) {
	var mapping types.ProjectMapping
	if err := json.NewDecoder(r.Body).Decode(&mapping); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.mappings.UpsertMapping(r.Context(), &mapping); err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, mapping)
}

func (s *Server) handleDeleteMapping(w http.ResponseWriter, r *http.Request) {
	if err := s.mappings.DeleteMapping(r.Context(), pathID(r)); err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.mappings.ListProjects(r.Context())
	if err != nil {
		writeRepositoryError(w, s.logger, err)
		return
	}
	if projects == nil {
		projects = []string{}
	}
	writeJSON(w, http.StatusOK, projects)
}
