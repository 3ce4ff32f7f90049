package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"timeglass/internal/infrastructure/logging"
	"timeglass/internal/types"
)

// ReportSource answers the read-side queries the API exposes
type ReportSource interface {
	Summary(ctx context.Context, date time.Time) (*types.DaySummary, error)
	ListEvents(ctx context.Context, date time.Time) ([]types.Event, error)
	Overview(ctx context.Context, startDate, endDate time.Time) (*types.Overview, error)
	Rollup(ctx context.Context, date time.Time) (types.DailyRollup, error)
}

// EventEditor exposes the event write operations reachable over HTTP
type EventEditor interface {
	GetEvent(ctx context.Context, id int64) (*types.Event, error)
	UpdateEvent(ctx context.Context, id int64, patch *types.EventPatch) (*types.Event, error)
}

// MappingStore manages the project mapping table
type MappingStore interface {
	UpsertMapping(ctx context.Context, mapping *types.ProjectMapping) error
	ListMappings(ctx context.Context) ([]types.ProjectMapping, error)
	DeleteMapping(ctx context.Context, id int64) error
	ListProjects(ctx context.Context) ([]string, error)
}

// TrackerStatus reports the live state of the sampling loop. A nil
// status means this process runs query-only.
type TrackerStatus interface {
	IsRunning() bool
	OpenEvent() *types.Event
	PendingCount() int
}

// Info holds the deployment details the status endpoint reports
type Info struct {
	DatabasePath   string `json:"databasePath,omitempty"`
	SampleInterval string `json:"sampleInterval,omitempty"`
	IdleThreshold  string `json:"idleThreshold,omitempty"`
}

// Server is the HTTP API over the tracker: reports, event edits and
// project mapping management.
type Server struct {
	reports  ReportSource
	events   EventEditor
	mappings MappingStore
	status   TrackerStatus
	info     *Info
	logger   logging.Logger
	router   *mux.Router
	httpSrv  *http.Server
}

// NewServer wires the API handlers. status may be nil for query-only
// deployments.
func NewServer(reports ReportSource, events EventEditor, mappings MappingStore, status TrackerStatus, logger logging.Logger) *Server {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	s := &Server{
		reports:  reports,
		events:   events,
		mappings: mappings,
		status:   status,
		logger:   logger,
		router:   mux.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/summary", s.handleSummary).Methods(http.MethodGet)
	api.HandleFunc("/rollup", s.handleRollup).Methods(http.MethodGet)
	api.HandleFunc("/overview", s.handleOverview).Methods(http.MethodGet)

	api.HandleFunc("/events", s.handleListEvents).Methods(http.MethodGet)
	api.HandleFunc("/events/{id:[0-9]+}", s.handleGetEvent).Methods(http.MethodGet)
	api.HandleFunc("/events/{id:[0-9]+}", s.handleUpdateEvent).Methods(http.MethodPatch)

	api.HandleFunc("/project-mappings", s.handleListMappings).Methods(http.MethodGet)
	api.HandleFunc("/project-mappings", s.handleUpsertMapping).Methods(http.MethodPost)
	api.HandleFunc("/project-mappings/{id:[0-9]+}", s.handleDeleteMapping).Methods(http.MethodDelete)
	api.HandleFunc("/projects", s.handleListProjects).Methods(http.MethodGet)
}

// SetInfo attaches deployment details to the status endpoint
func (s *Server) SetInfo(info Info) {
	s.info = &info
}

// Router exposes the handler tree, mainly for tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start serves the API on addr until Shutdown is called
func (s *Server) Start(addr string) error {
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("HTTP API listening", "addr", addr)

	err := s.httpSrv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the listener
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
