package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
	"github.com/thrasher-corp/tickbacktester/common"
	"github.com/thrasher-corp/tickbacktester/log"
)

const monitorReadHeaderTimeout = 5 * time.Second

var errMonitorStarted = errors.New("monitor already started")

// Monitor serves run summaries and run control over HTTP
type Monitor struct {
	manager *RunManager
	logger  *log.Logger
	router  *mux.Router
	handler http.Handler
	server  *http.Server
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewMonitor builds the monitor's routes. Origins lists the browser origins
// allowed to call the API
func NewMonitor(manager *RunManager, logger *log.Logger, origins []string) (*Monitor, error) {
	if manager == nil {
		return nil, fmt.Errorf("%w RunManager", common.ErrNilPointer)
	}
	if logger == nil {
		logger = log.Nop()
	}
	m := &Monitor{
		manager: manager,
		logger:  logger,
		router:  mux.NewRouter(),
	}
	api := m.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/runs", m.handleListRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", m.handleGetRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", m.handleClearRun).Methods(http.MethodDelete)
	api.HandleFunc("/runs/{id}/start", m.handleStartRun).Methods(http.MethodPost)
	api.HandleFunc("/runs/{id}/stop", m.handleStopRun).Methods(http.MethodPost)
	m.router.HandleFunc("/health", m.handleHealth).Methods(http.MethodGet)

	m.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(m.router)
	return m, nil
}

// Handler returns the routed handler wrapped with CORS
func (m *Monitor) Handler() http.Handler {
	return m.handler
}

// Start listens on addr and serves in the background. The bound address is
// returned so ":0" can be used
func (m *Monitor) Start(addr string) (string, error) {
	if m.server != nil {
		return "", errMonitorStarted
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", err
	}
	m.server = &http.Server{
		Handler:           m.handler,
		ReadHeaderTimeout: monitorReadHeaderTimeout,
	}
	go func() {
		if err := m.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Errorf(log.Monitor, "monitor stopped serving: %v", err)
		}
	}()
	m.logger.Infof(log.Monitor, "monitor listening on %s", ln.Addr())
	return ln.Addr().String(), nil
}

// Shutdown gracefully stops the server
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}
	return m.server.Shutdown(ctx)
}

func (m *Monitor) handleHealth(w http.ResponseWriter, _ *http.Request) {
	m.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (m *Monitor) handleListRuns(w http.ResponseWriter, _ *http.Request) {
	runs, err := m.manager.List()
	if err != nil {
		m.respondError(w, err)
		return
	}
	m.respondJSON(w, http.StatusOK, runs)
}

func (m *Monitor) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id, ok := m.runID(w, r)
	if !ok {
		return
	}
	sum, err := m.manager.GetSummary(id)
	if err != nil {
		m.respondError(w, err)
		return
	}
	m.respondJSON(w, http.StatusOK, sum)
}

func (m *Monitor) handleStartRun(w http.ResponseWriter, r *http.Request) {
	id, ok := m.runID(w, r)
	if !ok {
		return
	}
	// the run outlives the request
	if err := m.manager.StartRun(context.Background(), id); err != nil {
		m.respondError(w, err)
		return
	}
	m.respondJSON(w, http.StatusAccepted, map[string]string{"started": id.String()})
}

func (m *Monitor) handleStopRun(w http.ResponseWriter, r *http.Request) {
	id, ok := m.runID(w, r)
	if !ok {
		return
	}
	if err := m.manager.StopRun(id); err != nil {
		m.respondError(w, err)
		return
	}
	m.respondJSON(w, http.StatusAccepted, map[string]string{"stopped": id.String()})
}

func (m *Monitor) handleClearRun(w http.ResponseWriter, r *http.Request) {
	id, ok := m.runID(w, r)
	if !ok {
		return
	}
	if err := m.manager.ClearRun(id); err != nil {
		m.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (m *Monitor) runID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		m.respondJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return uuid.Nil, false
	}
	return id, true
}

func (m *Monitor) respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errRunNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errAlreadyRan),
		errors.Is(err, errRunIsRunning),
		errors.Is(err, errRunHasNotRan),
		errors.Is(err, errCannotClear):
		status = http.StatusConflict
	}
	m.respondJSON(w, status, errorResponse{Error: err.Error()})
}

func (m *Monitor) respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		m.logger.Warnf(log.Monitor, "writing response: %v", err)
	}
}
