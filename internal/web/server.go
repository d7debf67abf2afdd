package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/stakeworks/farmd/internal/farm"
	"github.com/stakeworks/farmd/internal/logger"
	"github.com/stakeworks/farmd/internal/state"
	"github.com/stakeworks/farmd/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// WebServer handles HTTP requests for farm ledger data
type WebServer struct {
	router *mux.Router
	farm   *farm.Farm
	port   string
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, f *farm.Farm) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		farm:   f,
		port:   port,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	// Health endpoint (direct route)
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")

	// API endpoints
	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/pools", ws.handleGetPools).Methods("GET")
	api.HandleFunc("/pools/{id:[0-9]+}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/positions/{account}", ws.handleGetPositions).Methods("GET")
	api.HandleFunc("/pending/{id:[0-9]+}/{account}", ws.handleGetPending).Methods("GET")
	api.HandleFunc("/emission", ws.handleGetEmission).Methods("GET")
	api.HandleFunc("/emission/update", ws.handleUpdateEmission).Methods("POST")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")

	// Add CORS middleware
	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
		hasErrors = true
	}

	pools, err := ws.farm.Pools()
	poolCount := len(pools)
	if err != nil {
		// Ledger busy is not an outage; a mutation is simply in flight.
		poolCount = -1
	}

	overallStatus := "OK"
	if hasErrors {
		overallStatus = "DEGRADED"
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "farmd-staking-ledger",
			"version": "1.0.0",
		},
		"farm_status": map[string]interface{}{
			"database_healthy": dbHealthy,
			"pool_count":       poolCount,
			"reward_denom":     ws.farm.RewardDenom(),
		},
	}

	statusCode := http.StatusOK
	if hasErrors {
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetPools returns every pool with its projected staked balance
func (ws *WebServer) handleGetPools(w http.ResponseWriter, r *http.Request) {
	pools, err := ws.farm.Pools()
	if err != nil {
		ws.writeBusyOrError(w, err, "Failed to retrieve pools")
		return
	}

	totalWeight, err := ws.farm.TotalAllocWeight()
	if err != nil {
		ws.writeBusyOrError(w, err, "Failed to retrieve total weight")
		return
	}

	response := map[string]interface{}{
		"pools":        pools,
		"count":        len(pools),
		"total_weight": totalWeight,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns a specific pool by index
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}

	pool, err := ws.farm.PoolInfo(id)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}

	staked, err := ws.farm.StakedBalance(id)
	if err != nil {
		ws.writeBusyOrError(w, err, "Failed to retrieve staked balance")
		return
	}

	response := map[string]interface{}{
		"pool":           pool,
		"staked_balance": staked,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPositions returns all positions held by an account
func (ws *WebServer) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	account := types.Account(mux.Vars(r)["account"])

	positions, err := ws.farm.PositionsOf(account)
	if err != nil {
		ws.writeBusyOrError(w, err, "Failed to retrieve positions")
		return
	}

	response := map[string]interface{}{
		"account":   account,
		"positions": positions,
		"count":     len(positions),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPending returns the unclaimed entitlement for (pool, account)
func (ws *WebServer) handleGetPending(w http.ResponseWriter, r *http.Request) {
	id, ok := ws.poolIDFromRequest(w, r)
	if !ok {
		return
	}
	account := types.Account(mux.Vars(r)["account"])

	pending, err := ws.farm.PendingReward(id, account)
	if err != nil {
		ws.writeBusyOrError(w, err, "Failed to compute pending reward")
		return
	}

	response := map[string]interface{}{
		"pool_id": id,
		"account": account,
		"pending": pending,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetEmission returns the current emission schedule state
func (ws *WebServer) handleGetEmission(w http.ResponseWriter, r *http.Request) {
	emission, err := ws.farm.EmissionState()
	if err != nil {
		ws.writeBusyOrError(w, err, "Failed to retrieve emission state")
		return
	}

	response := map[string]interface{}{
		"state":  emission,
		"params": ws.farm.EmissionParams(),
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleUpdateEmission applies any pending emission decay. Callable by anyone;
// a no-op when no decay period has elapsed.
func (ws *WebServer) handleUpdateEmission(w http.ResponseWriter, r *http.Request) {
	if err := ws.farm.UpdateEmissionRate(); err != nil {
		ws.writeBusyOrError(w, err, "Failed to update emission rate")
		return
	}

	emission, err := ws.farm.EmissionState()
	if err != nil {
		ws.writeBusyOrError(w, err, "Failed to retrieve emission state")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{"state": emission})
}

// handleGetEvents returns recent journal entries
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 500 {
			limit = parsedLimit
		}
	}

	events, err := state.GetRecentEvents(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	response := map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	}

	ws.writeJSONResponse(w, http.StatusOK, response)
}

// poolIDFromRequest parses the {id} path variable
func (ws *WebServer) poolIDFromRequest(w http.ResponseWriter, r *http.Request) (types.PoolID, bool) {
	idStr := mux.Vars(r)["id"]
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool ID")
		return 0, false
	}
	return types.PoolID(id), true
}

// writeBusyOrError maps ErrLedgerBusy to 503 with a retry hint
func (ws *WebServer) writeBusyOrError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, farm.ErrLedgerBusy) {
		w.Header().Set("Retry-After", "1")
		ws.writeErrorResponse(w, http.StatusServiceUnavailable, "Ledger busy, resubmit")
		return
	}
	webLogger.Error().Err(err).Msg(message)
	ws.writeErrorResponse(w, http.StatusInternalServerError, message)
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
