package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/df07/go-multiquad-light/pkg/log"
	"github.com/df07/go-multiquad-light/pkg/renderer"
	"github.com/df07/go-multiquad-light/pkg/scene"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var logger = log.New("server")

// Server handles web requests for direct lighting estimates
type Server struct {
	port int
}

// NewServer creates a new web server
func NewServer(port int) *Server {
	return &Server{port: port}
}

// EstimateRequest represents an estimate request from the client
type EstimateRequest struct {
	Scene           string `json:"scene"`           // Built-in scene ID (e.g., "grid")
	SamplesPerPoint int    `json:"samplesPerPoint"` // Samples per receiver
	Workers         int    `json:"workers"`         // Number of workers (0 = auto-detect)
	Seed            int64  `json:"seed"`
}

// ReceiverResult is the estimate at one receiver
type ReceiverResult struct {
	Point      [3]float64 `json:"point"`
	Normal     [3]float64 `json:"normal"`
	Irradiance [3]float64 `json:"irradiance"`
	StdError   float64    `json:"stdError"`
}

// Stats represents estimate statistics
type Stats struct {
	TotalSamples       int   `json:"totalSamples"`
	FailedLightSamples int   `json:"failedLightSamples"`
	OccludedSamples    int   `json:"occludedSamples"`
	CacheHits          int64 `json:"cacheHits"`
	CacheMisses        int64 `json:"cacheMisses"`
}

// EstimateResponse is the JSON response of /api/estimate
type EstimateResponse struct {
	Scene     string           `json:"scene"`
	Receivers []ReceiverResult `json:"receivers"`
	Stats     Stats            `json:"stats"`
	ElapsedMs int64            `json:"elapsedMs"`
}

// Handler returns the routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", s.handleHealth)
	mux.HandleFunc("/api/scenes", s.handleScenes)
	mux.HandleFunc("/api/estimate", s.handleEstimate)
	mux.HandleFunc("/api/inspect", s.handleInspect)
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// Start starts the web server
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	logger.Noticef("starting web server on http://localhost%s", addr)
	return http.ListenAndServe(addr, s.Handler())
}

// handleHealth provides a simple health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleScenes lists the built-in scenes
func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scene.ListBuiltin())
}

// handleEstimate runs a direct lighting estimate on a built-in scene
func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseEstimateRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}

	sceneObj, err := s.createScene(req.Scene)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Use request context to stop when the client disconnects
	startTime := time.Now()
	result, err := renderer.Estimate(r.Context(), sceneObj, renderer.EstimatorConfig{
		Workers:         req.Workers,
		SamplesPerPoint: req.SamplesPerPoint,
		Seed:            req.Seed,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response := EstimateResponse{
		Scene:     req.Scene,
		ElapsedMs: time.Since(startTime).Milliseconds(),
		Stats: Stats{
			TotalSamples:       result.Stats.TotalSamples,
			FailedLightSamples: result.Stats.FailedLightSamples,
			OccludedSamples:    result.Stats.OccludedSamples,
		},
	}
	for _, worker := range result.Stats.Workers {
		response.Stats.CacheHits += int64(worker.CacheHits)
		response.Stats.CacheMisses += int64(worker.CacheMisses)
	}
	for _, rec := range result.Receivers {
		e := rec.Stats.GetIrradiance()
		response.Receivers = append(response.Receivers, ReceiverResult{
			Point:      [3]float64{rec.Receiver.Point.X, rec.Receiver.Point.Y, rec.Receiver.Point.Z},
			Normal:     [3]float64{rec.Receiver.Normal.X, rec.Receiver.Normal.Y, rec.Receiver.Normal.Z},
			Irradiance: [3]float64{e.X, e.Y, e.Z},
			StdError:   rec.Stats.StdError(),
		})
	}

	logger.Infof("estimate of %q took %dms", req.Scene, response.ElapsedMs)
	writeJSON(w, http.StatusOK, response)
}

// parseEstimateRequest parses request parameters
func (s *Server) parseEstimateRequest(r *http.Request) (*EstimateRequest, error) {
	req := &EstimateRequest{}
	query := r.URL.Query()

	if sceneID := query.Get("scene"); sceneID != "" {
		req.Scene = sceneID
	} else {
		req.Scene = "grid" // Default scene
	}

	var err error
	if req.SamplesPerPoint, err = parseIntParam(query, "spp", 256, 1, 1<<20); err != nil {
		return nil, err
	}
	if req.Workers, err = parseIntParam(query, "workers", 0, 0, 256); err != nil {
		return nil, err
	}
	seed, err := parseIntParam(query, "seed", 42, 1, 1<<31-1)
	if err != nil {
		return nil, err
	}
	req.Seed = int64(seed)
	return req, nil
}

// parseIntParam parses an integer parameter from URL query with validation
func parseIntParam(values url.Values, key string, defaultValue, min, max int) (int, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %d and %d, got: %d", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// parseFloatParam parses a float parameter from URL query with validation
func parseFloatParam(values url.Values, key string, defaultValue, min, max float64) (float64, error) {
	if value := values.Get(key); value != "" {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %s", key, value)
		}
		if parsed < min || parsed > max {
			return 0, fmt.Errorf("%s must be between %f and %f, got: %f", key, min, max, parsed)
		}
		return parsed, nil
	}
	return defaultValue, nil
}

// createScene builds a fresh built-in scene so concurrent requests share no light state
func (s *Server) createScene(sceneID string) (*scene.Scene, error) {
	desc, err := scene.Builtin(sceneID)
	if err != nil {
		return nil, err
	}
	return desc.Build()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warningf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
