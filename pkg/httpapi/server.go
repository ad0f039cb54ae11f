// Package httpapi exposes a read-only HTTP inspection surface over an
// engine.Database: health, Prometheus metrics, and a byte-range read
// endpoint, built on a chi router with CORS middleware and promhttp
// wiring. There are no mutation endpoints: writes go through the
// embedding program's own use of engine.Database, not HTTP.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/ssargent/freyjatree/pkg/datafile"
	"github.com/ssargent/freyjatree/pkg/engine"
	"github.com/ssargent/freyjatree/pkg/keys"
	"github.com/ssargent/freyjatree/pkg/txerr"
)

// Server wraps a *engine.Database behind the read-only inspection routes.
type Server struct {
	db *engine.Database
}

// NewServer returns a Server for db.
func NewServer(db *engine.Database) *Server {
	return &Server{db: db}
}

// Router builds the chi.Router for this server: CORS, request logging,
// panic recovery, /healthz, /metrics, and the keys inspection route.
//
// @title FreyjaTree Inspection API
// @version 1.0
// @BasePath /api/v1
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"*"},
		MaxAge:         300,
	}))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/keys/{typ}/{secondary}/{primary}", s.handleGetKey)
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	return r
}

// handleHealthz reports liveness only; the engine has no separate
// readiness state beyond "constructed".
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// handleGetKey returns the full byte stream under the key named by the
// route's {typ}/{secondary}/{primary} triple, for inspection purposes.
// The bytes are a []byte field, which encoding/json writes as a base64
// string.
//
// @Summary Read a key's data
// @Param typ path int true "Key type"
// @Param secondary path int true "Key secondary"
// @Param primary path int true "Key primary"
// @Success 200 {object} keyResponse
// @Failure 404 {object} errorResponse
// @Router /api/v1/keys/{typ}/{secondary}/{primary} [get]
func (s *Server) handleGetKey(w http.ResponseWriter, r *http.Request) {
	typ, err1 := strconv.ParseUint(chi.URLParam(r, "typ"), 10, 16)
	secondary, err2 := strconv.ParseInt(chi.URLParam(r, "secondary"), 10, 32)
	primary, err3 := strconv.ParseInt(chi.URLParam(r, "primary"), 10, 64)
	if err1 != nil || err2 != nil || err3 != nil {
		writeError(w, http.StatusBadRequest, "malformed key component")
		return
	}
	key := keys.New(uint16(typ), int32(secondary), primary)

	data, err := s.db.Get(key)
	if err != nil {
		if err == txerr.ErrKeyNotFound {
			writeError(w, http.StatusNotFound, "key not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	tx, closeTx, err := s.db.OpenDataFile(key)
	var meta datafile.BlockLocationMeta
	if err == nil {
		meta, _ = datafile.Addressable(tx).GetBlockLocationMeta()
		closeTx.Discard()
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(keyResponse{
		Size:        len(data),
		Data:        data,
		ChainLength: meta.ChainLength,
	})
}

type keyResponse struct {
	Size        int    `json:"size"`
	Data        []byte `json:"data"`
	ChainLength int    `json:"chain_length"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: msg})
}
