// Copyright (C) 2025, Gridmine Labs. All rights reserved.
// See the file LICENSE for licensing terms.

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"

	"github.com/gridmine/gridmine/pkg/ledger"
	"github.com/gridmine/gridmine/pkg/log"
	"github.com/gridmine/gridmine/pkg/metric"
	"github.com/gridmine/gridmine/pkg/multicall"
	"github.com/gridmine/gridmine/pkg/sale"
)

// Clock supplies the single time source every handler uses.
type Clock func() time.Time

// Server exposes the ledger, sale, and aggregate views over HTTP.
type Server struct {
	mc      *multicall.Multicall
	ledger  *ledger.Ledger
	metrics *metric.Metrics
	clock   Clock
	log     log.Logger
	http    *http.Server
}

// New creates the server. A nil clock uses the wall clock.
func New(addr string, mc *multicall.Multicall, l *ledger.Ledger, metrics *metric.Metrics, clock Clock, logger log.Logger) *Server {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = log.NoOp()
	}
	s := &Server{
		mc:      mc,
		ledger:  l,
		metrics: metrics,
		clock:   clock,
		log:     logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/slot/{index}", s.handleGetSlot).Methods(http.MethodGet)
	r.HandleFunc("/slots", s.handleGetSlots).Methods(http.MethodGet)
	r.HandleFunc("/miner/{address}", s.handleGetMiner).Methods(http.MethodGet)
	r.HandleFunc("/price", s.handleGetPrice).Methods(http.MethodGet)
	r.HandleFunc("/multipliers", s.handleGetMultipliers).Methods(http.MethodGet)
	r.HandleFunc("/mine", s.handleMine).Methods(http.MethodPost)
	r.HandleFunc("/buy", s.handleBuy).Methods(http.MethodPost)
	r.HandleFunc("/admin/multipliers", s.handleSetMultipliers).Methods(http.MethodPost)
	r.HandleFunc("/admin/treasury", s.handleSetTreasury).Methods(http.MethodPost)
	r.HandleFunc("/ws", s.handleEvents).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.GetGatherer(), promhttp.HandlerOpts{}))
	}

	s.http = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.log.Info("http server listening", "addr", s.http.Addr)
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

type mineRequest struct {
	Caller      string          `json:"caller"`
	Index       int             `json:"index"`
	EpochID     uint64          `json:"epoch_id"`
	Deadline    int64           `json:"deadline"` // unix seconds
	QuotedPrice decimal.Decimal `json:"quoted_price"`
	Payment     decimal.Decimal `json:"payment"`
	URI         string          `json:"uri"`
	Referrer    string          `json:"referrer,omitempty"`
}

type buyRequest struct {
	Caller      string          `json:"caller"`
	Deadline    int64           `json:"deadline"`
	QuotedPrice decimal.Decimal `json:"quoted_price"`
	Payment     decimal.Decimal `json:"payment"`
}

type adminMultipliersRequest struct {
	Caller      string            `json:"caller"`
	Multipliers []decimal.Decimal `json:"multipliers"`
}

type adminTreasuryRequest struct {
	Caller   string `json:"caller"`
	Treasury string `json:"treasury"`
}

type errorResponse struct {
	RequestID string `json:"request_id"`
	Error     string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "healthy",
		"capacity": s.ledger.Capacity(),
		"owned":    s.ledger.OwnedSlots(),
	})
}

func (s *Server) handleGetSlot(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		s.writeError(w, ledger.ErrInvalidIndex)
		return
	}
	view, err := s.mc.GetSlot(index, s.clock())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleGetSlots(w http.ResponseWriter, r *http.Request) {
	from, err1 := strconv.Atoi(r.URL.Query().Get("from"))
	to, err2 := strconv.Atoi(r.URL.Query().Get("to"))
	if err1 != nil || err2 != nil {
		s.writeError(w, ledger.ErrInvalidIndex)
		return
	}
	views, err := s.mc.GetSlots(from, to, s.clock())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetMiner(w http.ResponseWriter, r *http.Request) {
	addr := mux.Vars(r)["address"]
	writeJSON(w, http.StatusOK, s.mc.GetMiner(addr, s.clock()))
}

func (s *Server) handleGetPrice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"unit_price": s.mc.UnitPrice(s.clock())})
}

func (s *Server) handleGetMultipliers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"multipliers": s.mc.GetMultipliers()})
}

func (s *Server) handleMine(w http.ResponseWriter, r *http.Request) {
	var req mineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	receipt, err := s.mc.Mine(ledger.ClaimRequest{
		Caller:      req.Caller,
		Index:       req.Index,
		EpochID:     req.EpochID,
		Deadline:    time.Unix(req.Deadline, 0),
		QuotedPrice: req.QuotedPrice,
		Payment:     req.Payment,
		URI:         req.URI,
		Referrer:    req.Referrer,
	}, s.clock())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	receipt, err := s.mc.Buy(sale.PurchaseRequest{
		Caller:      req.Caller,
		Deadline:    time.Unix(req.Deadline, 0),
		QuotedPrice: req.QuotedPrice,
		Payment:     req.Payment,
	}, s.clock())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleSetMultipliers(w http.ResponseWriter, r *http.Request) {
	var req adminMultipliersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.ledger.SetMultipliers(req.Caller, req.Multipliers); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSetTreasury(w http.ResponseWriter, r *http.Request) {
	var req adminTreasuryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeBadRequest(w, err)
		return
	}
	if err := s.ledger.SetTreasury(req.Caller, req.Treasury); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) writeBadRequest(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		RequestID: uuid.NewString(),
		Error:     err.Error(),
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ledger.ErrInvalidIndex):
		status = http.StatusNotFound
	case errors.Is(err, ledger.ErrExpired), errors.Is(err, sale.ErrExpired):
		status = http.StatusRequestTimeout
	case errors.Is(err, ledger.ErrStaleEpoch):
		status = http.StatusConflict
	case errors.Is(err, ledger.ErrUnderpaid), errors.Is(err, sale.ErrUnderpaid):
		status = http.StatusPaymentRequired
	case errors.Is(err, ledger.ErrInvalidLength), errors.Is(err, ledger.ErrInvalidWeight):
		status = http.StatusBadRequest
	case errors.Is(err, ledger.ErrUnauthorized):
		status = http.StatusForbidden
	}

	reqID := uuid.NewString()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "request_id", reqID, "error", err.Error())
	} else {
		s.log.Debug("request rejected", "request_id", reqID, "error", err.Error())
	}
	writeJSON(w, status, errorResponse{RequestID: reqID, Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
