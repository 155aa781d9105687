package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"CookieBroker/internal/market"
	"CookieBroker/internal/model"
	"CookieBroker/internal/recorder"
)

// Controller pauses and resumes trading.
type Controller interface {
	Pause()
	Resume()
	Paused() bool
}

// LedgerReader exposes the persisted ledger.
type LedgerReader interface {
	Document() *model.LedgerDocument
}

// Server is the read-mostly HTTP API over the running bot.
type Server struct {
	addr    string
	origins []string
	market  *market.Market
	ledger  LedgerReader
	history recorder.Recorder
	control Controller
	hub     *Hub
	started time.Time
	server  *http.Server
}

func NewServer(addr string, origins []string, mkt *market.Market, led LedgerReader,
	history recorder.Recorder, control Controller, hub *Hub) *Server {
	return &Server{
		addr:    addr,
		origins: origins,
		market:  mkt,
		ledger:  led,
		history: history,
		control: control,
		hub:     hub,
		started: time.Now(),
	}
}

// Handler builds the router with CORS applied.
func (s *Server) Handler() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", s.getHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/status", s.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/stocks", s.getStocks).Methods(http.MethodGet)
	api.HandleFunc("/stocks/{symbol}", s.getStock).Methods(http.MethodGet)
	api.HandleFunc("/ledger", s.getLedger).Methods(http.MethodGet)
	api.HandleFunc("/trades", s.getTrades).Methods(http.MethodGet)
	api.HandleFunc("/pause", s.postPause).Methods(http.MethodPost)
	api.HandleFunc("/resume", s.postResume).Methods(http.MethodPost)
	api.HandleFunc("/ws", s.hub.ServeWS).Methods(http.MethodGet)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		MaxAge:         3600,
	})
	return c.Handler(router)
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.server.Shutdown(shutdownCtx)
	}()

	log.Printf("[INFO] API server listening on %s", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) getHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) getStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		market.Status
		Paused      bool `json:"paused"`
		Subscribers int  `json:"subscribers"`
	}{s.market.Status(), s.control.Paused(), s.hub.Subscribers()})
}

func (s *Server) getStocks(w http.ResponseWriter, r *http.Request) {
	decisions := s.market.Plan()
	if r.URL.Query().Get("held") == "true" {
		held := decisions[:0]
		for _, d := range decisions {
			if d.Stock.Held > 0 {
				held = append(held, d)
			}
		}
		decisions = held
	}
	writeJSON(w, http.StatusOK, struct {
		Stocks []market.Decision `json:"stocks"`
		Count  int               `json:"count"`
	}{decisions, len(decisions)})
}

func (s *Server) getStock(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(mux.Vars(r)["symbol"])
	for _, d := range s.market.Plan() {
		if d.Stock.Symbol == symbol {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeError(w, http.StatusNotFound, "stock not found")
}

func (s *Server) getLedger(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.ledger.Document())
}

func (s *Server) getTrades(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	trades, err := s.history.RecentTrades(limit)
	if err != nil {
		log.Printf("[ERROR] load trades: %v", err)
		writeError(w, http.StatusInternalServerError, "trade history unavailable")
		return
	}
	if trades == nil {
		trades = []recorder.TradeRow{}
	}
	writeJSON(w, http.StatusOK, struct {
		Trades []recorder.TradeRow `json:"trades"`
		Count  int                 `json:"count"`
	}{trades, len(trades)})
}

func (s *Server) postPause(w http.ResponseWriter, _ *http.Request) {
	s.control.Pause()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": true})
}

func (s *Server) postResume(w http.ResponseWriter, _ *http.Request) {
	s.control.Resume()
	writeJSON(w, http.StatusOK, map[string]bool{"paused": false})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("[WARN] write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
