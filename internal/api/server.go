// Package api serves the running game over HTTP.
// GET endpoints are public (read-only observation).
// POST endpoints require a bearer token (the player's control plane).
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/umuterturk/investment-game/internal/clock"
	"github.com/umuterturk/investment-game/internal/engine"
	"github.com/umuterturk/investment-game/internal/persistence"
	"github.com/umuterturk/investment-game/internal/player"
	"github.com/umuterturk/investment-game/internal/refdata"
)

// maxManualDays caps one manual tick request.
const maxManualDays = 31

// Server serves the game state over HTTP.
type Server struct {
	Sim      *engine.Simulation
	Eng      *engine.Engine
	DB       *persistence.DB // optional; history endpoints answer 503 without it
	Hub      *Hub
	Slot     string
	Port     int
	AdminKey string // Bearer token for POST endpoints. Empty = POST disabled.
	TickRate int    // manual tick requests per client per minute
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	if s.Hub == nil {
		s.Hub = NewHub()
	}
	rate := s.TickRate
	if rate <= 0 {
		rate = 5
	}
	tickLimiter := NewRateLimiter(rate, time.Minute)

	mux := http.NewServeMux()

	// Public endpoints.
	mux.HandleFunc("/api/v1/status", s.handleStatus)
	mux.HandleFunc("/api/v1/snapshot", s.handleSnapshot)
	mux.HandleFunc("/api/v1/prices", s.handlePrices)
	mux.HandleFunc("/api/v1/events", s.handleEvents)
	mux.HandleFunc("/api/v1/history", s.handleHistory)
	mux.HandleFunc("/api/v1/ledger", s.handleLedger)
	mux.HandleFunc("/api/v1/stream", s.handleStream)

	// Control endpoints (POST, require bearer token).
	mux.HandleFunc("/api/v1/runstate", s.adminOnly(s.handleRunState))
	mux.HandleFunc("/api/v1/tick", s.adminOnly(RateLimitMiddleware(tickLimiter, s.handleTick)))
	mux.HandleFunc("/api/v1/action/", s.adminOnly(s.handleAction))
	mux.HandleFunc("/api/v1/save", s.adminOnly(s.handleSave))

	return corsMiddleware(mux)
}

// Start serves the API until ctx is cancelled.
func (s *Server) Start(ctx context.Context) {
	addr := fmt.Sprintf(":%d", s.Port)
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	slog.Info("HTTP API starting", "addr", addr, "admin_auth", s.AdminKey != "")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()
}

// corsMiddleware adds CORS headers for allowed frontend origins.
// Set CORS_ORIGINS env var to a comma-separated list of allowed origins.
// Localhost dev servers are always allowed.
func corsMiddleware(next http.Handler) http.Handler {
	allowedOrigins := map[string]bool{
		"http://localhost:5173": true,
		"http://localhost:3000": true,
	}
	if env := os.Getenv("CORS_ORIGINS"); env != "" {
		for _, origin := range strings.Split(env, ",") {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				allowedOrigins[origin] = true
			}
		}
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) checkBearerToken(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	return strings.HasPrefix(auth, "Bearer ") && strings.TrimPrefix(auth, "Bearer ") == s.AdminKey
}

// adminOnly guards POST requests; GET passes through.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if s.AdminKey == "" {
				http.Error(w, "control endpoints disabled (no LIFESIM_ADMIN_KEY set)", http.StatusForbidden)
				return
			}
			if !s.checkBearerToken(r) {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		next(w, r)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	v := s.Sim.Snapshot()
	status := map[string]any{
		"name":           v.Player.Name,
		"dataset":        s.Sim.Data().Name,
		"date":           v.Date.String(),
		"age":            v.Age,
		"end_age":        v.EndAge,
		"state":          v.RunState,
		"engine_running": s.Eng != nil && s.Eng.Running(),
		"cash":           v.Player.Cash,
		"net_worth":      v.Worth.Total,
		"happiness":      v.Happiness.Total,
		"stream_clients": s.Hub.Clients(),
	}
	writeJSON(w, status)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.Sim.Snapshot())
}

// handlePrices returns quotes for today, or for ?date=YYYY-MM-DD.
// ?asset=class:name narrows the result to one key.
func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	d := s.Sim.Date()
	if q := r.URL.Query().Get("date"); q != "" {
		parsed, err := clock.ParseDate(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		d = parsed
	}

	keys := s.Sim.Data().Keys()
	if q := r.URL.Query().Get("asset"); q != "" {
		key, err := refdata.ParseAssetKey(q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !s.Sim.Data().Has(key) {
			msg := fmt.Sprintf("unknown asset %q", q)
			if hint := s.Sim.Data().Suggest(key); hint != "" {
				msg += fmt.Sprintf(" (did you mean %q?)", hint)
			}
			http.Error(w, msg, http.StatusNotFound)
			return
		}
		keys = []refdata.AssetKey{key}
	}

	prices := make(map[string]float64, len(keys))
	for _, k := range keys {
		prices[k.String()] = s.Sim.PriceOf(k, d)
	}
	writeJSON(w, map[string]any{"date": d.String(), "prices": prices})
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	category := r.URL.Query().Get("category")

	events := s.Sim.Events(0)
	if category != "" {
		kept := events[:0]
		for _, e := range events {
			if e.Category == category {
				kept = append(kept, e)
			}
		}
		events = kept
	}
	if limit > 0 && len(events) > limit {
		events = events[len(events)-limit:]
	}
	// Newest first.
	sort.SliceStable(events, func(i, j int) bool { return events[i].Seq > events[j].Seq })
	writeJSON(w, events)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	stmts, err := s.DB.Statements(s.Slot)
	if err != nil {
		slog.Error("history query failed", "error", err)
		http.Error(w, "history unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, stmts)
}

func (s *Server) handleLedger(w http.ResponseWriter, r *http.Request) {
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	events, err := s.DB.RecentEvents(s.Slot, queryInt(r, "limit", 100))
	if err != nil {
		slog.Error("ledger query failed", "error", err)
		http.Error(w, "ledger unavailable", http.StatusInternalServerError)
		return
	}
	writeJSON(w, events)
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	s.Hub.Serve(r.Context(), w, r, s.Sim.Snapshot())
}

func (s *Server) handleRunState(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		var req struct {
			State string `json:"state"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		state, err := clock.ParseRunState(req.State)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if !s.Sim.SetRunState(state) {
			http.Error(w, fmt.Sprintf("cannot move from %s to %s", s.Sim.RunState(), state), http.StatusConflict)
			return
		}
	}
	writeJSON(w, map[string]string{"state": s.Sim.RunState().String()})
}

// handleTick advances the game by hand, {"days": n} at a time.
func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	req := struct {
		Days int `json:"days"`
	}{Days: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}
	if req.Days < 1 || req.Days > maxManualDays {
		http.Error(w, fmt.Sprintf("days must be 1-%d", maxManualDays), http.StatusBadRequest)
		return
	}

	var last engine.TickReport
	var events []engine.Event
	for i := 0; i < req.Days; i++ {
		rep, err := s.Sim.Tick()
		if err != nil {
			if i == 0 {
				writeError(w, err)
				return
			}
			break
		}
		events = append(events, rep.Events...)
		last = rep
	}
	last.Events = events
	writeJSON(w, last)
}

// actionRequest carries the arguments of every player action; each
// action reads the fields it needs.
type actionRequest struct {
	Ticker     string  `json:"ticker"`
	Shares     float64 `json:"shares"`
	Region     string  `json:"region"`
	SizeSqm    float64 `json:"size_sqm"`
	Deposit    float64 `json:"deposit"`
	Primary    bool    `json:"primary"`
	ID         string  `json:"id"`
	Let        bool    `json:"let"`
	Amount     float64 `json:"amount"`
	TermMonths int     `json:"term_months"`
	Kind       string  `json:"kind"`
	On         bool    `json:"on"`
}

// handleAction dispatches POST /api/v1/action/{name}.
func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/action/")
	var req actionRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
	}

	result, err := s.runAction(name, req)
	if errors.Is(err, errUnknownAction) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, map[string]any{"action": name, "result": result, "snapshot": s.Sim.Snapshot()})
}

var errUnknownAction = errors.New("unknown action")

func (s *Server) runAction(name string, req actionRequest) (any, error) {
	switch name {
	case "buy_stock":
		cost, err := s.Sim.BuyStock(req.Ticker, req.Shares)
		return map[string]float64{"cost": cost}, err
	case "sell_stock":
		proceeds, gain, err := s.Sim.SellStock(req.Ticker, req.Shares)
		return map[string]float64{"proceeds": proceeds, "gain": gain}, err
	case "quote_property":
		return s.Sim.QuoteProperty(req.Region, req.SizeSqm, req.Deposit)
	case "buy_property":
		return s.Sim.BuyProperty(req.Region, req.SizeSqm, req.Deposit, req.Primary)
	case "sell_property":
		return s.Sim.SellProperty(req.ID)
	case "let_property":
		rent, err := s.Sim.LetProperty(req.ID, req.Let)
		return map[string]float64{"monthly_rent": rent}, err
	case "rent":
		return s.Sim.Rent(req.Region, req.SizeSqm)
	case "end_tenancy":
		refund, err := s.Sim.EndTenancy()
		return map[string]float64{"refund": refund}, err
	case "take_loan":
		return s.Sim.TakeLoan(req.Amount, req.TermMonths)
	case "repay_loan":
		paid, err := s.Sim.RepayLoan(req.ID)
		return map[string]float64{"paid": paid}, err
	case "set_insurance":
		return map[string]any{"kind": req.Kind, "on": req.On}, s.Sim.SetInsurance(req.Kind, req.On)
	}
	return nil, fmt.Errorf("%w %q", errUnknownAction, name)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "POST only", http.StatusMethodNotAllowed)
		return
	}
	if s.DB == nil {
		http.Error(w, "no database configured", http.StatusServiceUnavailable)
		return
	}
	st := s.Sim.Export()
	if err := s.DB.SaveGame(s.Slot, st, s.Sim.Snapshot().Worth.Total); err != nil {
		slog.Error("save failed", "error", err)
		http.Error(w, "save failed", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"slot": s.Slot, "date": st.Clock.Date.String()})
}

// statusFor maps engine and player errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, player.ErrUnknownAsset):
		return http.StatusNotFound
	case errors.Is(err, player.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, player.ErrInsufficientFunds),
		errors.Is(err, player.ErrNegativeEquity),
		errors.Is(err, player.ErrNotOwned),
		errors.Is(err, player.ErrPrimaryResidence),
		errors.Is(err, player.ErrLoanRefused),
		errors.Is(err, player.ErrTenancyActive),
		errors.Is(err, player.ErrGameOver):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func queryInt(r *http.Request, name string, def int) int {
	if v := r.URL.Query().Get(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}
