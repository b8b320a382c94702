// Package httpapi serves the round view, price, history and bet actions as JSON.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/alejandrodnm/roundbet/internal/domain"
)

// Views hands out the latest reconciled view.
type Views interface {
	Snapshot() domain.View
}

// Prices hands out the latest throttled price.
type Prices interface {
	Latest() (domain.Price, bool)
}

// History pages through the caller's past bets.
type History interface {
	FetchPage(ctx context.Context, user solana.PublicKey, offset int) (domain.HistoryPage, error)
}

// Bets submits and evaluates wallet actions.
type Bets interface {
	Wallet() (solana.PublicKey, error)
	PlaceBet(ctx context.Context, dir domain.Direction, amount float64) (domain.TxHandle, error)
	Claim(ctx context.Context, roundID uint64) (domain.TxHandle, error)
	Claimable(ctx context.Context, roundID uint64) (bool, error)
	RecentTxs(ctx context.Context, limit int) ([]domain.TxRecord, error)
}

// Deps wires the handlers. Metrics and Prices may be nil.
type Deps struct {
	Views          Views
	Prices         Prices
	History        History
	Bets           Bets
	Metrics        http.Handler
	AllowedOrigins []string
	Now            func() time.Time
}

type handler struct {
	Deps
}

// NewRouter builds the chi router with every route mounted.
func NewRouter(d Deps) http.Handler {
	if d.Now == nil {
		d.Now = time.Now
	}
	h := &handler{Deps: d}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", h.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Get("/price", h.price)
		r.Get("/history", h.history)
		r.Get("/txs", h.txs)
		r.Get("/rounds/{id}/claimable", h.claimable)
		r.Post("/bets", h.placeBet)
		r.Post("/claims/{id}", h.claim)
	})
	return r
}

// Server wraps http.Server with context-driven shutdown.
type Server struct {
	srv *http.Server
}

// NewServer crea un Server en addr.
func NewServer(addr string, router http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}}
}

// Run listens until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("http: listening", "addr", s.srv.Addr)
		errCh <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutCtx); err != nil {
		return err
	}
	slog.Info("http: stopped")
	return nil
}

// --- handlers ---

type stateResponse struct {
	domain.View
	Synced          bool   `json:"synced"`
	CurrentTimeLeft int64  `json:"currentTimeLeftSeconds"`
	Wallet          string `json:"wallet,omitempty"`
}

func (h *handler) state(w http.ResponseWriter, r *http.Request) {
	view := h.Views.Snapshot()
	resp := stateResponse{View: view, Synced: view.Synced()}
	if view.Current != nil {
		resp.CurrentTimeLeft = int64(view.Current.TimeLeft(h.Now()) / time.Second)
	}
	if h.Bets != nil {
		if pk, err := h.Bets.Wallet(); err == nil {
			resp.Wallet = pk.String()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

type priceResponse struct {
	Price domain.Price      `json:"price"`
	Move  *domain.PriceMove `json:"move,omitempty"`
}

func (h *handler) price(w http.ResponseWriter, _ *http.Request) {
	if h.Prices == nil {
		writeError(w, http.StatusServiceUnavailable, "price feed disabled")
		return
	}
	p, ok := h.Prices.Latest()
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "no price yet")
		return
	}
	resp := priceResponse{Price: p}
	if cur := h.Views.Snapshot().Current; cur != nil {
		if move, ok := domain.NewPriceMove(cur.StartPrice, p.Value); ok {
			resp.Move = &move
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if raw := r.URL.Query().Get("offset"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "offset must be an integer")
			return
		}
		offset = n
	}

	var user solana.PublicKey
	if raw := r.URL.Query().Get("user"); raw != "" {
		pk, err := solana.PublicKeyFromBase58(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "user must be a base58 public key")
			return
		}
		user = pk
	} else {
		pk, err := h.Bets.Wallet()
		if err != nil {
			writeDomainError(w, err)
			return
		}
		user = pk
	}

	page, err := h.History.FetchPage(r.Context(), user, offset)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *handler) txs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	recs, err := h.Bets.RecentTxs(r.Context(), limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if recs == nil {
		recs = []domain.TxRecord{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) claimable(w http.ResponseWriter, r *http.Request) {
	id, ok := roundParam(w, r)
	if !ok {
		return
	}
	can, err := h.Bets.Claimable(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"roundId": id, "claimable": can})
}

type betRequest struct {
	Direction string  `json:"direction"`
	Amount    float64 `json:"amount"`
}

func (h *handler) placeBet(w http.ResponseWriter, r *http.Request) {
	var req betRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	dir, err := domain.ParseDirection(req.Direction)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	tx, err := h.Bets.PlaceBet(r.Context(), dir, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *handler) claim(w http.ResponseWriter, r *http.Request) {
	id, ok := roundParam(w, r)
	if !ok {
		return
	}
	tx, err := h.Bets.Claim(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	view := h.Views.Snapshot()
	status := http.StatusOK
	if !view.Synced() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"synced": view.Synced(), "seq": view.Seq, "syncedAt": view.SyncedAt})
}

// --- helpers ---

func roundParam(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "round id must be a non-negative integer")
		return 0, false
	}
	return id, true
}

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	var rej *domain.LedgerRejection
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case errors.As(err, &rej):
		return http.StatusConflict
	case domain.IsTransport(err):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	body := errorBody{Error: err.Error()}
	var rej *domain.LedgerRejection
	if errors.As(err, &rej) {
		body.Code = rej.Name
	}
	if status >= http.StatusInternalServerError {
		slog.Warn("http: request failed", "status", status, "err", err)
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("http: encode response", "err", err)
	}
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		slog.Debug("http: request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
