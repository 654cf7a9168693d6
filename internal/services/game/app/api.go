package app

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"

	"github.com/louisbranch/pecking-order/internal/platform/requestctx"
	"github.com/louisbranch/pecking-order/internal/platform/timeouts"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/event"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/orchestrator"
	"github.com/louisbranch/pecking-order/internal/services/game/observability/metrics"
)

const (
	maxBodyBytes    = 1 << 20
	defaultTokenTTL = 7 * 24 * time.Hour
)

// HandlerConfig wires the HTTP surface.
type HandlerConfig struct {
	Manager *Manager
	Tokens  *Tokens
	// AdminToken guards /admin. Empty disables the admin API.
	AdminToken string
	Metrics    *metrics.Metrics
	// Gatherer backs /metrics. Nil serves the default registry.
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NarratorRequest is the body of POST /admin/games/{id}/narrator.
type NarratorRequest struct {
	Text string `json:"text"`
}

// TokenRequest is the body of POST /admin/games/{id}/tokens.
type TokenRequest struct {
	PlayerID string `json:"playerId"`
	// TTL is a Go duration string. Defaults to a week.
	TTL string `json:"ttl,omitempty"`
}

// TokenResponse carries a signed player token.
type TokenResponse struct {
	Token string `json:"token"`
}

type api struct {
	manager    *Manager
	tokens     *Tokens
	adminToken string
	log        zerolog.Logger
}

// NewHandler returns the router serving players, admins and scrapers.
func NewHandler(cfg HandlerConfig) http.Handler {
	a := &api{manager: cfg.Manager, tokens: cfg.Tokens, adminToken: cfg.AdminToken, log: cfg.Logger}

	r := chi.NewRouter()
	r.Use(cfg.Metrics.Middleware)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	gatherer := cfg.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	r.Get("/up", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.With(a.requirePlayer).Get("/ws", a.socket)

	r.Route("/admin", func(r chi.Router) {
		r.Use(a.requireAdmin)
		r.Post("/games", a.createGame)
		r.Route("/games/{id}", func(r chi.Router) {
			r.Get("/", a.gameStatus)
			r.Post("/advance", a.advance)
			r.Post("/inject", a.inject)
			r.Post("/narrator", a.narrator)
			r.Post("/tokens", a.issueToken)
		})
	})
	return r
}

func (a *api) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.adminToken == "" {
			writeError(w, http.StatusServiceUnavailable, "admin api is disabled")
			return
		}
		got := bearerToken(r)
		if subtle.ConstantTimeCompare([]byte(got), []byte(a.adminToken)) != 1 {
			writeError(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (a *api) createGame(w http.ResponseWriter, r *http.Request) {
	var p orchestrator.InitPayload
	if !decodeBody(w, r, &p) {
		return
	}
	h, err := a.manager.Create(r.Context(), p)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	a.writeStatus(w, r, h, http.StatusCreated)
}

func (a *api) gameStatus(w http.ResponseWriter, r *http.Request) {
	h, ok := a.host(w, r)
	if !ok {
		return
	}
	a.writeStatus(w, r, h, http.StatusOK)
}

func (a *api) advance(w http.ResponseWriter, r *http.Request) {
	h, ok := a.host(w, r)
	if !ok {
		return
	}
	if err := h.Advance(r.Context()); err != nil {
		a.writeErr(w, err)
		return
	}
	a.writeStatus(w, r, h, http.StatusOK)
}

func (a *api) inject(w http.ResponseWriter, r *http.Request) {
	h, ok := a.host(w, r)
	if !ok {
		return
	}
	var p orchestrator.InjectPayload
	if !decodeBody(w, r, &p) {
		return
	}
	if !p.Action.Known() {
		writeError(w, http.StatusBadRequest, "unknown action")
		return
	}
	if err := h.Inject(r.Context(), p); err != nil {
		a.writeErr(w, err)
		return
	}
	a.writeStatus(w, r, h, http.StatusOK)
}

func (a *api) narrator(w http.ResponseWriter, r *http.Request) {
	h, ok := a.host(w, r)
	if !ok {
		return
	}
	var req NarratorRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return
	}
	if err := h.Narrator(r.Context(), req.Text); err != nil {
		a.writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (a *api) issueToken(w http.ResponseWriter, r *http.Request) {
	if a.tokens == nil {
		writeError(w, http.StatusServiceUnavailable, "player tokens are disabled")
		return
	}
	h, ok := a.host(w, r)
	if !ok {
		return
	}
	var req TokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ttl := defaultTokenTTL
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "invalid ttl")
			return
		}
		ttl = parsed
	}
	st, err := h.Status(r.Context())
	if err != nil {
		a.writeErr(w, err)
		return
	}
	if !st.Roster.Has(req.PlayerID) {
		a.writeErr(w, ErrUnknownPlayer)
		return
	}
	token, err := a.tokens.Issue(h.GameID(), req.PlayerID, ttl)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, TokenResponse{Token: token})
}

// requirePlayer verifies the player token from the token query parameter
// or the Authorization header.
func (a *api) requirePlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.tokens == nil {
			writeError(w, http.StatusServiceUnavailable, "player connections are disabled")
			return
		}
		raw := r.URL.Query().Get("token")
		if raw == "" {
			raw = bearerToken(r)
		}
		claims, err := a.tokens.Verify(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}
		ctx := requestctx.WithPlayer(r.Context(), requestctx.Player{GameID: claims.GameID, PlayerID: claims.PlayerID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// socket upgrades a verified player connection.
func (a *api) socket(w http.ResponseWriter, r *http.Request) {
	player, ok := requestctx.PlayerFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}
	h, err := a.manager.Get(r.Context(), player.GameID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	sub, err := h.Connect(r.Context(), player.PlayerID)
	if err != nil {
		a.writeErr(w, err)
		return
	}
	defer h.Disconnect(sub)

	srv := websocket.Server{Handler: func(ws *websocket.Conn) {
		a.serveSocket(ws, h, sub)
	}}
	srv.ServeHTTP(w, r)
}

func (a *api) serveSocket(ws *websocket.Conn, h *Host, sub *Subscription) {
	defer ws.Close()
	log := a.log.With().Str("game_id", h.GameID()).Str("player_id", sub.PlayerID).Logger()

	go func() {
		defer ws.Close()
		for f := range sub.Frames() {
			if err := ws.SetWriteDeadline(time.Now().Add(timeouts.SocketWrite)); err != nil {
				return
			}
			if err := websocket.JSON.Send(ws, f); err != nil {
				log.Debug().Err(err).Msg("socket write")
				return
			}
		}
	}()

	ctx := ws.Request().Context()
	for {
		var f Frame
		if err := websocket.JSON.Receive(ws, &f); err != nil {
			return
		}
		err := h.Client(ctx, sub.PlayerID, event.Type(f.Type), f.Payload)
		switch {
		case err == nil:
		case errors.Is(err, ErrEventNotAllowed):
			log.Debug().Str("type", f.Type).Msg("client event dropped")
		default:
			log.Warn().Err(err).Msg("client event")
			return
		}
	}
}

func (a *api) host(w http.ResponseWriter, r *http.Request) (*Host, bool) {
	h, err := a.manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeErr(w, err)
		return nil, false
	}
	return h, true
}

func (a *api) writeStatus(w http.ResponseWriter, r *http.Request, h *Host, code int) {
	st, err := h.Status(r.Context())
	if err != nil {
		a.writeErr(w, err)
		return
	}
	writeJSON(w, code, st)
}

func (a *api) writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrGameExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrUnknownPlayer):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, ErrInitRejected),
		errors.Is(err, orchestrator.ErrGameIDRequired),
		errors.Is(err, orchestrator.ErrRosterRequired),
		errors.Is(err, manifest.ErrDaysRequired),
		errors.Is(err, manifest.ErrInvalidScheduling):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrHostClosed):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		a.log.Error().Err(err).Msg("admin request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return false
	}
	return true
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		return ""
	}
	return strings.TrimSpace(token)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
