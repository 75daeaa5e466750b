package http

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/floraxhq/florax/internal/application"
	"github.com/floraxhq/florax/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionCookieName = "fx_session"

type contextKey string

const identityKey contextKey = "identity"

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "florax_http_requests_total",
	Help: "HTTP requests by route pattern, method and status.",
}, []string{"method", "path", "status"})

type Handler struct {
	service *application.DashboardService
}

func NewRouter(service *application.DashboardService) http.Handler {
	h := &Handler{service: service}
	r := chi.NewRouter()
	r.Use(metricsMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Post("/auth/register", h.handleRegister)
		api.Post("/auth/login", h.handleLogin)
		api.Post("/auth/forgot-password", h.handleForgotPassword)
		api.Post("/auth/reset-password", h.handleResetPassword)
		api.With(h.requireAuthAPI).Get("/auth/whoami", h.handleWhoAmI)
		api.With(h.requireAuthAPI).Post("/auth/logout", h.handleLogout)

		api.Group(func(authed chi.Router) {
			authed.Use(h.requireAuthAPI)

			authed.Get("/dashboard", h.handleDashboard)
			authed.Get("/dashboard/summary", h.handleDashboardSummary)

			authed.Get("/gardens", h.handleListGardens)
			authed.Get("/gardens/{gardenID}", h.handleGetGarden)
			authed.Get("/gardens/{gardenID}/zones", h.handleZonesByGarden)
			authed.Get("/gardens/{gardenID}/alerts", h.handleAlertsByGarden)
			authed.Get("/gardens/{gardenID}/tanks", h.handleTanksByGarden)

			authed.Get("/zones", h.handleListZones)
			authed.Get("/zones/alert", h.handleAlertZones)
			authed.Get("/zones/active", h.handleActiveZones)
			authed.Get("/zones/{zoneID}", h.handleGetZone)
			authed.Get("/zones/{zoneID}/sensors", h.handleSensorsByZone)
			authed.Get("/zones/{zoneID}/irrigation", h.handleLogsByZone)
			authed.Get("/zones/{zoneID}/valves", h.handleValvesByZone)

			authed.Get("/sensors", h.handleListSensors)
			authed.Get("/sensors/faulty", h.handleFaultySensors)

			authed.Get("/irrigation/today", h.handleTodayLogs)
			authed.Get("/irrigation/weekly", h.handleWeeklyLogs)
			authed.Get("/irrigation/monthly", h.handleMonthlyLogs)
			authed.Get("/irrigation/recent", h.handleRecentLogs)

			authed.Get("/water-usage/today", h.handleWaterUsedToday)
			authed.Get("/water-usage/weekly", h.handleWaterUsedThisWeek)
			authed.Get("/water-usage/monthly", h.handleWaterUsedThisMonth)

			authed.Get("/alerts/active", h.handleActiveAlerts)
			authed.Get("/alerts/resolved-today", h.handleResolvedAlertsToday)
			authed.Get("/alerts/recent", h.handleRecentAlerts)
			authed.Get("/alerts/count-by-type", h.handleAlertCountByType)
			authed.Post("/alerts/{alertID}/resolve", h.handleResolveAlert)

			authed.Get("/tanks", h.handleListTanks)
			authed.Get("/tanks/low", h.handleLowTanks)

			authed.Get("/valves", h.handleListValves)
			authed.Get("/valves/open", h.handleOpenValves)

			authed.Get("/audit/logs", h.handleListAuditLogs)
		})
	})

	return r
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Phone    string `json:"phone"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	u, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password, req.Phone)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email})
}

type loginRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	Mode      string `json:"mode"`
	TokenName string `json:"token_name"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	mode := strings.ToLower(strings.TrimSpace(req.Mode))
	if mode == "" {
		mode = "token"
	}

	if mode == "session" {
		u, token, err := h.service.LoginWithSession(r.Context(), req.Email, req.Password, 12*time.Hour)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
			return
		}
		h.setSessionCookie(w, token)
		writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "mode": "session"})
		return
	}

	u, token, err := h.service.LoginWithAPIToken(r.Context(), req.Email, req.Password, req.TokenName, nil)
	if err != nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user_id": u.ID, "email": u.Email, "token": token, "mode": "token"})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		_ = h.service.LogoutAPIToken(r.Context(), strings.TrimSpace(authHeader[7:]))
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	c, err := r.Cookie(sessionCookieName)
	if err == nil && c.Value != "" {
		_ = h.service.LogoutSession(r.Context(), c.Value)
		h.clearSessionCookie(w)
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":    identity.User.ID,
		"name":  identity.User.Name,
		"email": identity.User.Email,
		"role":  identity.User.Role,
	})
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (h *Handler) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	token, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err == nil {
		// Stand-in for the mail dispatcher; the token never goes to the caller.
		log.Printf("password reset token for %s: %s", req.Email, token)
	}
	// Same answer whether or not the account exists.
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

func (h *Handler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid payload"})
		return
	}
	if err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDashboard(r.Context(), currentEmail(r.Context()))
	h.respond(w, view, err)
}

func (h *Handler) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.GetDashboardSummary(r.Context(), currentEmail(r.Context()))
	h.respond(w, view, err)
}

func (h *Handler) handleListGardens(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListGardens(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleGetGarden(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gardenID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	view, err := h.service.GetGarden(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, view, err)
}

func (h *Handler) handleZonesByGarden(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gardenID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	items, err := h.service.ZonesByGarden(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, items, err)
}

func (h *Handler) handleAlertsByGarden(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gardenID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	items, err := h.service.AlertsByGarden(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, items, err)
}

func (h *Handler) handleTanksByGarden(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "gardenID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	items, err := h.service.TanksByGarden(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, items, err)
}

func (h *Handler) handleListZones(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListZones(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleAlertZones(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.AlertZones(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleActiveZones(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ActiveZones(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleGetZone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "zoneID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	view, err := h.service.GetZone(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, view, err)
}

func (h *Handler) handleSensorsByZone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "zoneID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	items, err := h.service.SensorsByZone(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, items, err)
}

func (h *Handler) handleLogsByZone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "zoneID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	items, err := h.service.LogsByZone(r.Context(), currentEmail(r.Context()), id, queryLimit(r))
	h.respond(w, items, err)
}

func (h *Handler) handleValvesByZone(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "zoneID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	items, err := h.service.ValvesByZone(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, items, err)
}

func (h *Handler) handleListSensors(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListSensors(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleFaultySensors(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.FaultySensors(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleTodayLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.TodayLogs(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleWeeklyLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.WeeklyLogs(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleMonthlyLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.MonthlyLogs(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleRecentLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.RecentLogs(r.Context(), currentEmail(r.Context()), queryLimit(r))
	h.respond(w, items, err)
}

func (h *Handler) handleWaterUsedToday(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.WaterUsedToday(r.Context(), currentEmail(r.Context()))
	h.respond(w, map[string]any{"total_water_used": total}, err)
}

func (h *Handler) handleWaterUsedThisWeek(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.WaterUsedThisWeek(r.Context(), currentEmail(r.Context()))
	h.respond(w, map[string]any{"total_water_used": total}, err)
}

func (h *Handler) handleWaterUsedThisMonth(w http.ResponseWriter, r *http.Request) {
	total, err := h.service.WaterUsedThisMonth(r.Context(), currentEmail(r.Context()))
	h.respond(w, map[string]any{"total_water_used": total}, err)
}

func (h *Handler) handleActiveAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ActiveAlerts(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleResolvedAlertsToday(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ResolvedAlertsToday(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.RecentAlerts(r.Context(), currentEmail(r.Context()), queryLimit(r))
	h.respond(w, items, err)
}

func (h *Handler) handleAlertCountByType(w http.ResponseWriter, r *http.Request) {
	counts, err := h.service.AlertCountByType(r.Context(), currentEmail(r.Context()))
	h.respond(w, counts, err)
}

func (h *Handler) handleResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "alertID")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
		return
	}
	view, err := h.service.ResolveAlert(r.Context(), currentEmail(r.Context()), id)
	h.respond(w, view, err)
}

func (h *Handler) handleListTanks(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListTanks(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleLowTanks(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowTanks(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleListValves(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListValves(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleOpenValves(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.OpenValves(r.Context(), currentEmail(r.Context()))
	h.respond(w, items, err)
}

func (h *Handler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAuditLogs(r.Context(), currentEmail(r.Context()), 500)
	h.respond(w, items, err)
}

func (h *Handler) respond(w http.ResponseWriter, payload any, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]any{"error": err.Error()})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]any{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": err.Error()})
	}
}

func (h *Handler) requireAuthAPI(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, ok := h.authenticateRequest(r)
		if !ok {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityKey, identity)))
	})
}

func (h *Handler) authenticateRequest(r *http.Request) (domain.Identity, bool) {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[7:])
		identity, err := h.service.AuthenticateBearerToken(r.Context(), token)
		if err == nil {
			return identity, true
		}
	}

	c, err := r.Cookie(sessionCookieName)
	if err == nil && strings.TrimSpace(c.Value) != "" {
		identity, authErr := h.service.AuthenticateSession(r.Context(), c.Value)
		if authErr == nil {
			return identity, true
		}
	}

	return domain.Identity{}, false
}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	value := ctx.Value(identityKey)
	if value == nil {
		return domain.Identity{}, false
	}
	identity, ok := value.(domain.Identity)
	return identity, ok
}

func currentEmail(ctx context.Context) string {
	identity, ok := identityFromContext(ctx)
	if !ok {
		return ""
	}
	return identity.User.Email
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   false,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
	})
}

func pathID(r *http.Request, param string) (uint, error) {
	raw := chi.URLParam(r, param)
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, errors.New(param + " must be an integer")
	}
	return uint(parsed), nil
}

// queryLimit returns 0 when absent or invalid; the service clamps it.
func queryLimit(r *http.Request) int {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(status int) {
	rec.status = status
	rec.ResponseWriter.WriteHeader(status)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = "unmatched"
		}
		requestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(rec.status)).Inc()
	})
}
