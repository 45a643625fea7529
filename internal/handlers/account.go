package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tailored-api/apiserver/internal/services"
	"github.com/tailored-api/apiserver/internal/tier"
	"github.com/tailored-api/apiserver/types"
)

// AccountHandler serves the authenticated account endpoints.
type AccountHandler struct {
	userService   *services.UserService
	exportService *services.ExportService
	events        AccountEvents
	logger        *slog.Logger
}

func NewAccountHandler(
	userService *services.UserService,
	exportService *services.ExportService,
	events AccountEvents,
	logger *slog.Logger,
) *AccountHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountHandler{
		userService:   userService,
		exportService: exportService,
		events:        events,
		logger:        logger,
	}
}

// AccountRouter registers the session-protected routes. requireSession must
// store the resolved user in the request context.
func AccountRouter(r chi.Router, handler *AccountHandler, requireSession func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/dashboard/me", handler.Dashboard)
		r.Get("/api/content", handler.Content)
		r.Post("/api/export", handler.Export)
		r.Get("/account/plan", handler.GetPlan)
		r.Put("/account/plan", handler.UpdatePlan)
	})
}

// Dashboard returns the profile and the tier's feature list.
func (h *AccountHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{
		User:     user.Public(),
		Features: tier.FeaturesFor(user.Tier),
	})
}

// Content returns tier-shaped content.
func (h *AccountHandler) Content(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, tier.ContentFor(user.Tier))
}

func (h *AccountHandler) GetPlan(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, PlanResponse{Tier: user.Tier})
}

// UpdatePlan moves the current user onto another tier.
func (h *AccountHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	var req PlanRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.userService.UpdateTier(r.Context(), user.ID, req.Tier)
	if err != nil {
		writeServiceError(w, err, "failed to update plan")
		return
	}

	if h.events != nil {
		if err := h.events.PlanChanged(r.Context(), updated); err != nil {
			h.logger.WarnContext(r.Context(), "publish account event failed",
				slog.String("user_id", updated.ID),
				slog.Any("error", err),
			)
		}
	}

	writeJSON(w, http.StatusOK, PlanResponse{Tier: updated.Tier})
}

// Export writes a data snapshot to object storage for tiers with the export
// feature.
func (h *AccountHandler) Export(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}

	result, err := h.exportService.Export(r.Context(), user)
	if err != nil {
		if !errorIsClient(err) {
			h.logger.ErrorContext(r.Context(), "export failed",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		writeServiceError(w, err, "failed to export data")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

type DashboardResponse struct {
	User     types.PublicUser `json:"user"`
	Features []types.Feature  `json:"features"`
}

type PlanRequest struct {
	Tier string `json:"package_tier"`
}

type PlanResponse struct {
	Tier types.Tier `json:"package_tier"`
}
