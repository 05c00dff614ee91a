// Package handler is the thin HTTP layer over the vault lifecycle service.
// It parses transport concerns (routing, headers, query params) and
// delegates every decision to the service.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"custodia/internal/platform/middleware"
	"custodia/internal/vault"
	"custodia/internal/vault/service"
	"custodia/internal/vault/store"
	"custodia/internal/vault/validation"
	id "custodia/pkg/domain"
	dErrors "custodia/pkg/domain-errors"
)

// Handler exposes vault endpoints.
type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts vault routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/vaults", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{vaultID}", h.handleGet)
		r.Post("/{vaultID}/milestones/{milestoneID}/validate", h.handleValidateMilestone)
		r.Post("/{vaultID}/cancellation", h.handleRequestCancellation)
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input vault.CreateVaultInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "request body must be valid JSON"))
		return
	}

	key := r.Header.Get("Idempotency-Key")
	result, err := h.svc.Create(r.Context(), input, key)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"vault":              result.Payload.Vault,
		"onChainInstruction": result.Payload.OnChainInstruction,
		"idempotency": map[string]any{
			"key":      result.IdempotencyKey,
			"replayed": result.Replayed,
		},
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.ListFilter{
		Status:  vault.Status(q.Get("status")),
		Creator: id.ActorID(q.Get("creator")),
		SortBy:  q.Get("sortBy"),
		Order:   q.Get("order"),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		filter.Limit = limit
	}

	result, err := h.svc.List(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"vaults":     result.Vaults,
		"pagination": result.Page,
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Get(r.Context(), id.VaultID(chi.URLParam(r, "vaultID")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) handleValidateMilestone(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Notes string `json:"notes"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "request body must be valid JSON"))
			return
		}
	}

	ctx := r.Context()
	result, err := h.svc.ValidateMilestone(ctx,
		id.VaultID(chi.URLParam(r, "vaultID")),
		id.MilestoneID(chi.URLParam(r, "milestoneID")),
		id.ActorID(middleware.GetActorID(ctx)),
		validation.ParseRole(middleware.GetRole(ctx)),
		body.Notes,
	)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vaultId":             result.VaultID,
		"vaultStatus":         result.VaultStatus,
		"milestone":           result.Milestone,
		"validationEvent":     result.ValidationEvent,
		"emittedDomainEvents": result.EmittedEvents,
	})
}

func (h *Handler) handleRequestCancellation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Actor  string `json:"actor"`
		Role   string `json:"role"`
		Reason string `json:"reason"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			h.writeError(w, r, dErrors.New(dErrors.CodeValidation, "request body must be valid JSON"))
			return
		}
	}

	ctx := r.Context()
	actor := body.Actor
	if actor == "" {
		actor = middleware.GetActorID(ctx)
	}
	role := body.Role
	if role == "" {
		role = middleware.GetRole(ctx)
	}

	result, err := h.svc.RequestCancellation(ctx,
		id.VaultID(chi.URLParam(r, "vaultID")),
		id.ActorID(actor),
		validation.ParseRole(role),
		body.Reason,
	)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeIneligible) {
			var de *dErrors.Error
			errors.As(err, &de)
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":            string(dErrors.CodeIneligible),
				"reason":           de.Message,
				"validationRecord": result.Cancellation.Record,
			})
			return
		}
		h.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"vault":        result.Vault,
		"cancellation": result.Cancellation,
	})
}
