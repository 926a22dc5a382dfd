package holding

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
)

// Handler exposes the holding read model; mutations happen through the
// marketplace and secondary-market engines.
type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) MyHoldings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	holdings, err := h.repo.ListByLender(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, holdings)
}

func (h *Handler) GetHolding(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid holding id")
		return
	}

	holding, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrHoldingNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w)
		return
	}
	if !holding.IsOwnedBy(userID) {
		response.Forbidden(w, ErrNotHoldingOwner.Error())
		return
	}
	response.OK(w, holding)
}

func (h *Handler) Transfers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid holding id")
		return
	}

	holding, err := h.repo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrHoldingNotFound) {
			response.NotFound(w, err.Error())
			return
		}
		response.InternalError(w)
		return
	}
	if !holding.IsOwnedBy(userID) {
		response.Forbidden(w, ErrNotHoldingOwner.Error())
		return
	}

	transfers, err := h.repo.ListTransfers(r.Context(), id)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, transfers)
}

// Routes mounts the holding endpoints; all require authentication.
// The resale endpoint is mounted alongside these by the server, it
// belongs to the secondary-market engine.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/my", h.MyHoldings)
	r.Get("/{id}", h.GetHolding)
	r.Get("/{id}/transfers", h.Transfers)
	return r
}
