package coverage

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
)

// Handler handles payment-coverage HTTP endpoints
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) MyOffers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	offers, err := h.svc.MyOffers(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, offers)
}

func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	offerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid offer id")
		return
	}

	offer, err := h.svc.AcceptOffer(r.Context(), userID, offerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, offer)
}

func (h *Handler) DeclineOffer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	offerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid offer id")
		return
	}

	if err := h.svc.DeclineOffer(r.Context(), userID, offerID); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"status": string(OfferDeclined)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrOfferNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotOfferOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrOfferNotPending), errors.Is(err, ErrOfferExpired), errors.Is(err, ErrOfferAlreadyExists):
		response.Conflict(w, err.Error())
	default:
		response.InternalError(w)
	}
}

// Routes mounts the coverage endpoints; all require authentication.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/offers/my", h.MyOffers)
	r.Post("/offers/{id}/accept", h.AcceptOffer)
	r.Post("/offers/{id}/decline", h.DeclineOffer)
	return r
}
