package secondary

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/holding"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/validator"
)

// Handler handles secondary-market HTTP endpoints
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// SellHolding lists a holding for resale. Mounted under the holdings
// path so the holding id rides in the URL.
func (h *Handler) SellHolding(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	holdingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid holding id")
		return
	}

	var req SellHoldingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if verr := validator.Validate(&req); verr != nil {
		response.ValidationError(w, verr)
		return
	}

	listing, err := h.svc.ListForSale(r.Context(), userID, holdingID, req.AskingPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, listing)
}

func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	listings, err := h.svc.Browse(r.Context(), parseIntQuery(r, "limit", 20), parseIntQuery(r, "offset", 0))
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, listings)
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	listing, err := h.svc.GetListing(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, listing)
}

func (h *Handler) MyListings(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	listings, err := h.svc.MyListings(r.Context(), userID, parseIntQuery(r, "limit", 20), parseIntQuery(r, "offset", 0))
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, listings)
}

func (h *Handler) CancelListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	if err := h.svc.CancelListing(r.Context(), userID, id); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"status": string(ListingCancelled)})
}

func (h *Handler) ListingOffers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	offers, err := h.svc.ListingOffers(r.Context(), userID, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, offers)
}

func (h *Handler) SubmitOffer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	listingID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid listing id")
		return
	}

	var req SubmitOfferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if verr := validator.Validate(&req); verr != nil {
		response.ValidationError(w, verr)
		return
	}

	offer, err := h.svc.SubmitOffer(r.Context(), userID, listingID, req.OfferPrice)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, offer)
}

func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	offerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid offer id")
		return
	}

	listing, err := h.svc.AcceptOffer(r.Context(), userID, offerID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, listing)
}

func (h *Handler) WithdrawOffer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	offerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid offer id")
		return
	}

	if err := h.svc.WithdrawOffer(r.Context(), userID, offerID); err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, map[string]string{"status": string(OfferWithdrawn)})
}

func (h *Handler) MyOffers(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	offers, err := h.svc.MyOffers(r.Context(), userID, parseIntQuery(r, "limit", 20), parseIntQuery(r, "offset", 0))
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, offers)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrListingNotFound), errors.Is(err, ErrOfferNotFound), errors.Is(err, holding.ErrHoldingNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotSeller), errors.Is(err, ErrNotBuyer):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrInvalidPrice), errors.Is(err, ErrSelfPurchase):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrHoldingNotSellable), errors.Is(err, ErrAlreadyForSale),
		errors.Is(err, ErrListingNotActive), errors.Is(err, ErrOfferNotPending), errors.Is(err, ErrOfferExpired):
		response.Conflict(w, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.Conflict(w, "insufficient wallet balance")
	default:
		response.InternalError(w)
	}
}

func parseIntQuery(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
