package marketplace

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/validator"
)

// Handler handles primary-market HTTP endpoints
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	var req CreateListingRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if verr := validator.Validate(&req); verr != nil {
		response.ValidationError(w, verr)
		return
	}

	listing, err := h.svc.CreateListing(r.Context(), userID, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, NewListingResponse(listing))
}

func (h *Handler) Browse(w http.ResponseWriter, r *http.Request) {
	f := BrowseFilters{
		Page:  parseIntQuery(r, "page", 1),
		Limit: parseIntQuery(r, "limit", 20),
	}
	if v := r.URL.Query().Get("status"); v != "" {
		f.Status = ListingStatus(v)
	}
	if v := r.URL.Query().Get("min_amount"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinAmount = &d
		}
	}
	if v := r.URL.Query().Get("max_amount"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxAmount = &d
		}
	}
	if v := r.URL.Query().Get("max_term"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			f.MaxTerm = &n
		}
	}

	listings, total, err := h.svc.Browse(r.Context(), f)
	if err != nil {
		response.InternalError(w)
		return
	}

	out := make([]ListingResponse, 0, len(listings))
	for i := range listings {
		out = append(out, NewListingResponse(&listings[i]))
	}

	pages := (total + f.Limit - 1) / f.Limit
	response.WithMeta(w, out, response.Meta{
		Total:   total,
		Page:    f.Page,
		Limit:   f.Limit,
		Pages:   pages,
		HasNext: f.Page < pages,
		HasPrev: f.Page > 1,
	})
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
	response.OK(w, NewListingResponse(listing))
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

	offer, err := h.svc.SubmitOffer(r.Context(), userID, listingID, &req)
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
	response.OK(w, NewListingResponse(listing))
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
	var coldStart *ColdStartError
	var fundingGoal *FundingGoalError

	switch {
	case errors.As(err, &coldStart):
		response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "COLD_START_LIMIT_EXCEEDED",
			coldStart.Error(), map[string]string{"ceiling": coldStart.Ceiling.String()})
	case errors.As(err, &fundingGoal):
		response.ErrorWithDetails(w, http.StatusConflict, "FUNDING_GOAL_EXCEEDED",
			fundingGoal.Error(), map[string]string{"remaining": fundingGoal.Remaining.String()})
	case errors.Is(err, ErrListingNotFound), errors.Is(err, ErrOfferNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotListingOwner), errors.Is(err, ErrNotOfferOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrInvalidRate), errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidTerm), errors.Is(err, ErrSelfFunding):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrListingNotFundable), errors.Is(err, ErrOfferNotPending),
		errors.Is(err, ErrOfferExpired), errors.Is(err, ErrListingHasFunding):
		response.Conflict(w, err.Error())
	case errors.Is(err, ledgerInsufficientFunds):
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
