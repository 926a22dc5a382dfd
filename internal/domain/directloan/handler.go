package directloan

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/user"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/validator"
)

// Handler handles direct-loan HTTP endpoints
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateOfferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if verr := validator.Validate(&req); verr != nil {
		response.ValidationError(w, verr)
		return
	}

	loan, err := h.svc.CreateOffer(r.Context(), userID, req.Amount, req.DurationDays)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.Created(w, loan)
}

// AcceptOffer signs the offer and disburses in the same request; direct
// loans are platform-funded, so nothing gates the payout after signing.
func (h *Handler) AcceptOffer(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid loan id")
		return
	}

	var req AcceptOfferRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if verr := validator.Validate(&req); verr != nil {
		response.ValidationError(w, verr)
		return
	}

	if _, err := h.svc.AcceptOffer(r.Context(), userID, loanID, req.SignatureName, r.RemoteAddr); err != nil {
		h.writeError(w, err)
		return
	}
	loan, err := h.svc.Disburse(r.Context(), loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, loan)
}

func (h *Handler) RecordRepayment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid loan id")
		return
	}

	var req RecordRepaymentRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if verr := validator.Validate(&req); verr != nil {
		response.ValidationError(w, verr)
		return
	}

	loan, err := h.svc.RecordRepayment(r.Context(), userID, loanID, req.Amount, req.ReferenceID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, loan)
}

func (h *Handler) GetLoan(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid loan id")
		return
	}

	loan, err := h.svc.GetLoan(r.Context(), userID, loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, loan)
}

func (h *Handler) MyLoans(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	loans, err := h.svc.MyLoans(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, loans)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var limit *LimitError

	switch {
	case errors.As(err, &limit):
		response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "AMOUNT_EXCEEDS_LIMIT",
			limit.Error(), map[string]string{"max_amount": limit.MaxAmount.String()})
	case errors.Is(err, user.ErrNoZimScore):
		response.ErrorWithDetails(w, http.StatusUnprocessableEntity, "NO_ZIMSCORE",
			err.Error(), nil)
	case errors.Is(err, ErrLoanNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotLoanOwner):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidDuration), errors.Is(err, ErrInvalidSignature):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrOfferNotPending), errors.Is(err, ErrOfferExpired),
		errors.Is(err, ErrNotSigned), errors.Is(err, ErrNotRepayable),
		errors.Is(err, ledger.ErrInsufficientFunds):
		response.Conflict(w, err.Error())
	default:
		response.InternalError(w)
	}
}

// Routes mounts the direct-loan endpoints; all require authentication.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/offers", h.CreateOffer)
	r.Post("/offers/{id}/accept", h.AcceptOffer)
	r.Get("/my", h.MyLoans)
	r.Get("/{id}", h.GetLoan)
	r.Post("/{id}/repayments", h.RecordRepayment)
	return r
}
