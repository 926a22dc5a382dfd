package repayment

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/marketplace"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/validator"
)

// Handler handles repayment HTTP endpoints
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Schedule(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid loan id")
		return
	}

	installments, err := h.svc.Schedule(r.Context(), userID, loanID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, installments)
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	loanID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid loan id")
		return
	}

	var req RecordPaymentRequest
	if err := response.DecodeJSON(r.Body, &req); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return
	}
	if verr := validator.Validate(&req); verr != nil {
		response.ValidationError(w, verr)
		return
	}
	installmentID, err := uuid.Parse(req.InstallmentID)
	if err != nil {
		response.BadRequest(w, "invalid installment id")
		return
	}

	inst, err := h.svc.RecordPayment(r.Context(), userID, loanID, installmentID, req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}
	response.OK(w, inst)
}

func (h *Handler) MyInstallments(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	installments, err := h.svc.MyInstallments(r.Context(), userID, limit, offset)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, installments)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInstallmentNotFound), errors.Is(err, marketplace.ErrListingNotFound):
		response.NotFound(w, err.Error())
	case errors.Is(err, ErrNotBorrower), errors.Is(err, ErrNotScheduleViewer):
		response.Forbidden(w, err.Error())
	case errors.Is(err, ErrPaymentMismatch):
		response.BadRequest(w, err.Error())
	case errors.Is(err, ErrInstallmentNotPayable):
		response.Conflict(w, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		response.Conflict(w, "insufficient wallet balance")
	default:
		response.InternalError(w)
	}
}

// Routes mounts the repayment endpoints under the loans path.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/{id}/schedule", h.Schedule)
	r.Post("/{id}/payments", h.RecordPayment)
	return r
}
