package ledger

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/middleware"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/response"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/pkg/validator"
)

// Handler exposes the read side of the ledger. Deposits and withdrawals
// arrive through the payment-gateway boundary, not here.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func walletTypeParam(r *http.Request) WalletType {
	wt := r.URL.Query().Get("wallet")
	if wt == "" {
		return WalletCash
	}
	return WalletType(wt)
}

func (h *Handler) Balance(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	cash, err := h.svc.GetBalance(r.Context(), userID, WalletCash)
	if err != nil {
		response.InternalError(w)
		return
	}
	credit, err := h.svc.GetBalance(r.Context(), userID, WalletCredit)
	if err != nil {
		response.InternalError(w)
		return
	}

	response.OK(w, map[string]interface{}{
		"cash_balance":   cash,
		"credit_balance": credit,
	})
}

func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == uuid.Nil {
		response.Unauthorized(w, "unauthorized")
		return
	}

	walletType := walletTypeParam(r)
	if err := validator.ValidateVar(string(walletType), "wallet_type"); err != nil {
		response.BadRequest(w, "wallet must be cash or credit")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	entries, err := h.svc.ListEntries(r.Context(), userID, walletType, limit, offset)
	if err != nil {
		if err == ErrInvalidWalletType {
			response.BadRequest(w, "wallet must be cash or credit")
			return
		}
		response.InternalError(w)
		return
	}

	response.OK(w, entries)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Get("/balance", h.Balance)
	r.Get("/transactions", h.Transactions)
	return r
}
