package marketplace

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListingRoutes mounts the listing endpoints. Browsing and reading a
// listing are public; everything else requires an authenticated user.
func (h *Handler) ListingRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Browse)
	r.Get("/{id}", h.GetListing)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/", h.CreateListing)
		r.Get("/my", h.MyListings)
		r.Post("/{id}/cancel", h.CancelListing)
		r.Get("/{id}/offers", h.ListingOffers)
		r.Post("/{id}/offers", h.SubmitOffer)
	})

	return r
}

// OfferRoutes mounts the funding-offer endpoints; all require
// authentication.
func (h *Handler) OfferRoutes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/{id}/accept", h.AcceptOffer)
	r.Post("/{id}/withdraw", h.WithdrawOffer)
	r.Get("/my", h.MyOffers)
	return r
}
