package secondary

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the secondary-market endpoints. Browsing is public;
// everything else requires an authenticated user.
func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/listings", h.Browse)
	r.Get("/listings/{id}", h.GetListing)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/listings/my", h.MyListings)
		r.Post("/listings/{id}/cancel", h.CancelListing)
		r.Get("/listings/{id}/offers", h.ListingOffers)
		r.Post("/listings/{id}/offers", h.SubmitOffer)
		r.Post("/offers/{id}/accept", h.AcceptOffer)
		r.Post("/offers/{id}/withdraw", h.WithdrawOffer)
		r.Get("/offers/my", h.MyOffers)
	})

	return r
}
