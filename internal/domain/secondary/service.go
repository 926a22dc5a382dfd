package secondary

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/fees"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/holding"
	"github.com/Jothum123/Zimcrowd-Web-sub000/internal/domain/ledger"
)

// Service handles secondary-market business logic.
type Service struct {
	repo        *Repository
	holdingRepo *holding.Repository
	ledger      *ledger.Service
	calc        *fees.Calculator
}

func NewService(repo *Repository, holdingRepo *holding.Repository, ledgerSvc *ledger.Service, calc *fees.Calculator) *Service {
	return &Service{
		repo:        repo,
		holdingRepo: holdingRepo,
		ledger:      ledgerSvc,
		calc:        calc,
	}
}

// ListForSale puts an active holding up for resale.
func (s *Service) ListForSale(ctx context.Context, sellerID, holdingID uuid.UUID, askingPrice decimal.Decimal) (*Listing, error) {
	if !askingPrice.IsPositive() {
		return nil, ErrInvalidPrice
	}

	h, err := s.holdingRepo.GetByID(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	if h.LenderID != sellerID {
		return nil, ErrNotSeller
	}
	if h.Status != holding.StatusActive {
		return nil, ErrHoldingNotSellable
	}
	if h.IsForSale {
		return nil, ErrAlreadyForSale
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Re-check under the row lock so two concurrent ListForSale calls
	// cannot both create a listing.
	locked, err := s.holdingRepo.GetByIDForUpdate(ctx, tx, holdingID)
	if err != nil {
		return nil, err
	}
	if locked.IsForSale {
		return nil, ErrAlreadyForSale
	}
	if err := s.holdingRepo.SetForSaleTx(ctx, tx, holdingID, true); err != nil {
		return nil, err
	}

	now := time.Now()
	listing := &Listing{
		ID:            uuid.New(),
		HoldingID:     holdingID,
		SellerID:      sellerID,
		AskingPrice:   askingPrice,
		Status:        ListingActive,
		ListingExpiry: now.Add(s.calc.Schedule().SecondaryListingTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateListingTx(ctx, tx, listing); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	log.Info().
		Str("listing_id", listing.ID.String()).
		Str("holding_id", holdingID.String()).
		Str("asking_price", askingPrice.String()).
		Msg("holding listed for resale")
	return listing, nil
}

// GetListing returns one resale listing.
func (s *Service) GetListing(ctx context.Context, id uuid.UUID) (*Listing, error) {
	return s.repo.GetListing(ctx, id)
}

// Browse returns active resale listings, newest first.
func (s *Service) Browse(ctx context.Context, limit, offset int) ([]Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.Browse(ctx, limit, offset)
}

// SubmitOffer places a buyer's pending purchase bid on a resale listing.
func (s *Service) SubmitOffer(ctx context.Context, buyerID, listingID uuid.UUID, offerPrice decimal.Decimal) (*Offer, error) {
	if !offerPrice.IsPositive() {
		return nil, ErrInvalidPrice
	}

	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsActive() {
		return nil, ErrListingNotActive
	}
	if listing.SellerID == buyerID {
		return nil, ErrSelfPurchase
	}

	now := time.Now()
	offer := &Offer{
		ID:         uuid.New(),
		ListingID:  listingID,
		BuyerID:    buyerID,
		OfferPrice: offerPrice,
		Status:     OfferPending,
		ExpiresAt:  now.Add(s.calc.Schedule().PurchaseOfferTTL),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.CreateOffer(ctx, offer); err != nil {
		return nil, err
	}

	log.Info().
		Str("offer_id", offer.ID.String()).
		Str("listing_id", listingID.String()).
		Str("offer_price", offerPrice.String()).
		Msg("purchase offer submitted")
	return offer, nil
}

// AcceptOffer settles a resale in one transaction: the buyer's cash
// wallet is debited the offer price, the seller's cash wallet is
// credited the price net of the deal fee, ownership transfers to the
// buyer, the listing goes sold and competing pending offers are
// rejected. The buyer's balance check and both wallet mutations share
// the transaction, so either the whole sale lands or none of it does.
func (s *Service) AcceptOffer(ctx context.Context, sellerID, offerID uuid.UUID) (*Listing, error) {
	preview, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	// Lock order: listing before offer before holding before wallets.
	listing, err := s.repo.GetListingForUpdate(ctx, tx, preview.ListingID)
	if err != nil {
		return nil, err
	}
	offer, err := s.repo.GetOfferForUpdate(ctx, tx, offerID)
	if err != nil {
		return nil, err
	}

	if listing.SellerID != sellerID {
		return nil, ErrNotSeller
	}
	if offer.Status != OfferPending {
		return nil, ErrOfferNotPending
	}
	now := time.Now()
	if offer.IsExpired(now) {
		if err := s.repo.UpdateOfferStatusTx(ctx, tx, offer.ID, OfferExpired); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, err
		}
		return nil, ErrOfferExpired
	}
	if !listing.IsActive() {
		return nil, ErrListingNotActive
	}

	h, err := s.holdingRepo.GetByIDForUpdate(ctx, tx, listing.HoldingID)
	if err != nil {
		return nil, err
	}
	if h.Status != holding.StatusActive {
		return nil, ErrHoldingNotSellable
	}

	dealFee := s.calc.DealFee(offer.OfferPrice)
	sellerProceeds := offer.OfferPrice.Sub(dealFee)

	if _, err := s.ledger.DebitTx(ctx, tx, offer.BuyerID, ledger.WalletCash, offer.OfferPrice,
		ledger.EntryTypeSecondaryPurchase, offer.ID.String(), "secondary market purchase"); err != nil {
		return nil, err
	}
	if _, err := s.ledger.CreditTx(ctx, tx, listing.SellerID, ledger.WalletCash, sellerProceeds,
		ledger.EntryTypeSecondarySale, offer.ID.String(), "secondary market sale, net of deal fee"); err != nil {
		return nil, err
	}

	if err := s.holdingRepo.TransferOwnershipTx(ctx, tx, h, offer.BuyerID, offer.OfferPrice); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateOfferStatusTx(ctx, tx, offer.ID, OfferAccepted); err != nil {
		return nil, err
	}
	if _, err := s.repo.RejectPendingOffersTx(ctx, tx, listing.ID, offer.ID); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateListingStatusTx(ctx, tx, listing.ID, ListingSold); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	listing.Status = ListingSold

	log.Info().
		Str("listing_id", listing.ID.String()).
		Str("offer_id", offer.ID.String()).
		Str("price", offer.OfferPrice.String()).
		Str("deal_fee", dealFee.String()).
		Msg("secondary sale settled")
	return listing, nil
}

// WithdrawOffer lets a buyer pull a still-pending purchase offer.
func (s *Service) WithdrawOffer(ctx context.Context, buyerID, offerID uuid.UUID) error {
	offer, err := s.repo.GetOffer(ctx, offerID)
	if err != nil {
		return err
	}
	if offer.BuyerID != buyerID {
		return ErrNotBuyer
	}
	if offer.Status != OfferPending {
		return ErrOfferNotPending
	}
	return s.repo.UpdateOfferStatus(ctx, offerID, OfferWithdrawn)
}

// CancelListing takes a still-active resale listing off the market.
func (s *Service) CancelListing(ctx context.Context, sellerID, listingID uuid.UUID) error {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return err
	}
	if listing.SellerID != sellerID {
		return ErrNotSeller
	}
	if !listing.IsActive() {
		return ErrListingNotActive
	}
	return s.closeListing(ctx, listing, ListingCancelled)
}

// ListingOffers returns the offers on a resale listing, visible to its
// seller.
func (s *Service) ListingOffers(ctx context.Context, sellerID, listingID uuid.UUID) ([]Offer, error) {
	listing, err := s.repo.GetListing(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, ErrNotSeller
	}
	return s.repo.ListOffersByListing(ctx, listingID)
}

// MyListings returns a seller's own resale listings.
func (s *Service) MyListings(ctx context.Context, sellerID uuid.UUID, limit, offset int) ([]Listing, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListBySeller(ctx, sellerID, limit, offset)
}

// MyOffers returns a buyer's own purchase offers.
func (s *Service) MyOffers(ctx context.Context, buyerID uuid.UUID, limit, offset int) ([]Offer, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListOffersByBuyer(ctx, buyerID, limit, offset)
}

// ExpireOffers batch-expires pending purchase offers past their deadline.
func (s *Service) ExpireOffers(ctx context.Context) (int64, error) {
	return s.repo.ExpireOffers(ctx, time.Now())
}

// ExpireListings expires active resale listings past their expiry and
// returns the underlying holdings to the seller's portfolio.
func (s *Service) ExpireListings(ctx context.Context) (int, error) {
	listings, err := s.repo.ListExpirableListings(ctx, time.Now(), 100)
	if err != nil {
		return 0, err
	}

	expired := 0
	for i := range listings {
		if err := s.closeListing(ctx, &listings[i], ListingExpired); err != nil {
			log.Error().Err(err).Str("listing_id", listings[i].ID.String()).Msg("failed to expire secondary listing")
			continue
		}
		expired++
	}
	return expired, nil
}

func (s *Service) closeListing(ctx context.Context, listing *Listing, status ListingStatus) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	locked, err := s.repo.GetListingForUpdate(ctx, tx, listing.ID)
	if err != nil {
		return err
	}
	if !locked.IsActive() {
		// Raced with an accept that sold the listing.
		return tx.Commit()
	}

	if err := s.holdingRepo.SetForSaleTx(ctx, tx, locked.HoldingID, false); err != nil {
		return err
	}
	if _, err := s.repo.RejectPendingOffersTx(ctx, tx, locked.ID, uuid.Nil); err != nil {
		return err
	}
	if err := s.repo.UpdateListingStatusTx(ctx, tx, locked.ID, status); err != nil {
		return err
	}
	return tx.Commit()
}
