// Package catalog holds the marketplace state that feeds settlement:
// members, service offers, and open requests. Settlement reads offers and
// requests at booking creation; everything else here is plain bookkeeping.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/validation"
)

// Request statuses. OPEN moves to MATCHED exactly once, at booking
// creation, and never reverts.
const (
	RequestOpen      = "OPEN"
	RequestMatched   = "MATCHED"
	RequestCancelled = "CANCELLED"
)

// Member is an account in the marketplace. Credentials live upstream; the
// settlement core only needs the id and the provider flag.
type Member struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	IsProvider bool      `json:"isProvider"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Offer is a provider's service listing. The rate is immutable input to
// escrow at booking time.
type Offer struct {
	ID          string          `json:"id"`
	ProviderID  string          `json:"providerId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	RatePerHour decimal.Decimal `json:"ratePerHour"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// Request is a member asking to book an offer.
type Request struct {
	ID        string    `json:"id"`
	OfferID   string    `json:"offerId"`
	MemberID  string    `json:"memberId"`
	Note      string    `json:"note,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store persists catalog state.
type Store interface {
	CreateMember(ctx context.Context, m *Member) error
	GetMember(ctx context.Context, id string) (*Member, error)
	CreateOffer(ctx context.Context, o *Offer) error
	GetOffer(ctx context.Context, id string) (*Offer, error)
	ListOffers(ctx context.Context, activeOnly bool) ([]*Offer, error)
	CreateRequest(ctx context.Context, r *Request) error
	GetRequest(ctx context.Context, id string) (*Request, error)
	// HasOpenRequest reports whether the member already has an OPEN
	// request against the offer.
	HasOpenRequest(ctx context.Context, memberID, offerID string) (bool, error)
	// CancelRequest flips OPEN to CANCELLED as a conditional write and
	// reports whether a row changed.
	CancelRequest(ctx context.Context, id string) (bool, error)
}

// Service implements catalog operations over a Store.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// RegisterMember creates a member account.
func (s *Service) RegisterMember(ctx context.Context, name, email string, isProvider bool) (*Member, error) {
	if err := validation.Required("name", name); err != nil {
		return nil, apperr.Validation("%s", err)
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if err := validation.Required("email", email); err != nil {
		return nil, apperr.Validation("%s", err)
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.Validation("email is not valid")
	}

	m := &Member{
		Name:       strings.TrimSpace(name),
		Email:      email,
		IsProvider: isProvider,
	}
	if err := s.store.CreateMember(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// CreateOffer lists a new service offer for a provider.
func (s *Service) CreateOffer(ctx context.Context, providerID, title, description string, ratePerHour decimal.Decimal) (*Offer, error) {
	if err := validation.Required("title", title); err != nil {
		return nil, apperr.Validation("%s", err)
	}
	if err := validation.PositiveAmount("ratePerHour", ratePerHour); err != nil {
		return nil, apperr.Validation("%s", err)
	}

	provider, err := s.store.GetMember(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if !provider.IsProvider {
		return nil, apperr.Unauthorized("member %s is not a provider", providerID)
	}

	o := &Offer{
		ProviderID:  providerID,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		RatePerHour: ratePerHour,
		Active:      true,
	}
	if err := s.store.CreateOffer(ctx, o); err != nil {
		return nil, err
	}
	return o, nil
}

// CreateRequest opens a booking request against an active offer. A member
// may hold at most one OPEN request per offer and cannot request their own.
func (s *Service) CreateRequest(ctx context.Context, memberID, offerID, note string) (*Request, error) {
	offer, err := s.store.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if !offer.Active {
		return nil, apperr.Conflict("offer %s is not active", offerID)
	}
	if offer.ProviderID == memberID {
		return nil, apperr.Validation("cannot request your own offer")
	}

	open, err := s.store.HasOpenRequest(ctx, memberID, offerID)
	if err != nil {
		return nil, err
	}
	if open {
		return nil, apperr.Conflict("an open request for this offer already exists")
	}

	r := &Request{
		OfferID:  offerID,
		MemberID: memberID,
		Note:     strings.TrimSpace(note),
		Status:   RequestOpen,
	}
	if err := s.store.CreateRequest(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// CancelRequest withdraws the member's own OPEN request.
func (s *Service) CancelRequest(ctx context.Context, memberID, requestID string) error {
	r, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if r.MemberID != memberID {
		return apperr.Unauthorized("request %s does not belong to member %s", requestID, memberID)
	}

	changed, err := s.store.CancelRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if !changed {
		return apperr.Conflict("request %s is not open", requestID)
	}
	return nil
}

// GetMember returns one member.
func (s *Service) GetMember(ctx context.Context, id string) (*Member, error) {
	return s.store.GetMember(ctx, id)
}

// GetOffer returns one offer.
func (s *Service) GetOffer(ctx context.Context, id string) (*Offer, error) {
	return s.store.GetOffer(ctx, id)
}

// ListOffers returns offers, optionally only active ones.
func (s *Service) ListOffers(ctx context.Context, activeOnly bool) ([]*Offer, error) {
	return s.store.ListOffers(ctx, activeOnly)
}

// GetRequest returns one request.
func (s *Service) GetRequest(ctx context.Context, id string) (*Request, error) {
	return s.store.GetRequest(ctx, id)
}
