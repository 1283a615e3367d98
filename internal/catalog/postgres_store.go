package catalog

import (
	"context"
	"database/sql"

	"github.com/openhours/timebank/internal/apperr"
	"github.com/openhours/timebank/internal/idgen"
	"github.com/openhours/timebank/internal/store"
)

// PostgresStore implements Store with PostgreSQL.
type PostgresStore struct {
	db *store.DB
}

func NewPostgresStore(db *store.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) CreateMember(ctx context.Context, m *Member) error {
	m.ID = idgen.WithPrefix("mem_")
	err := p.db.SQL().QueryRowContext(ctx, `
		INSERT INTO members (id, name, email, is_provider)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, m.ID, m.Name, m.Email, m.IsProvider).Scan(&m.CreatedAt)
	return store.Classify(err)
}

func (p *PostgresStore) GetMember(ctx context.Context, id string) (*Member, error) {
	m := &Member{}
	err := p.db.SQL().QueryRowContext(ctx, `
		SELECT id, name, email, is_provider, created_at FROM members WHERE id = $1
	`, id).Scan(&m.ID, &m.Name, &m.Email, &m.IsProvider, &m.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("member %s not found", id)
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return m, nil
}

func (p *PostgresStore) CreateOffer(ctx context.Context, o *Offer) error {
	o.ID = idgen.WithPrefix("off_")
	err := p.db.SQL().QueryRowContext(ctx, `
		INSERT INTO offers (id, provider_id, title, description, rate_per_hour, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, o.ID, o.ProviderID, o.Title, o.Description, o.RatePerHour, o.Active).Scan(&o.CreatedAt)
	return store.Classify(err)
}

func (p *PostgresStore) GetOffer(ctx context.Context, id string) (*Offer, error) {
	o := &Offer{}
	err := p.db.SQL().QueryRowContext(ctx, `
		SELECT id, provider_id, title, description, rate_per_hour, active, created_at
		FROM offers WHERE id = $1
	`, id).Scan(&o.ID, &o.ProviderID, &o.Title, &o.Description, &o.RatePerHour, &o.Active, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("offer %s not found", id)
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return o, nil
}

func (p *PostgresStore) ListOffers(ctx context.Context, activeOnly bool) ([]*Offer, error) {
	rows, err := p.db.SQL().QueryContext(ctx, `
		SELECT id, provider_id, title, description, rate_per_hour, active, created_at
		FROM offers
		WHERE NOT $1 OR active
		ORDER BY created_at DESC
	`, activeOnly)
	if err != nil {
		return nil, store.Classify(err)
	}
	defer rows.Close()

	var offers []*Offer
	for rows.Next() {
		o := &Offer{}
		if err := rows.Scan(&o.ID, &o.ProviderID, &o.Title, &o.Description, &o.RatePerHour, &o.Active, &o.CreatedAt); err != nil {
			return nil, store.Classify(err)
		}
		offers = append(offers, o)
	}
	return offers, rows.Err()
}

func (p *PostgresStore) CreateRequest(ctx context.Context, r *Request) error {
	r.ID = idgen.WithPrefix("req_")
	err := p.db.SQL().QueryRowContext(ctx, `
		INSERT INTO requests (id, offer_id, member_id, note, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, r.ID, r.OfferID, r.MemberID, r.Note, r.Status).Scan(&r.CreatedAt)
	return store.Classify(err)
}

func (p *PostgresStore) GetRequest(ctx context.Context, id string) (*Request, error) {
	r := &Request{}
	err := p.db.SQL().QueryRowContext(ctx, `
		SELECT id, offer_id, member_id, note, status, created_at FROM requests WHERE id = $1
	`, id).Scan(&r.ID, &r.OfferID, &r.MemberID, &r.Note, &r.Status, &r.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("request %s not found", id)
	}
	if err != nil {
		return nil, store.Classify(err)
	}
	return r, nil
}

func (p *PostgresStore) HasOpenRequest(ctx context.Context, memberID, offerID string) (bool, error) {
	var exists bool
	err := p.db.SQL().QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM requests
			WHERE member_id = $1 AND offer_id = $2 AND status = 'OPEN'
		)
	`, memberID, offerID).Scan(&exists)
	if err != nil {
		return false, store.Classify(err)
	}
	return exists, nil
}

func (p *PostgresStore) CancelRequest(ctx context.Context, id string) (bool, error) {
	res, err := p.db.SQL().ExecContext(ctx, `
		UPDATE requests SET status = 'CANCELLED' WHERE id = $1 AND status = 'OPEN'
	`, id)
	if err != nil {
		return false, store.Classify(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, store.Classify(err)
	}
	return n > 0, nil
}
