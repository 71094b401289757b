package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// ContactRepository implements port.ContactStore. The engine only reads
// contacts and leads; they are owned by the surrounding CRM.
type ContactRepository struct {
	pool *pgxpool.Pool
}

// NewContactRepository returns a new repository instance.
func NewContactRepository(pool *pgxpool.Pool) *ContactRepository {
	return &ContactRepository{pool: pool}
}

const contactColumns = `c.id, c.tenant_id, c.name, c.email, c.phone,
	c.instagram_id, c.telegram_chat_id, c.lifecycle_stage, c.lead_source,
	c.opt_in_status, c.do_not_contact,
	COALESCE(array_agg(ct.tag_id) FILTER (WHERE ct.tag_id IS NOT NULL), '{}')`

const contactFrom = ` FROM contacts c LEFT JOIN contact_tags ct ON ct.contact_id = c.id`

func scanContact(row pgx.Row) (*domain.Contact, error) {
	var c domain.Contact
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Email, &c.Phone,
		&c.InstagramID, &c.TelegramChatID, &c.LifecycleStage, &c.LeadSource,
		&c.OptInStatus, &c.DoNotContact, &c.TagIDs,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *ContactRepository) GetContact(ctx context.Context, id int64) (*domain.Contact, error) {
	c, err := scanContact(r.pool.QueryRow(ctx,
		`SELECT `+contactColumns+contactFrom+` WHERE c.id = $1 GROUP BY c.id`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *ContactRepository) ListContacts(ctx context.Context, tenantID int64) ([]domain.Contact, error) {
	query := `SELECT ` + contactColumns + contactFrom
	var args []interface{}
	if tenantID != 0 {
		query += ` WHERE c.tenant_id = $1`
		args = append(args, tenantID)
	}
	query += ` GROUP BY c.id ORDER BY c.id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Contact, error) {
		c, err := scanContact(row)
		if err != nil {
			return domain.Contact{}, err
		}
		return *c, nil
	})
}

const leadColumns = `id, contact_id, stage, score, deal_value, created_at`

func scanLead(row pgx.Row) (*domain.Lead, error) {
	var l domain.Lead
	err := row.Scan(&l.ID, &l.ContactID, &l.Stage, &l.Score, &l.DealValue, &l.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *ContactRepository) GetLead(ctx context.Context, id int64) (*domain.Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (r *ContactRepository) LeadForContact(ctx context.Context, contactID int64) (*domain.Lead, error) {
	l, err := scanLead(r.pool.QueryRow(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE contact_id = $1 ORDER BY id DESC LIMIT 1`, contactID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return l, err
}

func (r *ContactRepository) LeadStageSummary(ctx context.Context, tenantID int64, since *time.Time) ([]port.LeadStageStat, error) {
	query := `
		SELECT l.stage, count(*), COALESCE(sum(l.deal_value), 0), COALESCE(avg(l.score), 0)
		FROM leads l JOIN contacts c ON c.id = l.contact_id
		WHERE 1=1`
	var args []interface{}
	if tenantID != 0 {
		args = append(args, tenantID)
		query += ` AND c.tenant_id = $1`
	}
	if since != nil {
		args = append(args, *since)
		if tenantID != 0 {
			query += ` AND l.created_at >= $2`
		} else {
			query += ` AND l.created_at >= $1`
		}
	}
	query += ` GROUP BY l.stage ORDER BY l.stage`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (port.LeadStageStat, error) {
		var s port.LeadStageStat
		err := row.Scan(&s.Stage, &s.Count, &s.TotalValue, &s.AvgScore)
		return s, err
	})
}
