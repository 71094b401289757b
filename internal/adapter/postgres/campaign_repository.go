// Package postgres implements the persistence ports using pgxpool for
// PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// CampaignRepository implements port.CampaignStore.
type CampaignRepository struct {
	pool *pgxpool.Pool
}

// NewCampaignRepository returns a new repository instance.
func NewCampaignRepository(pool *pgxpool.Pool) *CampaignRepository {
	return &CampaignRepository{pool: pool}
}

const campaignColumns = `id, tenant_id, name, description, type, status, criteria,
	start_date, end_date, budget, actual_cost,
	total_contacts, contacts_reached, contacts_engaged, contacts_converted, total_revenue,
	created_at, updated_at, last_run_at`

func scanCampaign(row pgx.Row) (*domain.Campaign, error) {
	var c domain.Campaign
	var criteriaRaw []byte
	err := row.Scan(
		&c.ID, &c.TenantID, &c.Name, &c.Description, &c.Type, &c.Status, &criteriaRaw,
		&c.StartDate, &c.EndDate, &c.Budget, &c.ActualCost,
		&c.TotalContacts, &c.ContactsReached, &c.ContactsEngaged, &c.ContactsConverted, &c.TotalRevenue,
		&c.CreatedAt, &c.UpdatedAt, &c.LastRunAt,
	)
	if err != nil {
		return nil, err
	}
	if len(criteriaRaw) > 0 {
		criteria, err := domain.ParseCriteria(criteriaRaw)
		if err != nil {
			return nil, fmt.Errorf("campaign %d criteria: %w", c.ID, err)
		}
		c.Criteria = criteria
	}
	return &c, nil
}

func encodeCriteria(c *domain.Campaign) ([]byte, error) {
	if c.Criteria == nil {
		return nil, nil
	}
	return c.Criteria.Encode()
}

func (r *CampaignRepository) CreateCampaign(ctx context.Context, c *domain.Campaign) error {
	criteriaRaw, err := encodeCriteria(c)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (tenant_id, name, description, type, status, criteria,
			start_date, end_date, budget, actual_cost,
			total_contacts, contacts_reached, contacts_engaged, contacts_converted, total_revenue,
			created_at, updated_at, last_run_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		RETURNING id`,
		c.TenantID, c.Name, c.Description, c.Type, c.Status, criteriaRaw,
		c.StartDate, c.EndDate, c.Budget, c.ActualCost,
		c.TotalContacts, c.ContactsReached, c.ContactsEngaged, c.ContactsConverted, c.TotalRevenue,
		c.CreatedAt, c.UpdatedAt, c.LastRunAt,
	).Scan(&c.ID)
}

func (r *CampaignRepository) UpdateCampaign(ctx context.Context, c *domain.Campaign) error {
	criteriaRaw, err := encodeCriteria(c)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE campaigns SET
			name = $1, description = $2, type = $3, status = $4, criteria = $5,
			start_date = $6, end_date = $7, budget = $8, actual_cost = $9,
			total_contacts = $10, contacts_reached = $11, contacts_engaged = $12,
			contacts_converted = $13, total_revenue = $14,
			updated_at = $15, last_run_at = $16
		WHERE id = $17`,
		c.Name, c.Description, c.Type, c.Status, criteriaRaw,
		c.StartDate, c.EndDate, c.Budget, c.ActualCost,
		c.TotalContacts, c.ContactsReached, c.ContactsEngaged,
		c.ContactsConverted, c.TotalRevenue,
		c.UpdatedAt, c.LastRunAt, c.ID,
	)
	return err
}

func (r *CampaignRepository) GetCampaign(ctx context.Context, id int64) (*domain.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return c, err
}

func (r *CampaignRepository) ListCampaigns(ctx context.Context, f port.CampaignFilter) ([]domain.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	var args []interface{}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.TenantID != 0 {
		query += ` AND tenant_id = ` + arg(f.TenantID)
	}
	if f.Status != nil {
		query += ` AND status = ` + arg(*f.Status)
	}
	if f.Type != nil {
		query += ` AND type = ` + arg(*f.Type)
	}
	query += ` ORDER BY id`
	if f.Limit > 0 {
		query += ` LIMIT ` + arg(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + arg(f.Offset)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		c, err := scanCampaign(row)
		if err != nil {
			return domain.Campaign{}, err
		}
		return *c, nil
	})
}

const messageColumns = `id, campaign_id, sequence_order, name, channel, content,
	delay_amount, delay_unit, send_window_start, send_window_end, weekdays_only,
	ab_variant, active, created_at, updated_at`

func scanMessage(row pgx.Row) (*domain.CampaignMessage, error) {
	var m domain.CampaignMessage
	var contentRaw []byte
	err := row.Scan(
		&m.ID, &m.CampaignID, &m.SequenceOrder, &m.Name, &m.Channel, &contentRaw,
		&m.DelayAmount, &m.DelayUnit, &m.SendWindowStart, &m.SendWindowEnd, &m.WeekdaysOnly,
		&m.ABVariant, &m.Active, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	content, err := domain.DecodeContent(m.Channel, contentRaw)
	if err != nil {
		return nil, fmt.Errorf("message %d content: %w", m.ID, err)
	}
	m.Content = content
	return &m, nil
}

func (r *CampaignRepository) CreateMessage(ctx context.Context, m *domain.CampaignMessage) error {
	contentRaw, err := domain.EncodeContent(m.Content)
	if err != nil {
		return err
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaign_messages (campaign_id, sequence_order, name, channel, content,
			delay_amount, delay_unit, send_window_start, send_window_end, weekdays_only,
			ab_variant, active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id`,
		m.CampaignID, m.SequenceOrder, m.Name, m.Channel, contentRaw,
		m.DelayAmount, m.DelayUnit, m.SendWindowStart, m.SendWindowEnd, m.WeekdaysOnly,
		m.ABVariant, m.Active, m.CreatedAt, m.UpdatedAt,
	).Scan(&m.ID)
}

func (r *CampaignRepository) UpdateMessage(ctx context.Context, m *domain.CampaignMessage) error {
	contentRaw, err := domain.EncodeContent(m.Content)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE campaign_messages SET
			sequence_order = $1, name = $2, channel = $3, content = $4,
			delay_amount = $5, delay_unit = $6, send_window_start = $7, send_window_end = $8,
			weekdays_only = $9, ab_variant = $10, active = $11, updated_at = $12
		WHERE id = $13`,
		m.SequenceOrder, m.Name, m.Channel, contentRaw,
		m.DelayAmount, m.DelayUnit, m.SendWindowStart, m.SendWindowEnd,
		m.WeekdaysOnly, m.ABVariant, m.Active, m.UpdatedAt, m.ID,
	)
	return err
}

func (r *CampaignRepository) GetMessage(ctx context.Context, id int64) (*domain.CampaignMessage, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM campaign_messages WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *CampaignRepository) ListMessages(ctx context.Context, campaignID int64) ([]domain.CampaignMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+messageColumns+` FROM campaign_messages WHERE campaign_id = $1 ORDER BY sequence_order`,
		campaignID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CampaignMessage, error) {
		m, err := scanMessage(row)
		if err != nil {
			return domain.CampaignMessage{}, err
		}
		return *m, nil
	})
}

func (r *CampaignRepository) MessageAt(ctx context.Context, campaignID int64, order int) (*domain.CampaignMessage, error) {
	m, err := scanMessage(r.pool.QueryRow(ctx,
		`SELECT `+messageColumns+` FROM campaign_messages
		 WHERE campaign_id = $1 AND sequence_order = $2 AND active`,
		campaignID, order))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}
