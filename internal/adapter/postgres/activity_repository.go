package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-engine/internal/core/domain"
	"outreach-engine/internal/core/port"
)

// ActivityRepository implements port.ActivityStore. The table is append-only;
// there is no update or delete path.
type ActivityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository returns a new repository instance.
func NewActivityRepository(pool *pgxpool.Pool) *ActivityRepository {
	return &ActivityRepository{pool: pool}
}

func (r *ActivityRepository) RecordActivity(ctx context.Context, a *domain.Activity) error {
	var dataRaw []byte
	if len(a.Data) > 0 {
		var err error
		dataRaw, err = json.Marshal(a.Data)
		if err != nil {
			return err
		}
	}
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaign_activities (campaign_id, contact_id, lead_id, message_id,
			type, timestamp, data, revenue_amount, external_id, error_message)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING id`,
		a.CampaignID, a.ContactID, a.LeadID, a.MessageID,
		a.Type, a.Timestamp, dataRaw, a.RevenueAmount, a.ExternalID, a.ErrorMessage,
	).Scan(&a.ID)
}

// filterClause renders an ActivityFilter as a WHERE clause. The campaign id
// is always the first condition.
func filterClause(f port.ActivityFilter) (string, []interface{}) {
	clause := ` WHERE campaign_id = $1`
	args := []interface{}{f.CampaignID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.ContactID != nil {
		clause += ` AND contact_id = ` + arg(*f.ContactID)
	}
	if f.MessageID != nil {
		clause += ` AND message_id = ` + arg(*f.MessageID)
	}
	if len(f.Types) > 0 {
		types := make([]string, len(f.Types))
		for i, t := range f.Types {
			types[i] = string(t)
		}
		clause += ` AND type = ANY(` + arg(types) + `)`
	}
	if f.From != nil {
		clause += ` AND timestamp >= ` + arg(*f.From)
	}
	if f.To != nil {
		clause += ` AND timestamp <= ` + arg(*f.To)
	}
	return clause, args
}

func (r *ActivityRepository) ListActivities(ctx context.Context, f port.ActivityFilter) ([]domain.Activity, error) {
	clause, args := filterClause(f)
	rows, err := r.pool.Query(ctx, `
		SELECT id, campaign_id, contact_id, lead_id, message_id,
			type, timestamp, data, revenue_amount, external_id, error_message
		FROM campaign_activities`+clause+` ORDER BY timestamp, id`, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Activity, error) {
		var a domain.Activity
		var dataRaw []byte
		err := row.Scan(
			&a.ID, &a.CampaignID, &a.ContactID, &a.LeadID, &a.MessageID,
			&a.Type, &a.Timestamp, &dataRaw, &a.RevenueAmount, &a.ExternalID, &a.ErrorMessage,
		)
		if err != nil {
			return domain.Activity{}, err
		}
		if len(dataRaw) > 0 {
			if err := json.Unmarshal(dataRaw, &a.Data); err != nil {
				return domain.Activity{}, fmt.Errorf("activity %d data: %w", a.ID, err)
			}
		}
		return a, nil
	})
}

func (r *ActivityRepository) CountActivities(ctx context.Context, f port.ActivityFilter) (int, error) {
	clause, args := filterClause(f)
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM campaign_activities`+clause, args...).Scan(&n)
	return n, err
}

func (r *ActivityRepository) DistinctContacts(ctx context.Context, f port.ActivityFilter) (int, error) {
	clause, args := filterClause(f)
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(DISTINCT contact_id) FROM campaign_activities`+clause, args...).Scan(&n)
	return n, err
}

func (r *ActivityRepository) CountByType(ctx context.Context, campaignID int64) (map[domain.ActivityType]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT type, count(*) FROM campaign_activities WHERE campaign_id = $1 GROUP BY type`,
		campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[domain.ActivityType]int)
	for rows.Next() {
		var t domain.ActivityType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		out[t] = n
	}
	return out, rows.Err()
}

func (r *ActivityRepository) SumRevenue(ctx context.Context, campaignID int64) (int64, error) {
	var sum int64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(sum(revenue_amount), 0) FROM campaign_activities WHERE campaign_id = $1`,
		campaignID).Scan(&sum)
	return sum, err
}

func (r *ActivityRepository) CountBuckets(ctx context.Context, f port.ActivityFilter, interval port.Interval) ([]port.Bucket, error) {
	trunc := "day"
	switch interval {
	case port.IntervalWeek:
		trunc = "week"
	case port.IntervalMonth:
		trunc = "month"
	}
	clause, args := filterClause(f)
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT date_trunc('%s', timestamp) AS period, count(*)
		FROM campaign_activities%s
		GROUP BY period ORDER BY period`, trunc, clause), args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (port.Bucket, error) {
		var b port.Bucket
		err := row.Scan(&b.Period, &b.Count)
		return b, err
	})
}
