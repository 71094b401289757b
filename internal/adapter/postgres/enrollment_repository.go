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

// EnrollmentRepository implements port.EnrollmentStore.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository returns a new repository instance.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

const enrollmentColumns = `id, campaign_id, contact_id, lead_id, status,
	current_step, current_message_id, next_scheduled_at, claimed_at, retry_count,
	enrolled_at, last_interaction_at, completed_at, opted_out_at, opt_out_reason,
	opens, clicks, replies, conversions,
	calls_initiated, calls_completed, total_call_duration, voicemails_left,
	created_at, updated_at`

func scanEnrollment(row pgx.Row) (*domain.Enrollment, error) {
	var e domain.Enrollment
	err := row.Scan(
		&e.ID, &e.CampaignID, &e.ContactID, &e.LeadID, &e.Status,
		&e.CurrentStep, &e.CurrentMessageID, &e.NextScheduledAt, &e.ClaimedAt, &e.RetryCount,
		&e.EnrolledAt, &e.LastInteractionAt, &e.CompletedAt, &e.OptedOutAt, &e.OptOutReason,
		&e.Opens, &e.Clicks, &e.Replies, &e.Conversions,
		&e.CallsInitiated, &e.CallsCompleted, &e.TotalCallDuration, &e.VoicemailsLeft,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *EnrollmentRepository) CreateEnrollment(ctx context.Context, e *domain.Enrollment) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO campaign_contacts (campaign_id, contact_id, lead_id, status,
			current_step, current_message_id, next_scheduled_at, claimed_at, retry_count,
			enrolled_at, last_interaction_at, completed_at, opted_out_at, opt_out_reason,
			opens, clicks, replies, conversions,
			calls_initiated, calls_completed, total_call_duration, voicemails_left,
			created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)
		RETURNING id`,
		e.CampaignID, e.ContactID, e.LeadID, e.Status,
		e.CurrentStep, e.CurrentMessageID, e.NextScheduledAt, e.ClaimedAt, e.RetryCount,
		e.EnrolledAt, e.LastInteractionAt, e.CompletedAt, e.OptedOutAt, e.OptOutReason,
		e.Opens, e.Clicks, e.Replies, e.Conversions,
		e.CallsInitiated, e.CallsCompleted, e.TotalCallDuration, e.VoicemailsLeft,
		e.CreatedAt, e.UpdatedAt,
	).Scan(&e.ID)
}

func (r *EnrollmentRepository) UpdateEnrollment(ctx context.Context, e *domain.Enrollment) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE campaign_contacts SET
			lead_id = $1, status = $2, current_step = $3, current_message_id = $4,
			next_scheduled_at = $5, claimed_at = $6, retry_count = $7,
			last_interaction_at = $8, completed_at = $9, opted_out_at = $10, opt_out_reason = $11,
			opens = $12, clicks = $13, replies = $14, conversions = $15,
			calls_initiated = $16, calls_completed = $17, total_call_duration = $18, voicemails_left = $19,
			updated_at = $20
		WHERE id = $21`,
		e.LeadID, e.Status, e.CurrentStep, e.CurrentMessageID,
		e.NextScheduledAt, e.ClaimedAt, e.RetryCount,
		e.LastInteractionAt, e.CompletedAt, e.OptedOutAt, e.OptOutReason,
		e.Opens, e.Clicks, e.Replies, e.Conversions,
		e.CallsInitiated, e.CallsCompleted, e.TotalCallDuration, e.VoicemailsLeft,
		e.UpdatedAt, e.ID,
	)
	return err
}

// UpdateClaimed persists a claimed enrollment only while the stored row is
// still active. A zero row count means a concurrent transition (opt-out,
// pause, bounce) landed after the claim and must not be overwritten.
func (r *EnrollmentRepository) UpdateClaimed(ctx context.Context, e *domain.Enrollment) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE campaign_contacts SET
			lead_id = $1, status = $2, current_step = $3, current_message_id = $4,
			next_scheduled_at = $5, claimed_at = $6, retry_count = $7,
			last_interaction_at = $8, completed_at = $9, opted_out_at = $10, opt_out_reason = $11,
			opens = $12, clicks = $13, replies = $14, conversions = $15,
			calls_initiated = $16, calls_completed = $17, total_call_duration = $18, voicemails_left = $19,
			updated_at = $20
		WHERE id = $21 AND status = 'active'`,
		e.LeadID, e.Status, e.CurrentStep, e.CurrentMessageID,
		e.NextScheduledAt, e.ClaimedAt, e.RetryCount,
		e.LastInteractionAt, e.CompletedAt, e.OptedOutAt, e.OptOutReason,
		e.Opens, e.Clicks, e.Replies, e.Conversions,
		e.CallsInitiated, e.CallsCompleted, e.TotalCallDuration, e.VoicemailsLeft,
		e.UpdatedAt, e.ID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return port.ErrClaimConflict
	}
	return nil
}

func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id int64) (*domain.Enrollment, error) {
	e, err := scanEnrollment(r.pool.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM campaign_contacts WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *EnrollmentRepository) FindEnrollment(ctx context.Context, campaignID, contactID int64) (*domain.Enrollment, error) {
	e, err := scanEnrollment(r.pool.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM campaign_contacts WHERE campaign_id = $1 AND contact_id = $2`,
		campaignID, contactID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return e, err
}

func (r *EnrollmentRepository) ListEnrollments(ctx context.Context, campaignID int64, status *domain.EnrollmentStatus) ([]domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM campaign_contacts WHERE campaign_id = $1`
	args := []interface{}{campaignID}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY id`
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEnrollments(rows)
}

func collectEnrollments(rows pgx.Rows) ([]domain.Enrollment, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Enrollment, error) {
		e, err := scanEnrollment(row)
		if err != nil {
			return domain.Enrollment{}, err
		}
		return *e, nil
	})
}

func (r *EnrollmentRepository) ListDue(ctx context.Context, campaignID int64, now time.Time, limit int) ([]domain.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + ` FROM campaign_contacts
		WHERE campaign_id = $1 AND status = 'active'
		  AND (next_scheduled_at IS NULL OR next_scheduled_at <= $2)
		ORDER BY next_scheduled_at NULLS LAST, id`
	args := []interface{}{campaignID, now}
	if limit > 0 {
		query += ` LIMIT $3`
		args = append(args, limit)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectEnrollments(rows)
}

// ClaimDue stamps claimed_at only while the row is still active, due, and
// not held by a claim younger than the lease, so concurrent processors
// cannot dispatch the same step twice. The schedule is left untouched; a
// claim whose cycle crashed expires with the lease and the row becomes due
// again. The RETURNING row is the enrollment as claimed.
func (r *EnrollmentRepository) ClaimDue(ctx context.Context, id int64, now time.Time) (*domain.Enrollment, error) {
	e, err := scanEnrollment(r.pool.QueryRow(ctx, `
		UPDATE campaign_contacts SET claimed_at = $2
		WHERE id = $1 AND status = 'active'
		  AND (next_scheduled_at IS NULL OR next_scheduled_at <= $2)
		  AND (claimed_at IS NULL OR claimed_at <= $3)
		RETURNING `+enrollmentColumns,
		id, now, now.Add(-port.ClaimLease)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrClaimConflict
	}
	return e, err
}

func (r *EnrollmentRepository) EnrolledContactIDs(ctx context.Context, campaignID int64) (map[int64]struct{}, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT contact_id FROM campaign_contacts WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out[id] = struct{}{}
	}
	return out, rows.Err()
}

func (r *EnrollmentRepository) CountByStatus(ctx context.Context, campaignID int64) (map[domain.EnrollmentStatus]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, count(*) FROM campaign_contacts WHERE campaign_id = $1 GROUP BY status`,
		campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[domain.EnrollmentStatus]int)
	for rows.Next() {
		var status domain.EnrollmentStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (r *EnrollmentRepository) EngagementTotals(ctx context.Context, campaignID int64) (port.EngagementTotals, error) {
	var t port.EngagementTotals
	err := r.pool.QueryRow(ctx, `
		SELECT
			COALESCE(sum(opens), 0), COALESCE(sum(clicks), 0),
			COALESCE(sum(replies), 0), COALESCE(sum(conversions), 0),
			COALESCE(sum(calls_initiated), 0), COALESCE(sum(calls_completed), 0),
			COALESCE(sum(total_call_duration), 0), COALESCE(sum(voicemails_left), 0),
			count(*) FILTER (WHERE current_step > 0),
			count(*) FILTER (WHERE opens > 0 OR clicks > 0 OR replies > 0),
			count(*) FILTER (WHERE conversions > 0)
		FROM campaign_contacts WHERE campaign_id = $1`, campaignID).Scan(
		&t.Opens, &t.Clicks, &t.Replies, &t.Conversions,
		&t.CallsInitiated, &t.CallsCompleted, &t.TotalCallDuration, &t.VoicemailsLeft,
		&t.Reached, &t.Engaged, &t.Converted,
	)
	return t, err
}
