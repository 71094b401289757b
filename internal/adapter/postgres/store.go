package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Store bundles the four repositories into the combined port.Store.
type Store struct {
	*CampaignRepository
	*EnrollmentRepository
	*ActivityRepository
	*ContactRepository
}

// NewStore returns repositories sharing one pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		CampaignRepository:   NewCampaignRepository(pool),
		EnrollmentRepository: NewEnrollmentRepository(pool),
		ActivityRepository:   NewActivityRepository(pool),
		ContactRepository:    NewContactRepository(pool),
	}
}
