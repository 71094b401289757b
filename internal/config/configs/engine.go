package configs

import "time"

// Engine defines configuration for the queue processor. PollInterval sets
// the cadence of the background processing loop; the retry options shape the
// exponential backoff applied to transient dispatch failures.
type Engine struct {
	// PollInterval is how often the background loop drains due enrollments.
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"30s"`
	// BatchLimit caps enrollments processed per campaign per pass. Zero
	// disables the cap.
	BatchLimit int `env:"BATCH_LIMIT" envDefault:"100"`
	// RetryBaseDelay is the first retry backoff; it doubles per attempt.
	RetryBaseDelay time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1m"`
	// RetryMaxDelay caps the backoff growth.
	RetryMaxDelay time.Duration `env:"RETRY_MAX_DELAY" envDefault:"1h"`
	// RetryMaxAttempts is the dispatch attempt budget per step before an
	// enrollment is failed.
	RetryMaxAttempts int `env:"RETRY_MAX_ATTEMPTS" envDefault:"5"`
}
