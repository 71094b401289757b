package port

import (
	"context"
	"errors"

	"outreach-engine/internal/core/domain"
)

// SendResult is the provider-side outcome of one dispatch.
type SendResult struct {
	Delivered bool
	// ExternalRef correlates the dispatch with the provider (message id,
	// call SID, ...). Stored on the activity for later webhook matching.
	ExternalRef string
}

// ChannelSender dispatches one rendered message over one channel. The engine
// is channel-agnostic beyond this contract; implementations wrap the actual
// provider integrations, which live outside this module.
type ChannelSender interface {
	Send(ctx context.Context, contact domain.Contact, msg *domain.CampaignMessage, content domain.MessageContent) (SendResult, error)
}

// SenderRegistry resolves the sender for a channel.
type SenderRegistry interface {
	SenderFor(ch domain.ChannelType) (ChannelSender, bool)
}

// DispatchError classifies a failed dispatch. Permanent errors terminate the
// enrollment; transient ones are retried with backoff on later passes.
type DispatchError struct {
	Permanent bool
	Err       error
}

func (e *DispatchError) Error() string {
	if e.Permanent {
		return "permanent dispatch failure: " + e.Err.Error()
	}
	return "transient dispatch failure: " + e.Err.Error()
}

func (e *DispatchError) Unwrap() error { return e.Err }

// PermanentError wraps err as a non-retryable dispatch failure.
func PermanentError(err error) error {
	return &DispatchError{Permanent: true, Err: err}
}

// TransientError wraps err as a retryable dispatch failure.
func TransientError(err error) error {
	return &DispatchError{Permanent: false, Err: err}
}

// IsPermanentDispatch reports whether err is classified as permanent.
// Unclassified errors are treated as transient so an unknown provider
// failure never terminates an enrollment by accident.
func IsPermanentDispatch(err error) bool {
	var de *DispatchError
	return errors.As(err, &de) && de.Permanent
}
