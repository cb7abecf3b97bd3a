package ports

import (
	"context"

	"github.com/bft-labs/logship/internal/domain"
)

// Transport delivers one outbound message.
// Send is synchronous: nil means the remote side accepted the message.
// Implementations must not retry on their own; the scheduler decides what a
// failure means for the batch.
type Transport interface {
	Send(ctx context.Context, msg domain.Message) error
}

// Sink receives formatted entry text for later delivery.
type Sink interface {
	Send(text string)
}
