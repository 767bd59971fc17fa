package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Send delivers msg to userID. Configuration problems return an error
	// and no delivery; delivery failures return the failed delivery and
	// the cause.
	Send(ctx context.Context, userID string, channel Channel, msg Message) (*Delivery, error)
	Recipients() ([]Recipient, error)
	Channels() []ChannelStatus
}

var ErrDeliveryFailed = errors.New("notification delivery failed")
