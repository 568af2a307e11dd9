package notify

import (
	"context"

	"github.com/heraldai/herald/errors"
)

// InAppSender delivers notifications to the inbox table. The row
// insert is the transport acceptance.
type InAppSender struct {
	store *Store
}

// NewInAppSender creates a sender writing to the given inbox store.
func NewInAppSender(store *Store) *InAppSender {
	return &InAppSender{store: store}
}

// Name returns the channel this sender serves.
func (s *InAppSender) Name() string { return "inapp" }

// Send writes the notification to the inbox.
func (s *InAppSender) Send(ctx context.Context, n *Notification) error {
	entry := *n
	entry.Channel = s.Name()
	if err := s.store.Insert(ctx, &entry); err != nil {
		return errors.Wrap(err, "failed to write inbox entry")
	}
	return nil
}
