// Package notify delivers reminder notifications. Delivery is
// fire-and-forget: a notification succeeds the moment its transport
// accepts it (inbox row written, webhook acknowledged, command
// started), and nothing tracks whether the user saw it.
package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/heraldai/herald/errors"
	"github.com/heraldai/herald/logger"
)

// Notification is a single message on its way to the owner. ReadAt and
// CreatedAt are only meaningful for inbox entries.
type Notification struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	JobID     string     `json:"job_id,omitempty"`
	Title     string     `json:"title"`
	Body      string     `json:"body,omitempty"`
	Channel   string     `json:"channel"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// Sender delivers notifications over one transport.
type Sender interface {
	// Name is the channel this sender serves.
	Name() string
	// Send hands the notification to the transport. Returning nil
	// means the transport accepted it, nothing more.
	Send(ctx context.Context, n *Notification) error
}

// ErrNoSender is returned when a notification names a channel no
// registered sender serves.
var ErrNoSender = errors.New("no sender registered for channel")

// Registry routes notifications to senders by channel and smooths
// delivery with a shared rate limit so a burst of due reminders cannot
// flood a transport.
type Registry struct {
	mu      sync.RWMutex
	senders map[string]Sender
	limiter *rate.Limiter
	logger  *zap.SugaredLogger
}

// NewRegistry creates a sender registry. maxPerMinute of zero means
// unlimited.
func NewRegistry(maxPerMinute int, log *zap.SugaredLogger) *Registry {
	var limiter *rate.Limiter
	if maxPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(maxPerMinute)/60.0), maxPerMinute)
	}
	return &Registry{
		senders: make(map[string]Sender),
		limiter: limiter,
		logger:  log,
	}
}

// Register adds a sender, replacing any previous sender for the same
// channel.
func (r *Registry) Register(s Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[s.Name()] = s
}

// Channels returns the registered channel names.
func (r *Registry) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.senders))
	for name := range r.senders {
		names = append(names, name)
	}
	return names
}

// Deliver sends a notification over the named channel, waiting on the
// shared rate limit first. The context bounds both the wait and the
// transport call.
func (r *Registry) Deliver(ctx context.Context, channel string, n *Notification) error {
	r.mu.RLock()
	sender, ok := r.senders[channel]
	r.mu.RUnlock()
	if !ok {
		return errors.Wrapf(ErrNoSender, "channel %q", channel)
	}

	if r.limiter != nil {
		if err := r.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "notification rate limit")
		}
	}

	if err := sender.Send(ctx, n); err != nil {
		return errors.Wrapf(err, "failed to deliver via %s", channel)
	}

	logger.ChildLogger(r.logger, logger.FieldsFromContext(ctx)...).Debugw("Notification delivered",
		"notification_id", n.ID,
		"channel", channel)
	return nil
}
