package repoindex

import (
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultStaleAge is how old a remote archive may grow before Load raises a
// refresh advisory.
const DefaultStaleAge = 15 * 24 * time.Hour

// Client reads repository indexes and keeps their caches in sync.
//
// A Client is safe for concurrent use; repositories share no mutable state
// and concurrent rebuilds of the same cache are deduplicated.
type Client struct {
	decoder           MetadataDecoder
	logger            *slog.Logger
	now               func() time.Time
	staleAge          time.Duration
	preferredVersions bool
	refreshGroup      singleflight.Group // zero value is valid
}

// Option configures a Client.
type Option func(*Client)

// WithDecoder sets the package description decoder.
func WithDecoder(d MetadataDecoder) Option {
	return func(c *Client) {
		c.decoder = d
	}
}

// WithLogger sets the logger for warnings and cache activity.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithClock sets the time source used by the stale-archive advisory.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

// WithStaleAge sets the archive age beyond which Load raises a refresh
// advisory for remote repositories. Set to 0 to disable the advisory.
func WithStaleAge(age time.Duration) Option {
	return func(c *Client) {
		c.staleAge = age
	}
}

// WithPreferredVersions enables extraction of archive-embedded
// preferred-versions files. The hook is off by default.
func WithPreferredVersions(enabled bool) Option {
	return func(c *Client) {
		c.preferredVersions = enabled
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		decoder:  FieldDecoder{},
		now:      time.Now,
		staleAge: DefaultStaleAge,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// log returns the logger, falling back to a discard logger if nil.
func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
