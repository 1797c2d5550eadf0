package cache

import (
	"time"

	"sjsage522/marketsearch/logger"
)

// Cooldown keeps a source from being contacted again for a while after it
// failed hard. A nil Cooldown, or one without a backing cache, is never active.
type Cooldown struct {
	svc CacheService
	ttl time.Duration
	log *logger.Logger
}

// NewCooldown creates a cooldown on top of a cache service
func NewCooldown(svc CacheService, ttl time.Duration) *Cooldown {
	return &Cooldown{
		svc: svc,
		ttl: ttl,
		log: logger.ForCache(),
	}
}

// Active reports whether key is still cooling down
func (c *Cooldown) Active(key string) bool {
	if c == nil || c.svc == nil || key == "" {
		return false
	}
	_, err := c.svc.Get(key)
	return err == nil
}

// TTL returns how long a started cooldown lasts
func (c *Cooldown) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Start begins a cooldown for key, recording the reason as the value
func (c *Cooldown) Start(key, reason string) {
	if c == nil || c.svc == nil || key == "" || c.ttl <= 0 {
		return
	}
	if err := c.svc.Set(key, []byte(reason), c.ttl); err != nil {
		c.log.WithError(err).Warn().Str("key", key).Msg("Failed to start cooldown")
		return
	}
	c.log.Info().Str("key", key).Dur("ttl", c.ttl).Str("reason", reason).Msg("Cooldown started")
}
