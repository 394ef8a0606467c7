package session

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// DefaultCleanupSchedule is how often expired session rows are purged
const DefaultCleanupSchedule = "@every 15m"

// Purger deletes expired session records
type Purger interface {
	PurgeExpired() (int64, error)
}

// Cleaner runs a Purger on a cron schedule
type Cleaner struct {
	purger   Purger
	cron     *cron.Cron
	schedule string
}

// NewCleaner creates a cleaner; an empty schedule uses DefaultCleanupSchedule
func NewCleaner(purger Purger, schedule string) *Cleaner {
	if schedule == "" {
		schedule = DefaultCleanupSchedule
	}
	return &Cleaner{
		purger:   purger,
		cron:     cron.New(),
		schedule: schedule,
	}
}

// Start schedules the purge job and starts the scheduler
func (c *Cleaner) Start() error {
	if _, err := c.cron.AddFunc(c.schedule, c.Run); err != nil {
		return fmt.Errorf("invalid session cleanup schedule %q: %w", c.schedule, err)
	}
	c.cron.Start()

	log.Info().Str("schedule", c.schedule).Msg("Session cleanup started")
	return nil
}

// Stop stops the scheduler and waits for a running purge to finish
func (c *Cleaner) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
	log.Info().Msg("Session cleanup stopped")
}

// Run purges expired sessions once
func (c *Cleaner) Run() {
	n, err := c.purger.PurgeExpired()
	if err != nil {
		log.Error().Err(err).Msg("Failed to purge expired sessions")
		return
	}
	if n > 0 {
		log.Debug().Int64("removed", n).Msg("Purged expired sessions")
	}
}
