package crontab

import (
	"context"
	"fmt"
	"time"

	"github.com/mileusna/crontab"
	"github.com/rs/zerolog"

	"birdreel-server/internal/domain/prompt"
	"birdreel-server/internal/domain/video"
)

const (
	// CronJobTimeout bounds each scheduled run.
	CronJobTimeout = 10 * time.Minute
)

// Crontab drives the periodic reconciliation sweep and the prompt pool
// refresh.
type Crontab struct {
	ctab          *crontab.Crontab
	videoService  *video.Service
	promptService *prompt.Service
	log           zerolog.Logger
}

func NewCrontab(videoService *video.Service, promptService *prompt.Service, log zerolog.Logger) *Crontab {
	return &Crontab{
		ctab:          crontab.New(),
		videoService:  videoService,
		promptService: promptService,
		log:           log.With().Str("component", "crontab").Logger(),
	}
}

// Run registers the jobs and blocks until ctx is cancelled. The sweep runs
// once immediately so records stranded by a restart advance without waiting
// for the first tick.
func (c *Crontab) Run(ctx context.Context) error {
	c.runSweep(ctx)

	if err := c.ctab.AddJob("* * * * *", func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.runSweep(jobCtx)
	}); err != nil {
		return fmt.Errorf("failed to add sweep job: %w", err)
	}

	if err := c.ctab.AddJob("0 */6 * * *", func() {
		jobCtx, cancel := context.WithTimeout(context.Background(), CronJobTimeout)
		defer cancel()
		c.runPromptRefresh(jobCtx)
	}); err != nil {
		return fmt.Errorf("failed to add prompt refresh job: %w", err)
	}

	c.log.Info().Msg("scheduled jobs registered")
	<-ctx.Done()
	c.ctab.Shutdown()
	return nil
}

func (c *Crontab) runSweep(ctx context.Context) {
	processed := c.videoService.SweepOnce(ctx)
	if processed > 0 {
		c.log.Info().Int("processed", processed).Msg("sweep advanced records")
	}
}

func (c *Crontab) runPromptRefresh(ctx context.Context) {
	stored, err := c.promptService.Refresh(ctx)
	if err != nil {
		c.log.Error().Err(err).Msg("prompt refresh failed")
		return
	}
	c.log.Info().Int("stored", stored).Msg("prompt refresh finished")
}
