package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work. Its context is cancelled on Stop.
type Job func(ctx context.Context) error

// Scheduler runs named jobs on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    *zerolog.Logger
}

// New creates a scheduler evaluating specs in loc.
func New(loc *time.Location, log *zerolog.Logger) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		ctx:    ctx,
		cancel: cancel,
		log:    log,
	}
}

// AddJob registers job under spec, which may be a standard five-field
// expression or a descriptor such as "@every 2m".
func (s *Scheduler) AddJob(name, spec string, job Job) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.log.Debug().Str("job", name).Msg("job triggered")
		if err := job(s.ctx); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.log.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("scheduler started")
}

// Stop cancels the context of running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	s.log.Info().Msg("scheduler stopped")
}

// IsRunning reports whether any job is registered.
func (s *Scheduler) IsRunning() bool {
	return s.cron != nil && len(s.cron.Entries()) > 0
}
