// services/scheduler.go
package services

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rotisserie/eris"
)

// StartStaleMatchSweeper deletes matches left pending longer than ttl, every
// interval. Shut the returned scheduler down on exit.
func (s *MatchService) StartStaleMatchSweeper(ctx context.Context, interval, ttl time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, eris.Wrap(err, "failed to create scheduler")
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			removed, err := s.ExpireStalePending(ctx, ttl)
			if err != nil {
				s.logger.Error().Err(err).Str("job", "stale-pending").Msg(eris.ToString(err, true))
				return
			}
			if removed > 0 {
				s.logger.Info().Int("removed", removed).Dur("ttl", ttl).Msg("expired stale pending matches")
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, eris.Wrap(err, "failed to schedule stale match sweep")
	}

	sched.Start()
	return sched, nil
}
