package arena

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
)

// Autopilot periodically runs the tournaments of open arenas that have filled up.
type Autopilot struct {
	manager          *Manager
	interval         time.Duration
	payoutRealValue  bool
	scheduler        gocron.Scheduler
	cancelRunningJob context.CancelFunc
}

func NewAutopilot(manager *Manager, interval time.Duration, payoutRealValue bool) *Autopilot {
	return &Autopilot{
		manager:         manager,
		interval:        interval,
		payoutRealValue: payoutRealValue,
	}
}

func (a *Autopilot) Start() error {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, err = sched.NewJob(
		gocron.DurationJob(a.interval),
		gocron.NewTask(func() {
			a.Tick(ctx)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		cancel()
		return err
	}

	a.scheduler = sched
	a.cancelRunningJob = cancel
	sched.Start()
	log.Info().Dur("interval", a.interval).Bool("realValue", a.payoutRealValue).Msg("Arena autopilot started")
	return nil
}

func (a *Autopilot) Shutdown() {
	if a.scheduler == nil {
		return
	}
	a.cancelRunningJob()
	if err := a.scheduler.Shutdown(); err != nil {
		log.Warn().Err(err).Msg("Error shutting down arena autopilot")
	}
}

// Tick runs every full open arena to completion and returns how many it completed.
func (a *Autopilot) Tick(ctx context.Context) int {
	arenas, err := a.manager.ListOpenArenas(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("[Autopilot] Cannot list open arenas")
		return 0
	}

	completed := 0
	for _, arena := range arenas {
		participants, err := a.manager.ListParticipants(ctx, arena.Id)
		if err != nil {
			log.Warn().Err(err).Str("arenaId", arena.Id).Msg("[Autopilot] Cannot load participants")
			continue
		}
		if len(participants) < arena.MaxParticipants {
			continue
		}

		settlement, err := a.manager.RunFullTournament(ctx, arena.Id, a.payoutRealValue)
		if err != nil && !isPayoutFailure(err) {
			log.Warn().Err(err).Str("arenaId", arena.Id).Msg("[Autopilot] Tournament did not complete")
			continue
		}
		completed++

		logEvent := log.Info().Str("arenaId", arena.Id)
		if settlement.WinnerAgentId != nil {
			logEvent = logEvent.Str("winnerId", *settlement.WinnerAgentId)
		}
		logEvent.Msg("[Autopilot] Tournament completed")
	}
	return completed
}
