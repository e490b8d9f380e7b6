package reservation

import (
	"context"
	"time"

	"hotelsuite/internal/logger"
)

// NoShowSweep periodically marks overdue CONFIRMED reservations as NO_SHOW.
type NoShowSweep struct {
	service  *Service
	interval time.Duration
	stopCh   chan struct{}
	done     chan struct{}
}

func NewNoShowSweep(service *Service, interval time.Duration) *NoShowSweep {
	return &NoShowSweep{
		service:  service,
		interval: interval,
		stopCh:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (j *NoShowSweep) Start(ctx context.Context) {
	log := logger.FromContext(ctx)
	log.Info("starting no-show sweep", "interval", j.interval, "grace_days", j.service.NoShowGraceDays)

	go func() {
		defer close(j.done)
		ticker := time.NewTicker(j.interval)
		defer ticker.Stop()

		j.run(ctx)
		for {
			select {
			case <-ctx.Done():
				log.Info("no-show sweep stopped by context")
				return
			case <-j.stopCh:
				log.Info("no-show sweep stopped")
				return
			case <-ticker.C:
				j.run(ctx)
			}
		}
	}()
}

// Stop ends the loop and waits for a running sweep to finish.
func (j *NoShowSweep) Stop() {
	close(j.stopCh)
	<-j.done
}

func (j *NoShowSweep) run(ctx context.Context) {
	log := logger.FromContext(ctx)
	start := time.Now()
	n, err := j.service.MarkNoShows(ctx)
	if err != nil {
		log.Error("no-show sweep failed", "error", err, "marked", n)
		return
	}
	if n > 0 {
		log.Info("no-show sweep marked reservations", "marked", n, "duration", time.Since(start))
	}
}
