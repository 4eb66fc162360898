package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/smart-trendz/trendz/internal/orchestrator"
)

// Scheduler forces a snapshot refresh on a cron schedule so interactive
// requests usually hit a warm snapshot.
type Scheduler struct {
	Agg    orchestrator.Snapshotter
	Spec   string
	Logger *log.Logger

	stop chan struct{}
}

func NewScheduler(agg orchestrator.Snapshotter, spec string) (*Scheduler, error) {
	if _, err := cronexpr.Parse(spec); err != nil {
		return nil, err
	}
	return &Scheduler{
		Agg:    agg,
		Spec:   spec,
		Logger: log.New(log.Writer(), "[SCHED] ", log.LstdFlags),
		stop:   make(chan struct{}),
	}, nil
}

func (s *Scheduler) Start() {
	go func() {
		expr := cronexpr.MustParse(s.Spec)
		for {
			next := expr.Next(time.Now())
			if next.IsZero() {
				s.Logger.Printf("schedule %q has no future runs, stopping", s.Spec)
				return
			}
			select {
			case <-s.stop:
				return
			case <-time.After(time.Until(next)):
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			if _, err := s.Agg.Aggregate(ctx, true); err != nil {
				s.Logger.Printf("scheduled refresh failed: %v", err)
			} else {
				s.Logger.Printf("scheduled refresh complete")
			}
			cancel()
		}
	}()
}

func (s *Scheduler) Stop() {
	close(s.stop)
}
