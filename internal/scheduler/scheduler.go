package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// RecommendationGenerator rebuilds recommendations for every active user.
type RecommendationGenerator interface {
	GenerateAll(ctx context.Context) (int, error)
}

// CartSweeper empties carts that have not been touched for maxIdle.
type CartSweeper interface {
	SweepIdle(maxIdle time.Duration) (int, error)
}

// ResetPurger deletes used and expired password reset tokens.
type ResetPurger interface {
	PurgeExpired() (int, error)
}

type Config struct {
	RecommendationSpec string
	CartSweepSpec      string
	CartMaxIdle        time.Duration
	ResetPurgeSpec     string
}

// Jobs are the services the scheduler drives. A nil field disables its job.
type Jobs struct {
	Recommendations RecommendationGenerator
	Carts           CartSweeper
	Resets          ResetPurger
}

// Scheduler runs the storefront's periodic maintenance jobs.
type Scheduler struct {
	cron *cron.Cron
	cfg  Config
	jobs Jobs
}

func New(cfg Config, jobs Jobs) *Scheduler {
	return &Scheduler{
		cron: cron.New(),
		cfg:  cfg,
		jobs: jobs,
	}
}

// Start registers the jobs whose spec is set and starts the cron runner.
func (s *Scheduler) Start() error {
	entries := []struct {
		name    string
		spec    string
		enabled bool
		run     func()
	}{
		{"recommendation", s.cfg.RecommendationSpec, s.jobs.Recommendations != nil, s.GenerateRecommendations},
		{"cart sweep", s.cfg.CartSweepSpec, s.jobs.Carts != nil, s.SweepCarts},
		{"reset purge", s.cfg.ResetPurgeSpec, s.jobs.Resets != nil, s.PurgeResets},
	}
	for _, e := range entries {
		if e.spec == "" || !e.enabled {
			continue
		}
		if _, err := s.cron.AddFunc(e.spec, e.run); err != nil {
			logger.Error("Failed to add "+e.name+" job", err, map[string]interface{}{
				"spec": e.spec,
			})
			return err
		}
	}

	s.cron.Start()
	logger.Info("Scheduler started", map[string]interface{}{
		"jobs": len(s.cron.Entries()),
	})
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Scheduler stopped", nil)
}

func (s *Scheduler) GenerateRecommendations() {
	logger.Info("Starting scheduled recommendation generation", nil)
	start := time.Now()

	users, err := s.jobs.Recommendations.GenerateAll(context.Background())
	if err != nil {
		logger.Error("Failed to generate recommendations from scheduler", err)
		return
	}

	logger.Info("Recommendations generated", map[string]interface{}{
		"users":    users,
		"duration": time.Since(start).String(),
	})
}

func (s *Scheduler) SweepCarts() {
	swept, err := s.jobs.Carts.SweepIdle(s.cfg.CartMaxIdle)
	if err != nil {
		logger.Error("Failed to sweep idle carts", err)
		return
	}

	logger.Info("Idle carts swept", map[string]interface{}{
		"carts":    swept,
		"max_idle": s.cfg.CartMaxIdle.String(),
	})
}

func (s *Scheduler) PurgeResets() {
	purged, err := s.jobs.Resets.PurgeExpired()
	if err != nil {
		logger.Error("Failed to purge password reset tokens", err)
		return
	}
	logger.Info("Password reset tokens purged", map[string]interface{}{
		"tokens": purged,
	})
}
