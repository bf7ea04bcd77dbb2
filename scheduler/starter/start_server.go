// Package starter wires a scheduler from its configuration and runs it next to the simulated
// cluster and the status server.
package starter

import (
	"context"
	"net/http"

	"github.com/benbjohnson/clock"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ngageoint/scale/common/endpoints"
	"github.com/ngageoint/scale/scheduler/config"
	"github.com/ngageoint/scale/scheduler/server"
	"github.com/ngageoint/scale/scheduler/setup"
)

// Options are the command line overrides of the configuration.
//
// StatusAddr - replaces the Status.Addr of the configuration when set.
// SeedWork - number of demo executions queued at startup.
type Options struct {
	StatusAddr string
	SeedWork   int
}

// StartServer constructs the scheduler and blocks running it until ctx is done or one of its
// parts fails.
func StartServer(ctx context.Context, configs *config.JSONConfigs, opts Options) error {
	log.Infof("Starting scheduler with configuration:%s", configs)
	clk := clock.New()

	sim, offerInterval, err := configs.Cluster.Create(clk)
	if err != nil {
		return err
	}
	st, closeStore, err := configs.Store.Create(clk)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeStore(); err != nil {
			log.WithError(err).Error("Failed to close store")
		}
	}()
	schedulerConfig, err := configs.Scheduler.CreateSchedulerConfig()
	if err != nil {
		return err
	}

	stat := endpoints.MakeStatsReceiver("scheduler")
	sched := server.NewScheduler(*schedulerConfig, sim, st, clk, stat)

	if opts.SeedWork > 0 {
		if err := setup.SeedDemoWork(ctx, st, schedulerConfig.ScaleImage, opts.SeedWork); err != nil {
			return err
		}
	}

	addr := configs.Status.Addr
	if opts.StatusAddr != "" {
		addr = opts.StatusAddr
	}
	status := server.NewStatusHandler(sched)
	httpServer := endpoints.NewServer(addr, configs.Status.MaxConns, stat, map[string]http.Handler{
		"/status": status,
		"/nodes":  status,
	})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return sim.Run(gctx, sched, offerInterval)
	})
	g.Go(func() error {
		return sched.Run(gctx)
	})
	g.Go(func() error {
		return httpServer.Serve(gctx)
	})
	err = g.Wait()
	log.WithError(err).Info("Scheduler stopped")
	return err
}
