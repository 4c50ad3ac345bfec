package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"sentinelwatch/internal/model"
	"sentinelwatch/internal/server"
)

var errDatabaseRequired = errors.New("database.dsn not configured; this command requires persistence")

// MonitorSpec allows starting one ad-hoc monitor from the command line
// when no registry entries exist yet.
type MonitorSpec struct {
	UserID     string
	Wallet     string
	Threshold  string
	Direction  string
	Instrument string
}

// RunOptions configure the combined provider/requester node.
type RunOptions struct {
	AdHoc *MonitorSpec
}

// Run executes the long-running node: the paid price endpoint plus the
// monitor scheduler, sharing one process.
func (a *App) Run(ctx context.Context, opts RunOptions) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	activities, monitors, closeStores, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	defer closeStores()

	checker := a.newChecker()
	srv := server.New(server.Options{
		Addr:            a.Config.Server.Addr,
		ReadTimeout:     a.Config.Server.ReadTimeout,
		WriteTimeout:    a.Config.Server.WriteTimeout,
		ShutdownTimeout: a.Config.Server.ShutdownTimeout,
	}, checker, a.Logger)

	sched := a.newScheduler(activities, monitors)

	if opts.AdHoc != nil {
		monitor, specErr := a.buildMonitor(*opts.AdHoc)
		if specErr != nil {
			return specErr
		}
		if putErr := monitors.Put(ctx, monitor); putErr != nil {
			return putErr
		}
		a.Logger.Info().Str("monitor_id", monitor.ID).Msg("ad-hoc monitor registered")
	}

	known, err := monitors.List(ctx)
	if err != nil {
		return err
	}
	started := 0
	for _, monitor := range known {
		if !monitor.Active {
			continue
		}
		sched.Start(monitor)
		started++
	}
	a.Logger.Info().
		Int("monitors", len(known)).
		Int("started", started).
		Str("network", string(a.Config.Network())).
		Msg("starting monitoring node")

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return srv.Run(groupCtx)
	})
	group.Go(func() error {
		<-groupCtx.Done()
		sched.StopAll()
		return nil
	})

	err = group.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("node terminated with error")
		return err
	}

	a.Logger.Info().Msg("monitoring node stopped")
	return nil
}

// Serve runs only the paid price endpoint, for deployments where the
// provider and the monitors are separate processes.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	checker := a.newChecker()
	srv := server.New(server.Options{
		Addr:            a.Config.Server.Addr,
		ReadTimeout:     a.Config.Server.ReadTimeout,
		WriteTimeout:    a.Config.Server.WriteTimeout,
		ShutdownTimeout: a.Config.Server.ShutdownTimeout,
	}, checker, a.Logger)

	a.Logger.Info().Str("addr", a.Config.Server.Addr).Msg("starting price provider")
	err := srv.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func (a *App) buildMonitor(spec MonitorSpec) (*model.Monitor, error) {
	direction, err := model.ParseDirection(spec.Direction)
	if err != nil {
		return nil, err
	}
	threshold, err := parseThreshold(spec.Threshold)
	if err != nil {
		return nil, err
	}
	userID := spec.UserID
	if userID == "" {
		userID = "cli"
	}
	instrument := model.Instrument(spec.Instrument)
	if spec.Instrument == "" {
		instrument = a.Config.Network().DefaultInstrument()
	}
	return model.NewMonitor(userID, spec.Wallet, threshold, direction, instrument, a.Config.Network())
}
