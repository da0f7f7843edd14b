package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/hpcledger/internal/config"
	"github.com/jackzampolin/hpcledger/internal/home"
	"github.com/jackzampolin/hpcledger/internal/ledger"
	"github.com/jackzampolin/hpcledger/internal/manager"
	"github.com/jackzampolin/hpcledger/internal/statusapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the hpcledger manager",
	Long: `Run the hpcledger manager.

This binds the claim/release request socket and, if status_addr is set,
the read-only HTTP status surface. Both run until the context is
cancelled (Ctrl+C or SIGTERM).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     GetLogLevel(),
			AddSource: IsDebugLevel(),
		}))

		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		configFile := cfgFile
		if configFile == "" {
			if _, err := os.Stat("config.yaml"); err == nil {
				configFile = "config.yaml"
			} else {
				configFile = h.ConfigPath()
			}
		}
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			logger.Info("creating default config", "path", configFile)
			if err := config.WriteDefault(configFile); err != nil {
				logger.Warn("failed to write default config", "error", err)
			}
		}

		cfgMgr, err := config.NewManager(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfgMgr.WatchConfig()
		cfg := cfgMgr.Get()

		dbPath := cfg.DBFname
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(h.DataPath(), dbPath)
		}
		store, err := ledger.Open(dbPath, cfg.OverwriteDB)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer store.Close()

		if len(store.Snapshot()) == 0 {
			fnames := make([]ledger.Fname, len(cfg.LearnersFnames))
			for i, p := range cfg.LearnersFnames {
				fnames[i] = ledger.Single(p)
			}
			if err := store.Init(fnames); err != nil {
				return fmt.Errorf("seeding ledger: %w", err)
			}
			logger.Info("ledger seeded", "rows", len(fnames))
		}

		prober, err := buildProber(cfg.Scheduler)
		if err != nil {
			return err
		}

		mgr := manager.New(store, prober, manager.Config{
			Endpoint:          cfg.Endpoint,
			ReconcileInterval: cfg.ReconcileInterval,
			StrictStop:        cfg.StrictStop,
			Logger:            logger,
		})

		errCh := make(chan error, 2)
		go func() { errCh <- mgr.Start(ctx) }()

		if cfg.StatusAddr != "" {
			statusSrv := statusapi.New(managerAdapter{mgr}, statusapi.Config{
				Addr:   cfg.StatusAddr,
				Logger: logger,
			})
			go func() { errCh <- statusSrv.Start(ctx) }()
		}

		<-ctx.Done()
		err = <-errCh
		return err
	},
}

// managerAdapter projects *manager.Manager's LearnerView onto
// statusapi.LearnerView, so internal/statusapi does not need to import
// internal/manager just to know its read-model's field set.
type managerAdapter struct {
	mgr *manager.Manager
}

func (a managerAdapter) AsDicts() []statusapi.LearnerView {
	return toStatusViews(a.mgr.AsDicts())
}

func (a managerAdapter) NDone() int {
	return a.mgr.NDone()
}

func (a managerAdapter) Failed() []statusapi.LearnerView {
	return toStatusViews(a.mgr.Failed())
}

func toStatusViews(rows []manager.LearnerView) []statusapi.LearnerView {
	out := make([]statusapi.LearnerView, len(rows))
	for i, r := range rows {
		out[i] = statusapi.LearnerView{
			Fname:      r.Fname,
			JobID:      r.JobID,
			IsDone:     r.IsDone,
			JobName:    r.JobName,
			LogFname:   r.LogFname,
			OutputLogs: r.OutputLogs,
		}
	}
	return out
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
