package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/hpcledger/internal/config"
	"github.com/jackzampolin/hpcledger/internal/home"
	"github.com/jackzampolin/hpcledger/internal/ledger"
)

var initOverwrite bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Seed the ledger from config's learners_fnames",
	Long: `Create the hpcledger home directory, write a default config if one
doesn't exist, and seed the ledger with one free row per entry in
learners_fnames.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}
		if err := h.EnsureExists(); err != nil {
			return err
		}

		configFile := cfgFile
		if configFile == "" {
			configFile = h.ConfigPath()
		}
		if !h.ConfigExists() && cfgFile == "" {
			if err := config.WriteDefault(configFile); err != nil {
				return fmt.Errorf("writing default config: %w", err)
			}
			fmt.Printf("wrote default config to %s\n", configFile)
		}

		cfgMgr, err := config.NewManager(configFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		cfg := cfgMgr.Get()

		dbPath := cfg.DBFname
		if !filepath.IsAbs(dbPath) {
			dbPath = filepath.Join(h.DataPath(), dbPath)
		}

		store, err := ledger.Open(dbPath, initOverwrite || cfg.OverwriteDB)
		if err != nil {
			return fmt.Errorf("opening ledger: %w", err)
		}
		defer store.Close()

		fnames := make([]ledger.Fname, len(cfg.LearnersFnames))
		for i, p := range cfg.LearnersFnames {
			fnames[i] = ledger.Single(p)
		}
		if err := store.Init(fnames); err != nil {
			return fmt.Errorf("seeding ledger: %w", err)
		}

		fmt.Printf("seeded %d rows into %s\n", len(fnames), dbPath)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initOverwrite, "overwrite", false, "discard any existing ledger before seeding")
	rootCmd.AddCommand(initCmd)
}
