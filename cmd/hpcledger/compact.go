package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/hpcledger/internal/config"
	"github.com/jackzampolin/hpcledger/internal/home"
	"github.com/jackzampolin/hpcledger/internal/ledger"
)

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Rewrite the ledger log to one line per current row",
	Long: `Compact the ledger's append-only log, dropping superseded history.
Not safe to run while a manager has the ledger open for writing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := home.New(homeDir)
		if err != nil {
			return err
		}

		configFile := cfgFile
		if configFile == "" {
			configFile = h.ConfigPath()
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

		if err := ledger.Compact(dbPath); err != nil {
			return fmt.Errorf("compacting ledger: %w", err)
		}
		fmt.Printf("compacted %s\n", dbPath)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(compactCmd)
}
