package cmd

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"canopy/explorer/internal/catalog"
	"canopy/explorer/internal/config"
	"canopy/explorer/internal/db"
)

var seedCmd = &cobra.Command{
	Use:   "seed [file]",
	Short: "Load a JSON or YAML dataset into the SQLite catalog (the built-in sample without a file)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ds := catalog.Sample()
		source := "built-in sample"
		if len(args) == 1 {
			var err error
			if ds, err = catalog.LoadFile(args[0]); err != nil {
				return err
			}
			source = args[0]
		}

		// seeding creates the database, so an undiscovered path is fine
		path := cfg.Catalog.DBPath
		if path == "" {
			if path = config.FindDatabase(); path == "" {
				path = config.DefaultDBFile
			}
		}
		d, err := db.OpenDB(path)
		if err != nil {
			return err
		}
		defer d.Close()

		if err := catalog.SeedDataset(cmd.Context(), d, ds); err != nil {
			return err
		}

		children := 0
		for _, sub := range ds.Children {
			children += len(sub.Nodes)
		}
		pterm.Success.Printf("seeded %s from %s: %d skeleton nodes, %d child sets, %d revealable nodes\n",
			path, source, len(ds.Default.Nodes), len(ds.Children), children)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
