package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"trackserver/internal/config"
	"trackserver/internal/repository"
	"trackserver/internal/repository/sqlite"
	"trackserver/internal/service/storage"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Load()

	root := &cobra.Command{
		Use:           "catalog",
		Short:         "Manage the sightings catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfg.DBPath, "db", cfg.DBPath, "database path")

	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import persisted objects from the storage directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cfg.DBPath, func(repo repository.SightingRepository) error {
				return importSightings(cmd.OutOrStdout(), repo, cfg.StoragePath, nil)
			})
		},
	}
	importCmd.Flags().StringVar(&cfg.StoragePath, "storage", cfg.StoragePath, "directory containing persisted objects")

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print catalog statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepository(cfg.DBPath, func(repo repository.SightingRepository) error {
				return printStats(cmd.OutOrStdout(), repo)
			})
		},
	}

	root.AddCommand(importCmd, statsCmd)
	return root
}

func withRepository(dbPath string, fn func(repository.SightingRepository) error) error {
	db, err := sqlite.New(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()
	return fn(sqlite.NewSightingRepository(db))
}

func importSightings(out io.Writer, repo repository.SightingRepository, storagePath string, sizeOf storage.SizeFunc) error {
	fmt.Fprintf(out, "Importing objects from %s\n", storagePath)

	result, err := storage.Scan(storagePath, sizeOf)
	if err != nil {
		return err
	}
	for name, reason := range result.Skipped {
		fmt.Fprintf(out, "Skipping %s: %v\n", name, reason)
	}

	if len(result.Sightings) == 0 {
		fmt.Fprintln(out, "No objects found to import")
		return nil
	}

	inserted, err := repo.InsertBatch(result.Sightings)
	if err != nil {
		return fmt.Errorf("failed to import sightings: %w", err)
	}

	fmt.Fprintf(out, "Imported %d new sightings (%d already cataloged)\n", inserted, len(result.Sightings)-inserted)
	if len(result.Skipped) > 0 {
		fmt.Fprintf(out, "Skipped %d files (invalid format or missing image)\n", len(result.Skipped))
	}
	return printStats(out, repo)
}

func printStats(out io.Writer, repo repository.SightingRepository) error {
	stats, err := repo.GetStats()
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "\nCatalog statistics:\n")
	fmt.Fprintf(out, "   Total sightings: %d\n", stats.Total)
	fmt.Fprintf(out, "   Sessions: %d\n", stats.Sessions)

	classes := make([]string, 0, len(stats.ClassCounts))
	for class := range stats.ClassCounts {
		classes = append(classes, class)
	}
	sort.Strings(classes)
	for _, class := range classes {
		fmt.Fprintf(out, "      - %s: %d\n", class, stats.ClassCounts[class])
	}
	return nil
}
