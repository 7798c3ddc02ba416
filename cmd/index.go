package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/Rohith2006/Facial-Recognition/internal/database"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the vector index",
}

var indexStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show vector index statistics",
	Long: `Show vector index statistics. When another process (such as a running
server) holds the index, the metadata written at the last compaction is shown.`,
	Args: cobra.NoArgs,
	RunE: runIndexStatus,
}

var indexCompactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Write a fresh snapshot and truncate the write-ahead log",
	Args:  cobra.NoArgs,
	RunE:  runIndexCompact,
}

var indexVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Cross-check the vector index against the identity store",
	Args:  cobra.NoArgs,
	RunE:  runIndexVerify,
}

var indexRebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Rebuild the vector index from embeddings kept in the identity store",
	Long: `Rebuild the vector index from the embedding copies kept in the identity store.
Only keys below the current index length are restored. When the index was lost,
pass --count with the number of acknowledged identities (see "index status" or
the index.meta file); records beyond it belong to failed registrations.`,
	Args: cobra.NoArgs,
	RunE: runIndexRebuild,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.AddCommand(indexStatusCmd, indexCompactCmd, indexVerifyCmd, indexRebuildCmd)

	indexStatusCmd.Flags().Bool("json", false, "Output as JSON")
	indexVerifyCmd.Flags().Bool("json", false, "Output as JSON")
	indexRebuildCmd.Flags().Int("count", 0, "Number of identities to restore (default: current index length)")
}

func runIndexStatus(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	jsonOutput := mustGetBool(cmd, "json")

	idx, err := openIndex(cfg, cfg.Log.NewLogger())
	if errors.Is(err, database.ErrIndexLocked) {
		meta, metaErr := database.LoadIndexMetadata(cfg.DataDir)
		if metaErr != nil {
			return fmt.Errorf("%w; %w", err, metaErr)
		}
		if jsonOutput {
			return outputJSON(meta)
		}
		fmt.Println("Index is in use by another process, showing last compaction metadata")
		fmt.Printf("Identities:  %d\n", meta.Count)
		fmt.Printf("Dimension:   %d\n", meta.Dim)
		fmt.Printf("Generation:  %s\n", meta.Generation)
		fmt.Printf("Codec:       %s\n", meta.Codec)
		fmt.Printf("HNSW:        %t\n", meta.HNSW)
		fmt.Printf("Built:       %s\n", meta.BuildTime.Format("2006-01-02 15:04:05"))
		return nil
	}
	if err != nil {
		return err
	}
	defer idx.Close()

	stats := idx.Stats()
	if jsonOutput {
		return outputJSON(stats)
	}
	fmt.Printf("Directory:   %s\n", cfg.DataDir)
	fmt.Printf("Identities:  %d\n", stats.Len)
	fmt.Printf("Dimension:   %d\n", stats.Dim)
	fmt.Printf("WAL records: %d (compact every %d)\n", stats.WALRecords, stats.CompactEvery)
	fmt.Printf("Generation:  %s\n", stats.Generation)
	fmt.Printf("Codec:       %s\n", stats.Codec)
	fmt.Printf("HNSW:        %t\n", stats.HNSW)
	if !stats.LastCompact.IsZero() {
		fmt.Printf("Compacted:   %s\n", stats.LastCompact.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runIndexCompact(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	idx, err := openIndex(cfg, cfg.Log.NewLogger())
	if err != nil {
		return err
	}
	defer idx.Close()

	before := idx.Stats().WALRecords
	if err := idx.Compact(); err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}
	stats := idx.Stats()
	fmt.Printf("Compacted %d identities (%d WAL records folded), generation %s\n",
		stats.Len, before, stats.Generation)
	return nil
}

func runIndexVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.resolver.Verify(ctx)
	if err != nil {
		return err
	}
	if mustGetBool(cmd, "json") {
		if err := outputJSON(report); err != nil {
			return err
		}
	} else {
		fmt.Printf("Indexed identities:  %d\n", report.IndexLen)
		fmt.Printf("Missing records:     %v\n", report.MissingRecords)
		fmt.Printf("Missing embeddings:  %v\n", report.MissingEmbeddings)
		fmt.Printf("Embedding mismatch:  %v\n", report.EmbeddingMismatch)
		fmt.Printf("Orphan records:      %v\n", report.OrphanRecords)
	}
	if !report.Consistent() {
		return fmt.Errorf("index and identity store disagree")
	}
	if !mustGetBool(cmd, "json") {
		fmt.Println("\nIndex and identity store are consistent")
	}
	return nil
}

func runIndexRebuild(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := newApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	before := a.index.Len()
	n, err := a.resolver.Rebuild(ctx, mustGetInt(cmd, "count"))
	if err != nil {
		return fmt.Errorf("rebuild failed: %w", err)
	}
	fmt.Printf("Rebuilt index with %d identities (was %d)\n", n, before)
	return nil
}
