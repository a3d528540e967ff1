package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var conflictChunks []string

var lifecycleCmd = &cobra.Command{
	Use:   "lifecycle",
	Short: "Run batch maintenance jobs",
	Long: `Commands for the quality lifecycle batch jobs. Each job is
single-flight: a second invocation while one is running fails fast.`,
}

var decayCmd = &cobra.Command{
	Use:   "decay",
	Short: "Apply time decay to all active quality scores",
	RunE:  runDecay,
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Move low-score and stale chunks to cold storage",
	RunE:  runArchive,
}

var obsoleteCmd = &cobra.Command{
	Use:   "obsolete",
	Short: "Flag likely-obsolete chunks for review",
	RunE:  runObsolete,
}

var conflictsCmd = &cobra.Command{
	Use:   "conflicts",
	Short: "Scan chunks for contradictions",
	RunE:  runConflicts,
}

func init() {
	conflictsCmd.Flags().StringSliceVar(&conflictChunks, "chunk", nil, "limit the scan to these chunk IDs")
	lifecycleCmd.AddCommand(decayCmd)
	lifecycleCmd.AddCommand(archiveCmd)
	lifecycleCmd.AddCommand(obsoleteCmd)
	lifecycleCmd.AddCommand(conflictsCmd)
	rootCmd.AddCommand(lifecycleCmd)
}

func runDecay(cmd *cobra.Command, _ []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	summary, err := lifecycleService.RecalculateScores(context.Background())
	if err != nil {
		return fmt.Errorf("recalculating scores: %w", err)
	}

	cmd.Println("Quality decay complete")
	printSummary(cmd, summary)
	return nil
}

func runArchive(cmd *cobra.Command, _ []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	summary, err := lifecycleService.RunArchival(context.Background())
	if err != nil {
		return fmt.Errorf("running archival: %w", err)
	}

	cmd.Println("Archival complete")
	printSummary(cmd, summary)
	return nil
}

func runObsolete(cmd *cobra.Command, _ []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	flags, err := lifecycleService.DetectObsolete(context.Background())
	if err != nil {
		return fmt.Errorf("detecting obsolete content: %w", err)
	}

	if len(flags) == 0 {
		cmd.Println("No obsolete content found.")
		return nil
	}

	cmd.Printf("Flagged %d chunk(s) for review:\n\n", len(flags))
	for i := range flags {
		f := &flags[i]
		cmd.Printf("  [%s] %s\n", f.Severity, f.ChunkID)
		cmd.Printf("      Age: %d days, quality %.1f\n", f.AgeDays, f.QualityScore)
		for _, reason := range f.Reasons {
			cmd.Printf("      - %s\n", reason)
		}
		cmd.Println()
	}
	return nil
}

func runConflicts(cmd *cobra.Command, _ []string) error {
	if lifecycleService == nil {
		return errors.New("lifecycle service not configured")
	}

	summary, err := lifecycleService.DetectConflicts(context.Background(), conflictChunks)
	if err != nil {
		return fmt.Errorf("scanning for conflicts: %w", err)
	}

	cmd.Println("Conflict scan complete")
	printSummary(cmd, summary)
	return nil
}
