package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/curator/internal/core/domain"
)

var conflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Review detected content conflicts",
}

var conflictListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open conflicts, newest first",
	RunE:  runConflictList,
}

var conflictResolveCmd = &cobra.Command{
	Use:   "resolve [conflict-id] [resolved|dismissed]",
	Short: "Close a conflict",
	Args:  cobra.ExactArgs(2),
	RunE:  runConflictResolve,
}

func init() {
	conflictCmd.AddCommand(conflictListCmd)
	conflictCmd.AddCommand(conflictResolveCmd)
	rootCmd.AddCommand(conflictCmd)
}

func runConflictList(cmd *cobra.Command, _ []string) error {
	if conflictStore == nil {
		return errors.New("conflict store not configured")
	}

	conflicts, err := conflictStore.ListOpen(context.Background())
	if err != nil {
		return fmt.Errorf("listing conflicts: %w", err)
	}

	if len(conflicts) == 0 {
		cmd.Println("No open conflicts.")
		return nil
	}

	cmd.Printf("%d open conflict(s):\n\n", len(conflicts))
	for i := range conflicts {
		c := &conflicts[i]
		cmd.Printf("  %s\n", c.ID)
		cmd.Printf("      %s <-> %s (similarity %.2f, confidence %.2f)\n",
			c.ChunkIDA, c.ChunkIDB, c.Similarity, c.Confidence)
		if c.Summary != "" {
			cmd.Printf("      %s\n", c.Summary)
		}
		cmd.Println()
	}
	return nil
}

func runConflictResolve(cmd *cobra.Command, args []string) error {
	if conflictStore == nil {
		return errors.New("conflict store not configured")
	}

	status := domain.ConflictStatus(args[1])
	if status != domain.ConflictResolved && status != domain.ConflictDismissed {
		return fmt.Errorf("invalid status %q: must be resolved or dismissed", args[1])
	}

	if err := conflictStore.UpdateStatus(context.Background(), args[0], status); err != nil {
		return fmt.Errorf("closing conflict %s: %w", args[0], err)
	}

	cmd.Printf("Conflict %s marked %s\n", args[0], status)
	return nil
}
