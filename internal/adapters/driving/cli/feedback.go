package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/curator/internal/core/domain"
)

var (
	feedbackUser    string
	feedbackComment string
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [chunk-id] [type]",
	Short: "Submit feedback on a chunk",
	Long: `Records a feedback signal against a chunk and updates its quality
score. Type must be one of: helpful, outdated, incorrect, confusing.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

var repromoteCmd = &cobra.Command{
	Use:   "repromote [chunk-id]",
	Short: "Restore a deprecated chunk to active",
	Long: `Moves a deprecated chunk back to the active state. This is the
only way a chunk leaves deprecation; score recovery alone never
re-promotes.`,
	Args: cobra.ExactArgs(1),
	RunE: runRepromote,
}

func init() {
	feedbackCmd.Flags().StringVarP(&feedbackUser, "user", "u", "", "identifier of the user giving feedback")
	feedbackCmd.Flags().StringVarP(&feedbackComment, "comment", "c", "", "optional free-text note")
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(repromoteCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if feedbackService == nil {
		return errors.New("feedback service not configured")
	}

	chunkID := args[0]
	ft := domain.FeedbackType(args[1])
	if !ft.IsValid() {
		return fmt.Errorf("invalid feedback type %q: must be one of helpful, outdated, incorrect, confusing", args[1])
	}

	score, err := feedbackService.SubmitFeedback(context.Background(), chunkID, feedbackUser, ft, feedbackComment)
	if err != nil {
		return fmt.Errorf("submitting feedback: %w", err)
	}

	cmd.Printf("Recorded %s feedback for %s\n", ft, chunkID)
	cmd.Printf("  Score:  %.1f\n", score.Score)
	cmd.Printf("  Status: %s\n", score.Status)
	return nil
}

func runRepromote(cmd *cobra.Command, args []string) error {
	if feedbackService == nil {
		return errors.New("feedback service not configured")
	}

	chunkID := args[0]
	if err := feedbackService.RepromoteChunk(context.Background(), chunkID); err != nil {
		return fmt.Errorf("re-promoting %s: %w", chunkID, err)
	}

	cmd.Printf("Chunk %s restored to active\n", chunkID)
	return nil
}
