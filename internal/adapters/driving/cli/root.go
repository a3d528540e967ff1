// Package cli implements the curator command-line interface.
package cli

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/core/ports/driving"
	"github.com/custodia-labs/curator/internal/core/services"
	"github.com/custodia-labs/curator/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Injected services. Commands fail with a clear error when the
// service they need was not configured at startup.
var (
	searchService    driving.SearchService
	feedbackService  driving.FeedbackService
	lifecycleService driving.LifecycleService
	ingestService    driving.IngestService
	conflictStore    driven.ConflictStore
	scheduler        *services.Scheduler
	apiHandler       http.Handler
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "curator",
	Short: "Knowledge base retrieval and quality lifecycle engine",
	Long: `Curator serves hybrid search over a chunked knowledge base and
manages the quality lifecycle of its content: feedback scoring, decay,
archival, obsolete detection and conflict scanning.`,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// Services bundles everything the commands need. Nil entries disable
// the commands that depend on them.
type Services struct {
	Search    driving.SearchService
	Feedback  driving.FeedbackService
	Lifecycle driving.LifecycleService
	Ingest    driving.IngestService
	Conflicts driven.ConflictStore
	Scheduler *services.Scheduler
	API       http.Handler
}

// Setup injects the service implementations used by the commands.
func Setup(s Services) {
	searchService = s.Search
	feedbackService = s.Feedback
	lifecycleService = s.Lifecycle
	ingestService = s.Ingest
	conflictStore = s.Conflicts
	scheduler = s.Scheduler
	apiHandler = s.API
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
