package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ru-digital/product-estimator/internal/estimator"
	"github.com/ru-digital/product-estimator/internal/logging"
)

var (
	serverURL string
	verbose   bool

	client *estimator.Client
	logger *zap.Logger
)

// Execute runs the estimatorctl root command.
func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "estimatorctl",
		Short:        "Drive a product estimator session from the terminal",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = estimator.NewClient(serverURL)
			logger = zap.NewNop()
			if verbose {
				logger = logging.L()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&serverURL, "server", "http://127.0.0.1:8080", "estimator service base URL")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log component activity as JSON")

	root.AddCommand(sessionCmd(), addCmd(), variationCmd(), submitCmd())
	return root
}
