package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/login-approval-service/internal/config"
	"github.com/SAP-F-2025/login-approval-service/internal/utils"
)

var (
	cfgFile string
	debug   bool

	cfg    *config.Config
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "login-approval",
	Short: "Manually gated login approval service",
	Long: `login-approval runs the approval service and the tools around it.

Students submit a login, a professor approves it out of band, and the
student's client polls until access is granted.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		if debug {
			loaded.LogLevel = slog.LevelDebug
		}
		cfg = loaded
		logger = newLogger(cfg)
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (yaml); environment variables take precedence")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(studentCmd)
}

func newLogger(cfg *config.Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))
}

// handlerLogger wraps the process logger for the HTTP layer
func handlerLogger() utils.Logger {
	return utils.NewSlogLogger(logger)
}
