package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
	"github.com/SAP-F-2025/login-approval-service/pkg/gateclient"
)

var (
	studentServer   string
	studentUsername string
	studentPassword string
	studentProvider string
	studentCode     string
	studentInterval time.Duration
	studentTimeout  time.Duration
)

// studentCmd talks to a running server, so it skips the server config
var studentCmd = &cobra.Command{
	Use:   "student",
	Short: "Student-side client for a running server",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelWarn
		if debug {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		return nil
	},
}

var studentLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Submit a login and wait until a professor lets you in",
	RunE: func(cmd *cobra.Command, args []string) error {
		if studentUsername == "" || studentPassword == "" {
			return fmt.Errorf("--username and --password are required")
		}
		provider := models.AuthProvider(studentProvider)
		if !provider.Valid() {
			return fmt.Errorf("unknown provider %q", studentProvider)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := []gateclient.Option{gateclient.WithLogger(logger)}
		client := gateclient.NewClient(studentServer, opts...)
		if err := client.SyncPolling(ctx); err != nil {
			logger.Warn("Using default polling contract", "error", err)
		}
		if cmd.Flags().Changed("interval") || cmd.Flags().Changed("timeout") {
			gateclient.WithPolling(studentInterval, studentTimeout)(client)
		}

		flow := &gateclient.LoginFlow{
			Username: studentUsername,
			Password: studentPassword,
			Provider: provider,
			Code:     studentCode,
			OnStep:   printStep,
		}

		err := client.RunLogin(ctx, flow)
		switch {
		case err == nil:
			color.Green("Access granted. Welcome, %s.", studentUsername)
			return nil
		case errors.Is(err, gateclient.ErrRequestRejected),
			errors.Is(err, gateclient.ErrCodeRejected),
			errors.Is(err, gateclient.ErrFinalRejected):
			color.Red("Rejected: %v", err)
		case errors.Is(err, gateclient.ErrPollTimedOut):
			color.Yellow("Gave up waiting: %v", err)
		case errors.Is(err, context.Canceled):
			color.Yellow("Cancelled")
		}
		return err
	},
}

func init() {
	flags := studentLoginCmd.Flags()
	flags.StringVar(&studentServer, "server", "http://localhost:8080", "base URL of the approval service")
	flags.StringVarP(&studentUsername, "username", "u", "", "username")
	flags.StringVarP(&studentPassword, "password", "p", "", "password")
	flags.StringVar(&studentProvider, "provider", string(models.ProviderApple), "auth provider (apple|google)")
	flags.StringVar(&studentCode, "code", "", "six digit verification code to read out to the professor")
	flags.DurationVar(&studentInterval, "interval", 2*time.Second, "poll interval, overrides the server contract")
	flags.DurationVar(&studentTimeout, "timeout", 5*time.Minute, "poll timeout, overrides the server contract")

	studentCmd.AddCommand(studentLoginCmd)
}

func printStep(s gateclient.Step) {
	line := fmt.Sprintf("[%s] %s", s.Stage, s.Status)
	if s.Message != "" {
		line += ": " + s.Message
	}
	switch s.Status {
	case "approved", "true":
		color.Green("%s", line)
	case "rejected":
		color.Red("%s", line)
	default:
		fmt.Println(line)
	}
}
