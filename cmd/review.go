package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/SAP-F-2025/login-approval-service/internal/models"
)

var reviewMessage string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review login requests from the terminal",
	Long: `review works directly against the configured store, the same way the
professor dashboard does through the API.`,
}

var reviewListCmd = &cobra.Command{
	Use:       "list [pending|approved|rejected|codes|final]",
	Short:     "List requests, codes or final verifications",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"pending", "approved", "rejected", "codes", "final"},
	RunE: func(cmd *cobra.Command, args []string) error {
		what := "pending"
		if len(args) == 1 {
			what = args[0]
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			review := a.services.Review()
			switch what {
			case "pending":
				rows, err := review.ListPending(ctx)
				if err != nil {
					return err
				}
				table := newTable("ID", "Username", "Provider", "Code", "Created")
				for _, r := range rows {
					table.Append([]string{strconv.FormatUint(uint64(r.ID), 10), r.Username, string(r.AuthProvider), deref(r.Code), formatTime(&r.CreatedAt)})
				}
				table.Render()
			case "approved", "rejected":
				list := review.ListApproved
				if what == "rejected" {
					list = review.ListRejected
				}
				rows, err := list(ctx)
				if err != nil {
					return err
				}
				table := newTable("ID", "Username", "Provider", "Status", "Code", "Processed")
				for _, r := range rows {
					table.Append([]string{strconv.FormatUint(uint64(r.ID), 10), r.Username, string(r.AuthProvider), string(r.Status), deref(r.VerificationCode), formatTime(r.ProcessedAt)})
				}
				table.Render()
			case "codes":
				rows, err := review.ListPendingCodes(ctx)
				if err != nil {
					return err
				}
				table := newTable("Username", "Code", "Status", "Used", "Created")
				for _, r := range rows {
					table.Append([]string{r.Username, r.Code, string(r.ValidationStatus), strconv.FormatBool(r.Used), formatTime(&r.CreatedAt)})
				}
				table.Render()
			case "final":
				rows, err := review.ListFinalVerifications(ctx, nil)
				if err != nil {
					return err
				}
				table := newTable("ID", "Username", "Status", "Created", "Processed")
				for _, r := range rows {
					table.Append([]string{strconv.FormatUint(uint64(r.ID), 10), r.Username, string(r.Status), formatTime(&r.CreatedAt), formatTime(r.ProcessedAt)})
				}
				table.Render()
			}
			return nil
		})
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <request-id> <username>",
	Short: "Approve a login request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRequestID(args[0])
		if err != nil {
			return err
		}
		req := &models.ApproveRequest{RequestID: id, Username: args[1]}
		if reviewMessage != "" {
			req.Message = &reviewMessage
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.services.Review().Approve(ctx, req)
			if err != nil {
				return err
			}
			color.Green("%s (request %d)", res.Message, res.RequestID)
			switch {
			case res.AccessGranted:
				color.Green("Access granted to %s", res.Username)
			case res.RequiresFinalVerification:
				color.Yellow("%s must complete final verification", res.Username)
			}
			return nil
		})
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <request-id> <username>",
	Short: "Reject a login request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseRequestID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.services.Review().Reject(ctx, &models.RejectRequest{RequestID: id, Username: args[1]})
			if err != nil {
				return err
			}
			color.Yellow("%s", res.Message)
			return nil
		})
	},
}

var reviewValidateCmd = &cobra.Command{
	Use:   "validate <username> <code>",
	Short: "Validate the code a student read out",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.services.Review().ValidateCode(ctx, &models.ValidateCodeRequest{Username: args[0], SubmittedCode: args[1]})
			if err != nil {
				return err
			}
			if !res.Success {
				color.Red("%s", res.Message)
				return nil
			}
			color.Green("%s", res.Message)
			return nil
		})
	},
}

var reviewFinalCmd = &cobra.Command{
	Use:       "final <approve|reject> <username>",
	Short:     "Decide a pending final verification",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"approve", "reject"},
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			req := &models.UsernameRequest{Username: args[1]}
			var (
				res *models.FinalDecisionResult
				err error
			)
			switch args[0] {
			case "approve":
				res, err = a.services.Review().ApproveFinal(ctx, req)
			case "reject":
				res, err = a.services.Review().RejectFinal(ctx, req)
			default:
				return fmt.Errorf("unknown decision %q", args[0])
			}
			if err != nil {
				return err
			}
			if res.Updated == 0 {
				color.Yellow("%s", res.Message)
				return nil
			}
			color.Green("%s (%d updated)", res.Message, res.Updated)
			return nil
		})
	},
}

var reviewGrantCmd = &cobra.Command{
	Use:   "grant <username>",
	Short: "Grant access unconditionally",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), func(ctx context.Context, a *app) error {
			res, err := a.services.Review().GrantAccess(ctx, &models.UsernameRequest{Username: args[0]})
			if err != nil {
				return err
			}
			color.Green("%s", res.Message)
			return nil
		})
	},
}

func init() {
	reviewApproveCmd.Flags().StringVarP(&reviewMessage, "message", "m", "", "message shown to the student")

	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewApproveCmd)
	reviewCmd.AddCommand(reviewRejectCmd)
	reviewCmd.AddCommand(reviewValidateCmd)
	reviewCmd.AddCommand(reviewFinalCmd)
	reviewCmd.AddCommand(reviewGrantCmd)
}

func withApp(ctx context.Context, fn func(context.Context, *app) error) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close(ctx)
	return fn(ctx, a)
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	return table
}

func parseRequestID(s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid request id %q", s)
	}
	return uint(id), nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
