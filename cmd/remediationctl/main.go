// Package main implements remediationctl, a CLI for one-off rule-engine runs
// against the audits database.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"audit-remediation/common/logger"
	"audit-remediation/internal/assignment"
	"audit-remediation/internal/config"
	"audit-remediation/internal/service"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logLevel string
	timeout  time.Duration
	version  = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "remediationctl",
	Short: "Run remediation rule-engine operations by hand",
	Long: `remediationctl runs the remediation rule engine against the database
configured through the usual environment variables (DB_HOST, REDIS_ADDR, ...).`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall command timeout")

	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "output file (default <inspection_id>.xlsx)")

	resolveCmd.Flags().StringVar(&resolveReq.Category, "category", "", "checklist category")
	resolveCmd.Flags().StringVar(&resolveReq.LocationID, "location", "", "location id")
	resolveCmd.Flags().BoolVar(&resolveReq.IsCritical, "critical", false, "item is critical")
	resolveCmd.Flags().StringVar(&resolveReq.CreatorID, "creator", "", "creator user id")
	resolveCmd.Flags().StringVar(&resolveReq.TemplateID, "template", "", "template id")

	rootCmd.AddCommand(planCmd, escalateCmd, resolveCmd, exportCmd, probeCmd)
}

var planCmd = &cobra.Command{
	Use:   "plan <inspection_id>",
	Short: "Build the action plan of a completed inspection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *service.RemediationService) error {
			result, err := svc.ProcessInspection(ctx, args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		})
	},
}

var escalateCmd = &cobra.Command{
	Use:   "escalate",
	Short: "Run one escalation sweep over overdue action items",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *service.RemediationService) error {
			report, err := svc.RunEscalation(ctx)
			if err != nil {
				return err
			}
			for _, item := range report.Escalated {
				fmt.Printf("escalated %s -> %s\n", item.ActionItemID, deref(item.EscalatedTo))
			}
			for _, itemErr := range report.Errors {
				fmt.Fprintf(os.Stderr, "error: %v\n", itemErr)
			}
			fmt.Printf("candidates=%d escalated=%d skipped=%d errors=%d\n",
				report.Candidates, len(report.Escalated), report.Skipped, len(report.Errors))
			return nil
		})
	},
}

var resolveReq assignment.Request

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Show who an action item would be assigned to",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *service.RemediationService) error {
			a := svc.ResolveAssignee(ctx, resolveReq)
			if a == nil {
				return fmt.Errorf("no assignee found")
			}
			return printJSON(a)
		})
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <inspection_id>",
	Short: "Write an inspection's action plan to an XLSX file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := exportOut
		if out == "" {
			out = args[0] + ".xlsx"
		}
		return withService(func(ctx context.Context, svc *service.RemediationService) error {
			data, err := svc.ExportPlan(ctx, args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			fmt.Printf("wrote %s\n", out)
			return nil
		})
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Report optional schema features",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(func(ctx context.Context, svc *service.RemediationService) error {
			return printJSON(svc.Capabilities())
		})
	},
}

func withService(fn func(ctx context.Context, svc *service.RemediationService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.NewLogger(logLevel, "console", "remediationctl")
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	svc, err := service.NewRemediationService(ctx, cfg, log)
	if err != nil {
		log.Error("Failed to create remediation service", zap.Error(err))
		return err
	}
	defer svc.Stop()

	return fn(ctx, svc)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
