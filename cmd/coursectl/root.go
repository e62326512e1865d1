package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/courseforge/backend/internal/handlers"
	authMiddleware "github.com/courseforge/backend/libs/auth/middleware"
	"github.com/spf13/cobra"
)

// EngineFactory opens the maintenance service and returns a function that releases it
type EngineFactory func(ctx context.Context) (handlers.MaintenanceService, func(), error)

// RootOptions holds global flags for all commands
type RootOptions struct {
	Format string // "json" | "text"
}

// NewRootCommand creates the coursectl root command
func NewRootCommand(factory EngineFactory) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "coursectl",
		Short: "Course structure maintenance",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.Format != "text" && opts.Format != "json" {
				return fmt.Errorf("invalid format %q: must be text or json", opts.Format)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.AddCommand(newResyncCommand(opts, factory))

	return cmd
}

func newResyncCommand(opts *RootOptions, factory EngineFactory) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "resync [courseId]",
		Short: "Recompute course counters and syllabus from the module tree",
		Long: `Recompute the lesson count, total duration and syllabus of a course
from its modules and lessons. Use --all to repair every course.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) == 1) {
				return errors.New("pass either a course ID or --all")
			}

			svc, release, err := factory(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			if all {
				return runResyncAll(cmd.Context(), svc, opts, cmd.OutOrStdout())
			}

			courseID, err := strconv.Atoi(args[0])
			if err != nil || courseID <= 0 {
				return fmt.Errorf("invalid course ID %q", args[0])
			}
			return runResyncCourse(cmd.Context(), svc, courseID, opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "resync every course")
	return cmd
}

func runResyncCourse(ctx context.Context, svc handlers.MaintenanceService, courseID int, opts *RootOptions, out io.Writer) error {
	result := svc.ResyncCourse(ctx, authMiddleware.SystemPrincipal, courseID)

	if opts.Format == "json" {
		if err := json.NewEncoder(out).Encode(result); err != nil {
			return err
		}
	} else if result.Success {
		fmt.Fprintf(out, "course %d: %d modules, %d lessons, %s\n",
			courseID, result.Stats.Modules, result.Stats.Lessons, result.Stats.Duration)
	}

	if !result.Success {
		return fmt.Errorf("course %d: %s", courseID, result.Message)
	}
	return nil
}

func runResyncAll(ctx context.Context, svc handlers.MaintenanceService, opts *RootOptions, out io.Writer) error {
	report, err := svc.ResyncAll(ctx)
	if err != nil {
		return err
	}

	if opts.Format == "json" {
		if err := json.NewEncoder(out).Encode(report); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "resynced %d of %d courses\n", report.Total-len(report.Failed), report.Total)
		ids := make([]int, 0, len(report.Failed))
		for id := range report.Failed {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		for _, id := range ids {
			fmt.Fprintf(out, "  course %d failed: %s\n", id, report.Failed[id])
		}
	}

	if len(report.Failed) > 0 {
		return fmt.Errorf("%d courses failed", len(report.Failed))
	}
	return nil
}
