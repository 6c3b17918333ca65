package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/cache"
	"github.com/stratoforge/stratoctl/pkg/lro"
)

func newOperationsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "operations",
		Short: "Inspect and wait on operations",
	}

	cmd.AddCommand(newOperationsListCommand())
	cmd.AddCommand(newOperationsDescribeCommand())
	cmd.AddCommand(newOperationsWaitCommand())

	return cmd
}

func newOperationsListCommand() *cobra.Command {
	var (
		limit int
		all   bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List locally tracked operations",
		Long: `List operations submitted from this machine, newest first.

The list comes from the local operation cache, so it covers what this
CLI submitted, not every operation in the project.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			store, err := a.openCache(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			project := a.cfg.Project
			if all {
				project = ""
			}

			records, err := store.ListOperations(ctx, project, limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(records)
			}

			if len(records) == 0 {
				fmt.Println("No tracked operations.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tTARGET\tSTATUS\tSTARTED")
			for _, rec := range records {
				fmt.Fprintf(w, "%s\t%s/%s\t%s\t%s\n",
					rec.Name, rec.ResourceType, rec.ResourceName, rec.Status,
					rec.CreatedAt.Local().Format(time.RFC3339))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum operations to list")
	cmd.Flags().BoolVar(&all, "all", false, "list operations across all projects")

	return cmd
}

func newOperationsDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe NAME",
		Short: "Show the current state of an operation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			ref, err := a.resolveRef(ctx, name)
			if err != nil {
				return err
			}

			resp, err := a.transport.Send(ctx, "GET", ref.Path(), nil)
			if err != nil {
				return err
			}
			if !resp.OK() {
				return fmt.Errorf("failed to fetch operation %s: HTTP %d", name, resp.StatusCode)
			}

			var op api.Operation
			if err := json.Unmarshal(resp.Body, &op); err != nil {
				return fmt.Errorf("failed to decode operation: %w", err)
			}
			a.cacheOperation(ctx, ref, &op)

			return printOperation(&op)
		},
	}

	return cmd
}

func newOperationsWaitCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "wait NAME",
		Short: "Wait for an operation to reach a terminal state",
		Long: `Poll an operation until it completes, then fetch the resource it
produced. This re-attaches to operations submitted earlier with --async
or from another invocation on this machine.`,
		Example: `  stratoctl operations wait operation-1a2b3c`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			ref, err := a.resolveRef(ctx, name)
			if err != nil {
				return err
			}

			op, err := a.awaitOp(ctx, ref, timeout)
			if err != nil {
				return err
			}

			result, err := a.resolveOp(ctx, op)
			if err != nil {
				return err
			}
			for _, w := range result.Warnings {
				a.logger.Warn().Msg(w)
			}

			return printResource(result.Resource)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "how long to wait for the operation")

	return cmd
}

// resolveRef rebuilds an operation reference, preferring the cached
// record since it knows the API version the operation was submitted
// under. Without a cache hit the current scope and channel apply.
func (a *app) resolveRef(ctx context.Context, name string) (*lro.OperationRef, error) {
	store, err := a.openCache(ctx)
	if err == nil {
		defer store.Close()
		rec, err := store.GetOperation(ctx, name)
		if err == nil {
			return &lro.OperationRef{
				Name:         rec.Name,
				Scope:        api.Scope{Project: rec.Project, Location: rec.Location},
				APIVersion:   rec.APIVersion,
				SubmissionID: rec.SubmissionID,
				ResourceType: rec.ResourceType,
				ResourceName: rec.ResourceName,
			}, nil
		}
		if !errors.Is(err, cache.ErrNotFound) {
			return nil, err
		}
	} else {
		a.logger.Warn().Err(err).Msg("Failed to open operation cache")
	}

	scope, err := a.scope()
	if err != nil {
		return nil, err
	}
	return &lro.OperationRef{
		Name:       name,
		Scope:      scope,
		APIVersion: a.channel.APIVersion(),
	}, nil
}

// printOperation writes an operation to stdout, honoring --json.
func printOperation(op *api.Operation) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(op)
	}

	fmt.Printf("Name:    %s\n", op.Name)
	fmt.Printf("Type:    %s\n", op.OperationType)
	fmt.Printf("Status:  %s\n", op.Status)
	if op.Detail != "" {
		fmt.Printf("Detail:  %s\n", op.Detail)
	}
	if op.TargetLink != "" {
		fmt.Printf("Target:  %s\n", op.TargetLink)
	}
	if op.Error != nil {
		fmt.Printf("Error:   %s\n", op.Error.Message)
	}
	return nil
}
