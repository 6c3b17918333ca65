package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/policy"
	"github.com/stratoforge/stratoctl/pkg/request"
)

func newSimulateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate policy changes",
	}

	cmd.AddCommand(newSimulateOrgPolicyCommand())

	return cmd
}

func newSimulateOrgPolicyCommand() *cobra.Command {
	var (
		policyFiles     []string
		constraintFiles []string
		timeout         time.Duration
		async           bool
		watch           bool
		skipPreflight   bool
	)

	cmd := &cobra.Command{
		Use:   "orgpolicy",
		Short: "Preview violations a policy overlay would introduce",
		Long: `Simulate the effect of organization policy changes before applying
them. The given policy and custom constraint files form an overlay; the
provider evaluates existing resources against it and reports which ones
would violate the changed policies.

Simulation is only available on the alpha channel.

With --watch the command re-runs the simulation whenever one of the
input files changes, which suits iterating on a policy locally.`,
		Example: `  # One-shot simulation
  stratoctl simulate orgpolicy --channel alpha --policies policy.json

  # Re-run on every edit
  stratoctl simulate orgpolicy --channel alpha --policies policy.json --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			scope, err := a.scope()
			if err != nil {
				return err
			}

			run := func() error {
				overlay, err := loadOverlay(policyFiles, constraintFiles)
				if err != nil {
					return err
				}

				req, _, err := request.Simulation(overlay, a.channel, scope)
				if err != nil {
					return err
				}

				if err := a.runPreflight(ctx, req, skipPreflight); err != nil {
					return err
				}

				ref, err := a.submitOp(ctx, req)
				if err != nil {
					return err
				}

				if async {
					fmt.Printf("Simulation started: %s\n", ref.Name)
					fmt.Printf("Check it with: stratoctl operations wait %s\n", ref.Name)
					return nil
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

				var preview api.ViolationsPreview
				if err := result.Resource.Decode(&preview); err != nil {
					return fmt.Errorf("failed to decode violations preview: %w", err)
				}
				return printPreview(&preview)
			}

			if err := run(); err != nil {
				return err
			}
			if !watch {
				return nil
			}

			// A watch session is the one long-running mode this CLI
			// has, so the metrics endpoint only makes sense here.
			if addr := a.cfg.Telemetry.Metrics.ListenAddress; addr != "" {
				if _, err := a.serveMetrics(ctx, addr); err != nil {
					return err
				}
			}

			// Hot-reload operator preflight policies alongside the
			// overlay inputs while watching.
			if len(a.cfg.PolicyPaths) > 0 {
				loader := policy.NewLoader(a.logger)
				if err := loader.Watch(ctx, a.cfg.PolicyPaths, a.preflight.LoadPolicies); err != nil {
					return err
				}
				defer loader.StopWatching()
			}

			watchPaths := append(append([]string{}, policyFiles...), constraintFiles...)
			return watchAndRerun(ctx, a, watchPaths, run)
		},
	}

	cmd.Flags().StringSliceVar(&policyFiles, "policies", nil, "policy JSON files forming the overlay")
	cmd.Flags().StringSliceVar(&constraintFiles, "custom-constraints", nil, "custom constraint JSON files forming the overlay")
	cmd.Flags().DurationVar(&timeout, "timeout", 15*time.Minute, "how long to wait for the simulation")
	cmd.Flags().BoolVar(&async, "async", false, "return after submission without waiting")
	cmd.Flags().BoolVar(&watch, "watch", false, "re-run the simulation when input files change")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip local policy checks")

	return cmd
}

// watchAndRerun re-runs fn whenever one of the watched files changes.
// Events are debounced so an editor save producing several writes
// triggers one run. Blocks until the context is cancelled.
func watchAndRerun(ctx context.Context, a *app, paths []string, fn func() error) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	for _, path := range paths {
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}
	}

	a.logger.Info().Int("files", len(paths)).Msg("Watching for changes; Ctrl-C to stop")

	var rerunTimer *time.Timer
	rerunDelay := 500 * time.Millisecond

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			a.logger.Debug().Str("file", event.Name).Msg("Input file changed")

			if rerunTimer != nil {
				rerunTimer.Stop()
			}
			rerunTimer = time.AfterFunc(rerunDelay, func() {
				if err := fn(); err != nil {
					a.logger.Error().Err(err).Msg("Simulation failed")
				}
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error().Err(err).Msg("Watcher error")
		}
	}
}

// loadOverlay reads policy and constraint files into an overlay.
func loadOverlay(policyFiles, constraintFiles []string) (api.PolicyOverlay, error) {
	var overlay api.PolicyOverlay

	for _, path := range policyFiles {
		raw, err := readJSONFile(path)
		if err != nil {
			return overlay, err
		}
		overlay.Policies = append(overlay.Policies, raw)
	}
	for _, path := range constraintFiles {
		raw, err := readJSONFile(path)
		if err != nil {
			return overlay, err
		}
		overlay.CustomConstraints = append(overlay.CustomConstraints, raw)
	}

	return overlay, nil
}

func readJSONFile(path string) (json.RawMessage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", path)
	}
	return json.RawMessage(data), nil
}

// printPreview writes the simulation outcome to stdout, honoring --json.
func printPreview(p *api.ViolationsPreview) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	}

	if len(p.Violations) == 0 {
		fmt.Println("No violations found.")
		return nil
	}

	fmt.Printf("%d violation(s) found:\n", len(p.Violations))
	for _, v := range p.Violations {
		fmt.Printf("  %-40s %s", v.Resource, v.Constraint)
		if v.Message != "" {
			fmt.Printf("  (%s)", v.Message)
		}
		fmt.Println()
	}
	return nil
}
