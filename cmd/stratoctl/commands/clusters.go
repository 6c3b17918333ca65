package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/manifest"
	"github.com/stratoforge/stratoctl/pkg/options"
	"github.com/stratoforge/stratoctl/pkg/request"
)

// clusterOptionKeys lists every option the create command exposes.
// Channel gating happens at build time, not at flag registration, so
// the same flag set serves all three channels.
var clusterOptionKeys = []options.Key{
	options.KeyNodeCount,
	options.KeyMachineType,
	options.KeyImageType,
	options.KeyDiskSizeGB,
	options.KeyNetwork,
	options.KeySubnetwork,
	options.KeyCreateSubnetwork,
	options.KeyNodeLocations,
	options.KeyAdditionalZones,
	options.KeyLabels,
	options.KeyClusterCIDR,
	options.KeyEnableIPAlias,
	options.KeyEnablePrivateNodes,
	options.KeyAuthorizedNetworks,
	options.KeyEnableDataplaneV2,
	options.KeyNotificationTopic,
	options.KeySecurityProfile,
	options.KeyEnableWorkloadDebug,
}

func newClustersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clusters",
		Short: "Manage clusters",
	}

	cmd.AddCommand(newClustersCreateCommand())
	cmd.AddCommand(newClustersDescribeCommand())

	return cmd
}

func newClustersCreateCommand() *cobra.Command {
	var (
		manifestPath  string
		async         bool
		timeout       time.Duration
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a cluster",
		Long: `Create a cluster and wait for the operation to complete.

Options may come from flags, from a CUE manifest (--manifest), or both;
flags win when the same option appears in both places. Only explicitly
set options are sent, so provider defaults apply to everything else.

With --async the command returns the operation name immediately after
submission; re-attach later with "stratoctl operations wait".`,
		Example: `  # Create with flags
  stratoctl clusters create api-cluster --num-nodes 3 --machine-type n2-standard-4

  # Create from a manifest, beta channel
  stratoctl clusters create api-cluster --manifest cluster.cue --channel beta

  # Submit and return immediately
  stratoctl clusters create api-cluster --async`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
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

			opts := options.New()
			if manifestPath != "" {
				manifestName, manifestOpts, err := manifest.NewParser().ParseFile(manifestPath)
				if err != nil {
					return err
				}
				if manifestName != name {
					return fmt.Errorf("manifest names cluster %q but %q was given on the command line", manifestName, name)
				}
				opts = manifestOpts
			}
			flagOpts, err := collectOptions(cmd, clusterOptionKeys)
			if err != nil {
				return err
			}
			for _, key := range flagOpts.Keys() {
				copyOption(&opts, flagOpts, key)
			}

			req, advisories, err := request.ClusterCreate(name, opts, a.channel, scope)
			if err != nil {
				return err
			}
			for _, adv := range advisories {
				a.logger.Warn().Msg(string(adv))
			}

			if err := a.runPreflight(ctx, req, skipPreflight); err != nil {
				return err
			}

			ref, err := a.submitOp(ctx, req)
			if err != nil {
				return err
			}

			if async {
				fmt.Printf("Operation %s submitted. Wait for it with:\n  stratoctl operations wait %s\n", ref.Name, ref.Name)
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

			return printResource(result.Resource)
		},
	}

	registerOptionFlags(cmd, clusterOptionKeys)
	cmd.Flags().StringVarP(&manifestPath, "manifest", "m", "", "CUE manifest file with cluster options")
	cmd.Flags().BoolVar(&async, "async", false, "return after submission without waiting")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Minute, "how long to wait for the operation")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip local policy checks")

	return cmd
}

func newClustersDescribeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe NAME",
		Short: "Describe a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
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

			path := scope.Path(a.channel.APIVersion()) + "/clusters/" + name
			resp, err := a.transport.Send(ctx, "GET", path, nil)
			if err != nil {
				return err
			}
			if !resp.OK() {
				return fmt.Errorf("failed to fetch cluster %s: HTTP %d", name, resp.StatusCode)
			}

			var resource api.Resource
			if err := json.Unmarshal(resp.Body, &resource); err != nil {
				return fmt.Errorf("failed to decode cluster: %w", err)
			}
			return printResource(&resource)
		},
	}

	return cmd
}

// copyOption moves one option between sets preserving its kind.
func copyOption(dst *options.ResourceOptions, src options.ResourceOptions, key options.Key) {
	rule := options.Rules[key]
	switch rule.Kind {
	case options.KindString:
		if v, ok := src.String(key); ok {
			dst.SetString(key, v)
		}
	case options.KindEnum:
		if v, ok := src.String(key); ok {
			dst.SetEnum(key, v)
		}
	case options.KindStringList:
		if v, ok := src.StringList(key); ok {
			dst.SetStringList(key, v)
		}
	case options.KindBool:
		if v, ok := src.Bool(key); ok {
			dst.SetBool(key, v)
		}
	case options.KindInt:
		if v, ok := src.Int(key); ok {
			dst.SetInt(key, v)
		}
	}
}

// printResource writes a resource to stdout, honoring --json.
func printResource(r *api.Resource) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Printf("Name:     %s\n", r.Name)
	if r.Location != "" {
		fmt.Printf("Location: %s\n", r.Location)
	}
	if r.Status != "" {
		fmt.Printf("Status:   %s\n", r.Status)
	}
	if r.SelfLink != "" {
		fmt.Printf("Link:     %s\n", r.SelfLink)
	}
	return nil
}
