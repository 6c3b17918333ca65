package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/stratoforge/stratoctl/pkg/options"
	"github.com/stratoforge/stratoctl/pkg/request"
)

// ruleOptionKeys lists every option the rules update command exposes.
var ruleOptionKeys = []options.Key{
	options.KeyAction,
	options.KeyDirection,
	options.KeySrcIPRanges,
	options.KeyDestIPRanges,
	options.KeyLayer4Configs,
	options.KeyEnableLogging,
	options.KeyDisabled,
	options.KeyTargetResources,
	options.KeyDescription,
	options.KeyNewPriority,
	options.KeyEtag,
	options.KeySrcRegionCodes,
	options.KeyDestRegionCodes,
	options.KeySrcFQDNs,
	options.KeyDestFQDNs,
	options.KeySecurityGroup,
}

func newFirewallPoliciesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "firewall-policies",
		Short: "Manage firewall policies",
	}

	rules := &cobra.Command{
		Use:   "rules",
		Short: "Manage firewall policy rules",
	}
	rules.AddCommand(newRulesUpdateCommand())
	cmd.AddCommand(rules)

	return cmd
}

func newRulesUpdateCommand() *cobra.Command {
	var (
		async         bool
		timeout       time.Duration
		skipPreflight bool
	)

	cmd := &cobra.Command{
		Use:   "update POLICY PRIORITY",
		Short: "Update a firewall policy rule",
		Long: `Update the rule at PRIORITY in the firewall policy POLICY.

Only explicitly set options are sent; everything else keeps its current
value on the rule. Pass --etag with the value from a prior describe for
optimistic concurrency: the provider rejects the update with a conflict
if the rule changed in between.`,
		Example: `  # Block an address range
  stratoctl firewall-policies rules update corp-policy 1000 \
    --action deny --direction INGRESS --src-ip-ranges 203.0.113.0/24

  # Re-number a rule, guarding against concurrent edits
  stratoctl firewall-policies rules update corp-policy 1000 \
    --new-priority 900 --etag tag-8f3a`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			policyID := args[0]
			priority, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("priority must be an integer: %q", args[1])
			}

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

			opts, err := collectOptions(cmd, ruleOptionKeys)
			if err != nil {
				return err
			}
			if opts.Len() == 0 {
				return fmt.Errorf("nothing to update; set at least one rule option")
			}

			req, advisories, err := request.FirewallRuleUpdate(policyID, priority, opts, a.channel, scope)
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

	registerOptionFlags(cmd, ruleOptionKeys)
	cmd.Flags().BoolVar(&async, "async", false, "return after submission without waiting")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "how long to wait for the operation")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "skip local policy checks")

	return cmd
}
