package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/stratoforge/stratoctl/pkg/options"
)

// registerOptionFlags declares one cobra flag per option key, typed from
// the option table. Flag names are the key strings, so help output and
// error messages line up with what validation reports.
func registerOptionFlags(cmd *cobra.Command, keys []options.Key) {
	for _, key := range keys {
		rule, ok := options.Rules[key]
		if !ok {
			panic(fmt.Sprintf("unknown option key %q", key))
		}

		name := string(key)
		usage := flagUsage(key, rule)

		switch rule.Kind {
		case options.KindString, options.KindEnum:
			cmd.Flags().String(name, "", usage)
		case options.KindStringList:
			cmd.Flags().StringSlice(name, nil, usage)
		case options.KindBool:
			cmd.Flags().Bool(name, false, usage)
		case options.KindInt:
			cmd.Flags().Int(name, 0, usage)
		}
	}
}

// collectOptions copies every explicitly set flag into an option set.
// Flags left at their defaults are not recorded, so defaulting stays
// with the provider.
func collectOptions(cmd *cobra.Command, keys []options.Key) (options.ResourceOptions, error) {
	opts := options.New()

	for _, key := range keys {
		name := string(key)
		if !cmd.Flags().Changed(name) {
			continue
		}

		rule := options.Rules[key]
		switch rule.Kind {
		case options.KindString, options.KindEnum:
			v, err := cmd.Flags().GetString(name)
			if err != nil {
				return opts, err
			}
			if rule.Kind == options.KindEnum {
				opts.SetEnum(key, v)
			} else {
				opts.SetString(key, v)
			}
		case options.KindStringList:
			v, err := cmd.Flags().GetStringSlice(name)
			if err != nil {
				return opts, err
			}
			opts.SetStringList(key, v)
		case options.KindBool:
			v, err := cmd.Flags().GetBool(name)
			if err != nil {
				return opts, err
			}
			opts.SetBool(key, v)
		case options.KindInt:
			v, err := cmd.Flags().GetInt(name)
			if err != nil {
				return opts, err
			}
			opts.SetInt(key, v)
		}
	}

	return opts, nil
}

// flagUsage derives help text from the option table.
func flagUsage(key options.Key, rule options.Rule) string {
	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(string(key), "-", " "))
	if len(rule.EnumValues) > 0 {
		sb.WriteString(" (one of: ")
		sb.WriteString(strings.Join(rule.EnumValues, ", "))
		sb.WriteString(")")
	}
	switch rule.MinChannel {
	case options.ChannelBeta:
		sb.WriteString(" (beta and alpha channels)")
	case options.ChannelAlpha:
		sb.WriteString(" (alpha channel only)")
	}
	return sb.String()
}
