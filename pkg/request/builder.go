// Package request translates a validated option set into a provider
// request payload for the active release channel. Building is a pure
// transformation: identical options and channel always produce a
// structurally identical request, and nothing here touches the network.
package request

import (
	"fmt"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/lro"
	"github.com/stratoforge/stratoctl/pkg/options"
)

// validateOptions applies the option table to an explicitly-set option
// set: value kinds, mutually exclusive pairs, and channel gating. Options
// the channel lacks fail only when explicitly set; unset options are
// simply absent from the built request.
func validateOptions(opts options.ResourceOptions, channel options.ReleaseChannel) error {
	if err := opts.Validate(); err != nil {
		return err
	}

	for _, pair := range options.Conflicts {
		if opts.IsSet(pair[0]) && opts.IsSet(pair[1]) {
			return lro.NewConflictingOptions(string(pair[0]), string(pair[1]))
		}
	}

	for _, k := range opts.Keys() {
		if !options.SupportedIn(k, channel) {
			return lro.NewUnsupportedOption(string(k), channel.String())
		}
	}

	return nil
}

// parseLabels converts "key=value" pairs into a map.
func parseLabels(pairs []string) (map[string]string, error) {
	labels := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid label %q (expected key=value)", pair)
		}
		labels[k] = v
	}
	return labels, nil
}

// parseLayer4Configs converts "protocol[:port,port]" entries into matcher
// configs.
func parseLayer4Configs(entries []string) ([]api.Layer4Config, error) {
	configs := make([]api.Layer4Config, 0, len(entries))
	for _, entry := range entries {
		proto, ports, hasPorts := strings.Cut(entry, ":")
		if proto == "" {
			return nil, fmt.Errorf("invalid layer4 config %q", entry)
		}
		cfg := api.Layer4Config{Protocol: proto}
		if hasPorts && ports != "" {
			cfg.Ports = strings.Split(ports, ",")
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// ClusterCreate builds the cluster-creation request for the channel. The
// returned advisories describe consequences of the chosen configuration
// and are the caller's to display.
func ClusterCreate(name string, opts options.ResourceOptions, channel options.ReleaseChannel, scope api.Scope) (*api.PreparedRequest, []Advisory, error) {
	if name == "" {
		return nil, nil, fmt.Errorf("cluster name is required")
	}
	if err := validateOptions(opts, channel); err != nil {
		return nil, nil, err
	}

	common, advisories, err := buildClusterCommon(name, opts)
	if err != nil {
		return nil, nil, err
	}

	var body any
	switch channel {
	case options.ChannelBeta:
		req := api.CreateClusterRequestBeta{ClusterCreateCommon: common}
		applyClusterBeta(&req.EnableDataplaneV2, &req.NotificationTopic, opts)
		body = req
	case options.ChannelAlpha:
		req := api.CreateClusterRequestAlpha{ClusterCreateCommon: common}
		applyClusterBeta(&req.EnableDataplaneV2, &req.NotificationTopic, opts)
		if v, ok := opts.String(options.KeySecurityProfile); ok {
			req.SecurityProfile = v
		}
		if v, ok := opts.Bool(options.KeyEnableWorkloadDebug); ok {
			req.EnableWorkloadDebug = boolPtr(v)
		}
		body = req
	default:
		body = api.CreateClusterRequestGA{ClusterCreateCommon: common}
	}

	return &api.PreparedRequest{
		Method:       http.MethodPost,
		Path:         path.Join(scope.Path(channel.APIVersion()), "clusters"),
		Body:         body,
		Scope:        scope,
		APIVersion:   channel.APIVersion(),
		ResourceType: "cluster",
		ResourceName: name,
	}, advisories, nil
}

// buildClusterCommon populates the field set shared by all channel
// variants from the explicitly-set options.
func buildClusterCommon(name string, opts options.ResourceOptions) (api.ClusterCreateCommon, []Advisory, error) {
	var common api.ClusterCreateCommon
	var advisories []Advisory

	common.Name = name

	if v, ok := opts.String(options.KeyNetwork); ok {
		common.Network = v
	}
	if v, ok := opts.String(options.KeySubnetwork); ok {
		common.Subnetwork = v
	}
	if v, ok := opts.String(options.KeyCreateSubnetwork); ok {
		common.CreateSubnetwork = &api.SubnetworkSpec{Name: v}
	}
	if v, ok := opts.String(options.KeyClusterCIDR); ok {
		common.ClusterIPv4CIDR = v
	}
	if v, ok := opts.Bool(options.KeyEnableIPAlias); ok {
		common.EnableIPAlias = boolPtr(v)
		if v {
			advisories = append(advisories, advisoryIPAliasSizing)
		}
	}

	locations, locSet := opts.StringList(options.KeyNodeLocations)
	if !locSet {
		// additional-zones is the deprecated spelling of node-locations.
		locations, locSet = opts.StringList(options.KeyAdditionalZones)
	}
	if locSet {
		common.NodeLocations = locations
	}

	nodeCount, countSet := opts.Int(options.KeyNodeCount)
	machineType, machineSet := opts.String(options.KeyMachineType)
	imageType, imageSet := opts.String(options.KeyImageType)
	diskSize, diskSet := opts.Int(options.KeyDiskSizeGB)
	if countSet || machineSet || imageSet || diskSet {
		common.NodePool = &api.NodePoolSpec{
			NodeCount:   nodeCount,
			MachineType: machineType,
			ImageType:   imageType,
			DiskSizeGB:  diskSize,
		}
	}

	if pairs, ok := opts.StringList(options.KeyLabels); ok {
		labels, err := parseLabels(pairs)
		if err != nil {
			return common, nil, err
		}
		common.ResourceLabels = labels
	}

	privateNodes, privateSet := opts.Bool(options.KeyEnablePrivateNodes)
	networks, networksSet := opts.StringList(options.KeyAuthorizedNetworks)
	if privateSet || networksSet {
		common.PrivateCluster = &api.PrivateClusterSpec{
			EnablePrivateNodes: privateSet && privateNodes,
			AuthorizedNetworks: networks,
		}
		if privateSet && privateNodes && !networksSet {
			advisories = append(advisories, advisoryPrivateNoAccess)
		}
	}

	return common, advisories, nil
}

// applyClusterBeta fills the fields shared by the Beta and Alpha variants.
func applyClusterBeta(dataplane **bool, topic *string, opts options.ResourceOptions) {
	if v, ok := opts.Bool(options.KeyEnableDataplaneV2); ok {
		*dataplane = boolPtr(v)
	}
	if v, ok := opts.String(options.KeyNotificationTopic); ok {
		*topic = v
	}
}

// FirewallRuleUpdate builds the rule-update request for the channel. The
// priority names the rule being updated; only explicitly-set options
// appear in the payload, so unset fields are left unchanged by the
// provider.
func FirewallRuleUpdate(policyID string, priority int, opts options.ResourceOptions, channel options.ReleaseChannel, scope api.Scope) (*api.PreparedRequest, []Advisory, error) {
	if policyID == "" {
		return nil, nil, fmt.Errorf("firewall policy id is required")
	}
	if err := validateOptions(opts, channel); err != nil {
		return nil, nil, err
	}

	common, advisories, err := buildRuleCommon(priority, opts)
	if err != nil {
		return nil, nil, err
	}

	var body any
	switch channel {
	case options.ChannelBeta:
		body = api.UpdateFirewallRuleRequestBeta{FirewallRuleCommon: common}
	case options.ChannelAlpha:
		req := api.UpdateFirewallRuleRequestAlpha{FirewallRuleCommon: common}
		if v, ok := opts.String(options.KeySecurityGroup); ok {
			req.SecurityProfileGroup = v
		}
		body = req
	default:
		body = api.UpdateFirewallRuleRequestGA{FirewallRuleCommon: common}
	}

	return &api.PreparedRequest{
		Method:       http.MethodPatch,
		Path:         path.Join(scope.Path(channel.APIVersion()), "firewallPolicies", policyID, "rules", strconv.Itoa(priority)),
		Body:         body,
		Scope:        scope,
		APIVersion:   channel.APIVersion(),
		ResourceType: "firewall-rule",
		ResourceName: fmt.Sprintf("%s/%d", policyID, priority),
	}, advisories, nil
}

// buildRuleCommon populates the rule fields shared by all channels.
func buildRuleCommon(priority int, opts options.ResourceOptions) (api.FirewallRuleCommon, []Advisory, error) {
	var common api.FirewallRuleCommon
	var advisories []Advisory

	common.Priority = priority

	if v, ok := opts.String(options.KeyAction); ok {
		common.Action = v
	}
	if v, ok := opts.String(options.KeyDirection); ok {
		common.Direction = v
	}
	if v, ok := opts.String(options.KeyDescription); ok {
		common.Description = v
	}
	if v, ok := opts.String(options.KeyEtag); ok {
		common.Etag = v
	}
	if v, ok := opts.Bool(options.KeyEnableLogging); ok {
		common.EnableLogging = boolPtr(v)
		if !v {
			advisories = append(advisories, advisoryLoggingOff)
		}
	}
	if v, ok := opts.Bool(options.KeyDisabled); ok {
		common.Disabled = boolPtr(v)
	}
	if v, ok := opts.StringList(options.KeyTargetResources); ok {
		common.TargetResources = v
	}
	if v, ok := opts.Int(options.KeyNewPriority); ok {
		common.NewPriority = intPtr(v)
	}

	matcher := &api.RuleMatcher{}
	matcherSet := false
	setList := func(dst *[]string, key options.Key) {
		if v, ok := opts.StringList(key); ok {
			*dst = v
			matcherSet = true
		}
	}
	setList(&matcher.SrcIPRanges, options.KeySrcIPRanges)
	setList(&matcher.DestIPRanges, options.KeyDestIPRanges)
	setList(&matcher.SrcRegionCodes, options.KeySrcRegionCodes)
	setList(&matcher.DestRegionCodes, options.KeyDestRegionCodes)
	setList(&matcher.SrcFQDNs, options.KeySrcFQDNs)
	setList(&matcher.DestFQDNs, options.KeyDestFQDNs)
	if entries, ok := opts.StringList(options.KeyLayer4Configs); ok {
		configs, err := parseLayer4Configs(entries)
		if err != nil {
			return common, nil, err
		}
		matcher.Layer4Configs = configs
		matcherSet = true
	}
	if matcherSet {
		common.Match = matcher
	}

	return common, advisories, nil
}

// Simulation builds the violation-preview request. Simulation is an
// alpha-only surface; any other channel is rejected before a network call
// is made.
func Simulation(overlay api.PolicyOverlay, channel options.ReleaseChannel, scope api.Scope) (*api.PreparedRequest, []Advisory, error) {
	if channel != options.ChannelAlpha {
		return nil, nil, lro.NewUnsupportedOption("simulate", channel.String())
	}
	if len(overlay.Policies) == 0 && len(overlay.CustomConstraints) == 0 {
		return nil, nil, fmt.Errorf("must supply policies, custom constraints, or both")
	}

	return &api.PreparedRequest{
		Method:       http.MethodPost,
		Path:         path.Join(scope.Path(channel.APIVersion()), "violationsPreviews"),
		Body:         api.SimulateViolationsRequest{Overlay: overlay},
		Scope:        scope,
		APIVersion:   channel.APIVersion(),
		ResourceType: "violations-preview",
		ResourceName: "preview",
	}, nil, nil
}

func boolPtr(v bool) *bool { return &v }
func intPtr(v int) *int    { return &v }
