package request

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/stratoforge/stratoctl/pkg/api"
	"github.com/stratoforge/stratoctl/pkg/lro"
	"github.com/stratoforge/stratoctl/pkg/options"
)

var testScope = api.Scope{Project: "demo-project", Location: "us-central1"}

// bodyMap encodes a prepared request's body and decodes it back into a
// generic map so tests can assert on field presence.
func bodyMap(t *testing.T, req *api.PreparedRequest) map[string]any {
	t.Helper()
	raw, err := req.EncodeBody()
	if err != nil {
		t.Fatalf("EncodeBody: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	return m
}

func hasAdvisory(advisories []Advisory, want Advisory) bool {
	for _, a := range advisories {
		if a == want {
			return true
		}
	}
	return false
}

func TestClusterCreateMinimal(t *testing.T) {
	req, advisories, err := ClusterCreate("prod-api", options.New(), options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("ClusterCreate: %v", err)
	}
	if req.Method != http.MethodPost {
		t.Errorf("method = %q, want POST", req.Method)
	}
	if want := "/v1/projects/demo-project/locations/us-central1/clusters"; req.Path != want {
		t.Errorf("path = %q, want %q", req.Path, want)
	}
	if req.APIVersion != "v1" {
		t.Errorf("apiVersion = %q, want v1", req.APIVersion)
	}
	if req.ResourceType != "cluster" || req.ResourceName != "prod-api" {
		t.Errorf("resource = %s/%s, want cluster/prod-api", req.ResourceType, req.ResourceName)
	}
	if len(advisories) != 0 {
		t.Errorf("advisories = %v, want none", advisories)
	}

	body := bodyMap(t, req)
	if body["name"] != "prod-api" {
		t.Errorf("body name = %v", body["name"])
	}
	// Unset options must be absent, not zero-valued.
	for _, field := range []string{"network", "nodePool", "privateClusterConfig", "resourceLabels"} {
		if _, present := body[field]; present {
			t.Errorf("unset field %q present in body", field)
		}
	}
}

func TestClusterCreateRequiresName(t *testing.T) {
	if _, _, err := ClusterCreate("", options.New(), options.ChannelGA, testScope); err == nil {
		t.Fatal("expected error for empty name")
	}
}

func TestClusterCreateDeterministic(t *testing.T) {
	opts := options.New()
	opts.SetInt(options.KeyNodeCount, 3)
	opts.SetString(options.KeyMachineType, "n2-standard-4")
	opts.SetStringList(options.KeyLabels, []string{"env=prod", "team=platform"})

	first, _, err := ClusterCreate("prod-api", opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("first build: %v", err)
	}
	second, _, err := ClusterCreate("prod-api", opts.Clone(), options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("second build: %v", err)
	}
	a, _ := first.EncodeBody()
	b, _ := second.EncodeBody()
	if string(a) != string(b) {
		t.Errorf("bodies differ:\n%s\n%s", a, b)
	}
}

func TestClusterCreateConflicts(t *testing.T) {
	tests := []struct {
		name string
		set  func(*options.ResourceOptions)
	}{
		{
			name: "subnetwork_vs_create",
			set: func(o *options.ResourceOptions) {
				o.SetString(options.KeySubnetwork, "existing")
				o.SetString(options.KeyCreateSubnetwork, "fresh")
			},
		},
		{
			name: "locations_vs_zones",
			set: func(o *options.ResourceOptions) {
				o.SetStringList(options.KeyNodeLocations, []string{"us-central1-a"})
				o.SetStringList(options.KeyAdditionalZones, []string{"us-central1-b"})
			},
		},
		{
			name: "cidr_vs_ip_alias",
			set: func(o *options.ResourceOptions) {
				o.SetString(options.KeyClusterCIDR, "10.0.0.0/14")
				o.SetBool(options.KeyEnableIPAlias, true)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := options.New()
			tt.set(&opts)
			_, _, err := ClusterCreate("prod-api", opts, options.ChannelGA, testScope)
			if !lro.IsConflictingOptions(err) {
				t.Fatalf("err = %v, want conflicting-options", err)
			}
		})
	}
}

func TestClusterCreateChannelGating(t *testing.T) {
	betaOpts := options.New()
	betaOpts.SetBool(options.KeyEnableDataplaneV2, true)
	if _, _, err := ClusterCreate("prod-api", betaOpts, options.ChannelGA, testScope); !lro.IsUnsupportedOption(err) {
		t.Errorf("beta option on ga: err = %v, want unsupported-option", err)
	}

	alphaOpts := options.New()
	alphaOpts.SetString(options.KeySecurityProfile, "restricted")
	if _, _, err := ClusterCreate("prod-api", alphaOpts, options.ChannelBeta, testScope); !lro.IsUnsupportedOption(err) {
		t.Errorf("alpha option on beta: err = %v, want unsupported-option", err)
	}

	// Higher channels accept the whole lower surface.
	if _, _, err := ClusterCreate("prod-api", betaOpts, options.ChannelAlpha, testScope); err != nil {
		t.Errorf("beta option on alpha: %v", err)
	}
}

func TestClusterCreateChannelBodies(t *testing.T) {
	opts := options.New()
	opts.SetBool(options.KeyEnableDataplaneV2, true)
	opts.SetString(options.KeyNotificationTopic, "projects/demo/topics/ops")
	opts.SetString(options.KeySecurityProfile, "restricted")
	opts.SetBool(options.KeyEnableWorkloadDebug, true)

	req, _, err := ClusterCreate("prod-api", opts, options.ChannelAlpha, testScope)
	if err != nil {
		t.Fatalf("alpha build: %v", err)
	}
	if req.APIVersion != "v1alpha1" {
		t.Errorf("apiVersion = %q, want v1alpha1", req.APIVersion)
	}
	body := bodyMap(t, req)
	for _, field := range []string{"datapathV2", "notificationConfig", "securityProfile", "workloadDebuggingEnabled"} {
		if _, present := body[field]; !present {
			t.Errorf("alpha body missing %q", field)
		}
	}

	betaOpts := options.New()
	betaOpts.SetBool(options.KeyEnableDataplaneV2, true)
	betaReq, _, err := ClusterCreate("prod-api", betaOpts, options.ChannelBeta, testScope)
	if err != nil {
		t.Fatalf("beta build: %v", err)
	}
	if !strings.HasPrefix(betaReq.Path, "/v1beta1/") {
		t.Errorf("beta path = %q", betaReq.Path)
	}
	if _, present := bodyMap(t, betaReq)["datapathV2"]; !present {
		t.Error("beta body missing datapathV2")
	}
}

func TestClusterCreateNodePool(t *testing.T) {
	opts := options.New()
	opts.SetInt(options.KeyNodeCount, 5)
	opts.SetString(options.KeyImageType, "cos")

	req, _, err := ClusterCreate("prod-api", opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("ClusterCreate: %v", err)
	}
	body := bodyMap(t, req)
	pool, ok := body["nodePool"].(map[string]any)
	if !ok {
		t.Fatalf("nodePool = %T, want object", body["nodePool"])
	}
	if pool["initialNodeCount"] != float64(5) || pool["imageType"] != "cos" {
		t.Errorf("nodePool = %v", pool)
	}
}

func TestClusterCreateZonesFallback(t *testing.T) {
	opts := options.New()
	opts.SetStringList(options.KeyAdditionalZones, []string{"us-central1-b", "us-central1-c"})

	req, _, err := ClusterCreate("prod-api", opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("ClusterCreate: %v", err)
	}
	locs, ok := bodyMap(t, req)["locations"].([]any)
	if !ok || len(locs) != 2 {
		t.Fatalf("locations = %v", bodyMap(t, req)["locations"])
	}
	if locs[0] != "us-central1-b" {
		t.Errorf("locations[0] = %v", locs[0])
	}
}

func TestClusterCreateAdvisories(t *testing.T) {
	opts := options.New()
	opts.SetBool(options.KeyEnablePrivateNodes, true)
	opts.SetBool(options.KeyEnableIPAlias, true)

	_, advisories, err := ClusterCreate("prod-api", opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("ClusterCreate: %v", err)
	}
	if !hasAdvisory(advisories, advisoryPrivateNoAccess) {
		t.Error("missing private-cluster advisory")
	}
	if !hasAdvisory(advisories, advisoryIPAliasSizing) {
		t.Error("missing ip-alias advisory")
	}

	// Authorized networks silence the private-cluster advisory.
	opts.SetStringList(options.KeyAuthorizedNetworks, []string{"203.0.113.0/24"})
	_, advisories, err = ClusterCreate("prod-api", opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("ClusterCreate: %v", err)
	}
	if hasAdvisory(advisories, advisoryPrivateNoAccess) {
		t.Error("private-cluster advisory present despite authorized networks")
	}
}

func TestClusterCreateBadLabels(t *testing.T) {
	opts := options.New()
	opts.SetStringList(options.KeyLabels, []string{"missing-separator"})
	if _, _, err := ClusterCreate("prod-api", opts, options.ChannelGA, testScope); err == nil {
		t.Fatal("expected label parse error")
	}
}

func TestFirewallRuleUpdate(t *testing.T) {
	opts := options.New()
	opts.SetEnum(options.KeyAction, "deny")
	opts.SetString(options.KeyEtag, "abc123")
	opts.SetInt(options.KeyNewPriority, 900)
	opts.SetStringList(options.KeySrcIPRanges, []string{"10.0.0.0/8"})
	opts.SetStringList(options.KeyLayer4Configs, []string{"tcp:443,8443", "icmp"})

	req, _, err := FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("FirewallRuleUpdate: %v", err)
	}
	if req.Method != http.MethodPatch {
		t.Errorf("method = %q, want PATCH", req.Method)
	}
	if want := "/v1/projects/demo-project/locations/us-central1/firewallPolicies/corp-policy/rules/1000"; req.Path != want {
		t.Errorf("path = %q, want %q", req.Path, want)
	}
	if req.ResourceName != "corp-policy/1000" {
		t.Errorf("resourceName = %q", req.ResourceName)
	}

	body := bodyMap(t, req)
	if body["action"] != "deny" || body["etag"] != "abc123" || body["newPriority"] != float64(900) {
		t.Errorf("body = %v", body)
	}
	match, ok := body["match"].(map[string]any)
	if !ok {
		t.Fatalf("match = %T, want object", body["match"])
	}
	configs, ok := match["layer4Configs"].([]any)
	if !ok || len(configs) != 2 {
		t.Fatalf("layer4Configs = %v", match["layer4Configs"])
	}
	first := configs[0].(map[string]any)
	if first["ipProtocol"] != "tcp" {
		t.Errorf("first config = %v", first)
	}
}

func TestFirewallRuleUpdateRequiresPolicy(t *testing.T) {
	if _, _, err := FirewallRuleUpdate("", 1000, options.New(), options.ChannelGA, testScope); err == nil {
		t.Fatal("expected error for empty policy id")
	}
}

func TestFirewallRuleUpdateNoMatcherWhenUnset(t *testing.T) {
	opts := options.New()
	opts.SetBool(options.KeyDisabled, true)

	req, _, err := FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("FirewallRuleUpdate: %v", err)
	}
	if _, present := bodyMap(t, req)["match"]; present {
		t.Error("match present without any matcher option")
	}
}

func TestFirewallRuleUpdateLoggingAdvisory(t *testing.T) {
	opts := options.New()
	opts.SetBool(options.KeyEnableLogging, false)
	_, advisories, err := FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("FirewallRuleUpdate: %v", err)
	}
	if !hasAdvisory(advisories, advisoryLoggingOff) {
		t.Error("missing logging advisory")
	}

	opts.SetBool(options.KeyEnableLogging, true)
	_, advisories, err = FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelGA, testScope)
	if err != nil {
		t.Fatalf("FirewallRuleUpdate: %v", err)
	}
	if hasAdvisory(advisories, advisoryLoggingOff) {
		t.Error("logging advisory present when logging enabled")
	}
}

func TestFirewallRuleUpdateFQDNConflicts(t *testing.T) {
	opts := options.New()
	opts.SetStringList(options.KeySrcFQDNs, []string{"internal.example."})
	opts.SetStringList(options.KeySrcIPRanges, []string{"10.0.0.0/8"})
	if _, _, err := FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelAlpha, testScope); !lro.IsConflictingOptions(err) {
		t.Fatalf("err = %v, want conflicting-options", err)
	}
}

func TestFirewallRuleUpdateAlphaFields(t *testing.T) {
	opts := options.New()
	opts.SetStringList(options.KeySrcRegionCodes, []string{"US", "CA"})
	opts.SetString(options.KeySecurityGroup, "projects/demo/securityProfileGroups/perimeter")

	req, _, err := FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelAlpha, testScope)
	if err != nil {
		t.Fatalf("FirewallRuleUpdate: %v", err)
	}
	body := bodyMap(t, req)
	if _, present := body["securityProfileGroup"]; !present {
		t.Error("alpha body missing securityProfileGroup")
	}
	match := body["match"].(map[string]any)
	if _, present := match["srcRegionCodes"]; !present {
		t.Error("match missing srcRegionCodes")
	}

	// Region codes are beta surface; ga rejects them.
	if _, _, err := FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelGA, testScope); !lro.IsUnsupportedOption(err) {
		t.Errorf("ga build: err = %v, want unsupported-option", err)
	}
}

func TestFirewallRuleUpdateBadLayer4(t *testing.T) {
	opts := options.New()
	opts.SetStringList(options.KeyLayer4Configs, []string{":443"})
	if _, _, err := FirewallRuleUpdate("corp-policy", 1000, opts, options.ChannelGA, testScope); err == nil {
		t.Fatal("expected layer4 parse error")
	}
}

func TestSimulationAlphaOnly(t *testing.T) {
	overlay := api.PolicyOverlay{Policies: []json.RawMessage{json.RawMessage(`{"name":"p"}`)}}
	for _, ch := range []options.ReleaseChannel{options.ChannelGA, options.ChannelBeta} {
		if _, _, err := Simulation(overlay, ch, testScope); !lro.IsUnsupportedOption(err) {
			t.Errorf("channel %s: err = %v, want unsupported-option", ch, err)
		}
	}

	req, _, err := Simulation(overlay, options.ChannelAlpha, testScope)
	if err != nil {
		t.Fatalf("Simulation: %v", err)
	}
	if want := "/v1alpha1/projects/demo-project/locations/us-central1/violationsPreviews"; req.Path != want {
		t.Errorf("path = %q, want %q", req.Path, want)
	}
	if req.Method != http.MethodPost {
		t.Errorf("method = %q, want POST", req.Method)
	}
}

func TestSimulationRequiresOverlay(t *testing.T) {
	if _, _, err := Simulation(api.PolicyOverlay{}, options.ChannelAlpha, testScope); err == nil {
		t.Fatal("expected error for empty overlay")
	}
}
