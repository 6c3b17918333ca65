// Package manifest parses CUE cluster manifests into the option set the
// request builder consumes. A manifest is the file-based alternative to
// spelling every option as a flag; fields absent from the manifest stay
// absent from the option set, so provider defaults apply.
package manifest

import (
	"fmt"
	"os"
	"sort"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"

	"github.com/stratoforge/stratoctl/pkg/options"
)

// Parser parses and validates cluster manifests.
type Parser struct {
	ctx      *cue.Context
	validate *validator.Validate
}

// NewParser creates a manifest parser.
func NewParser() *Parser {
	return &Parser{
		ctx:      cuecontext.New(),
		validate: validator.New(),
	}
}

// clusterManifest mirrors the manifest schema. Pointer fields record
// whether a value was present in the file; only present fields become
// explicitly-set options.
type clusterManifest struct {
	Name string `json:"name" validate:"required,max=40"`

	NumNodes    *int    `json:"numNodes" validate:"omitempty,min=1"`
	MachineType *string `json:"machineType"`
	ImageType   *string `json:"imageType"`
	DiskSizeGB  *int    `json:"diskSizeGb" validate:"omitempty,min=10"`

	Network          *string `json:"network"`
	Subnetwork       *string `json:"subnetwork"`
	CreateSubnetwork *string `json:"createSubnetwork"`
	ClusterIPv4CIDR  *string `json:"clusterIpv4Cidr" validate:"omitempty,cidr"`

	NodeLocations []string          `json:"nodeLocations"`
	Labels        map[string]string `json:"labels"`

	EnableIPAlias      *bool    `json:"enableIpAlias"`
	EnablePrivateNodes *bool    `json:"enablePrivateNodes"`
	AuthorizedNetworks []string `json:"masterAuthorizedNetworks" validate:"omitempty,dive,cidr"`

	EnableDataplaneV2 *bool   `json:"enableDataplaneV2"`
	NotificationTopic *string `json:"notificationTopic"`

	SecurityProfile     *string `json:"securityProfile"`
	EnableWorkloadDebug *bool   `json:"enableWorkloadDebugging"`
}

// ParseFile reads a CUE manifest from disk and returns the cluster name
// and the option set it declares.
func (p *Parser) ParseFile(path string) (string, options.ResourceOptions, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", options.ResourceOptions{}, fmt.Errorf("failed to read manifest: %w", err)
	}
	return p.Parse(data)
}

// Parse validates manifest source against the schema and converts it into
// an option set.
func (p *Parser) Parse(source []byte) (string, options.ResourceOptions, error) {
	schema := p.ctx.CompileString(clusterSchema)
	if err := schema.Err(); err != nil {
		return "", options.ResourceOptions{}, fmt.Errorf("internal schema error: %w", err)
	}

	value := p.ctx.CompileBytes(source)
	if err := value.Err(); err != nil {
		return "", options.ResourceOptions{}, fmt.Errorf("manifest parse error: %s", cueerrors.Details(err, nil))
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return "", options.ResourceOptions{}, fmt.Errorf("manifest validation failed: %s", cueerrors.Details(err, nil))
	}

	clusterValue := unified.LookupPath(cue.ParsePath("cluster"))
	if !clusterValue.Exists() {
		return "", options.ResourceOptions{}, fmt.Errorf("manifest has no cluster block")
	}

	var m clusterManifest
	if err := clusterValue.Decode(&m); err != nil {
		return "", options.ResourceOptions{}, fmt.Errorf("failed to decode manifest: %w", err)
	}

	if err := p.validate.Struct(m); err != nil {
		return "", options.ResourceOptions{}, fmt.Errorf("manifest validation failed: %w", err)
	}

	return m.Name, m.toOptions(), nil
}

// toOptions converts present manifest fields into explicitly-set options.
func (m *clusterManifest) toOptions() options.ResourceOptions {
	opts := options.New()

	if m.NumNodes != nil {
		opts.SetInt(options.KeyNodeCount, *m.NumNodes)
	}
	if m.MachineType != nil {
		opts.SetString(options.KeyMachineType, *m.MachineType)
	}
	if m.ImageType != nil {
		opts.SetString(options.KeyImageType, *m.ImageType)
	}
	if m.DiskSizeGB != nil {
		opts.SetInt(options.KeyDiskSizeGB, *m.DiskSizeGB)
	}
	if m.Network != nil {
		opts.SetString(options.KeyNetwork, *m.Network)
	}
	if m.Subnetwork != nil {
		opts.SetString(options.KeySubnetwork, *m.Subnetwork)
	}
	if m.CreateSubnetwork != nil {
		opts.SetString(options.KeyCreateSubnetwork, *m.CreateSubnetwork)
	}
	if m.ClusterIPv4CIDR != nil {
		opts.SetString(options.KeyClusterCIDR, *m.ClusterIPv4CIDR)
	}
	if m.NodeLocations != nil {
		opts.SetStringList(options.KeyNodeLocations, m.NodeLocations)
	}
	if m.Labels != nil {
		pairs := make([]string, 0, len(m.Labels))
		for k, v := range m.Labels {
			pairs = append(pairs, k+"="+v)
		}
		// Map iteration order is random; keep the option set deterministic.
		sort.Strings(pairs)
		opts.SetStringList(options.KeyLabels, pairs)
	}
	if m.EnableIPAlias != nil {
		opts.SetBool(options.KeyEnableIPAlias, *m.EnableIPAlias)
	}
	if m.EnablePrivateNodes != nil {
		opts.SetBool(options.KeyEnablePrivateNodes, *m.EnablePrivateNodes)
	}
	if m.AuthorizedNetworks != nil {
		opts.SetStringList(options.KeyAuthorizedNetworks, m.AuthorizedNetworks)
	}
	if m.EnableDataplaneV2 != nil {
		opts.SetBool(options.KeyEnableDataplaneV2, *m.EnableDataplaneV2)
	}
	if m.NotificationTopic != nil {
		opts.SetString(options.KeyNotificationTopic, *m.NotificationTopic)
	}
	if m.SecurityProfile != nil {
		opts.SetString(options.KeySecurityProfile, *m.SecurityProfile)
	}
	if m.EnableWorkloadDebug != nil {
		opts.SetBool(options.KeyEnableWorkloadDebug, *m.EnableWorkloadDebug)
	}

	return opts
}
