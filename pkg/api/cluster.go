package api

// Cluster is the provider's cluster resource. The same shape is returned
// by all three channels; channel differences are confined to the request
// payloads.
type Cluster struct {
	Name            string            `json:"name"`
	Zone            string            `json:"zone,omitempty"`
	Network         string            `json:"network,omitempty"`
	Subnetwork      string            `json:"subnetwork,omitempty"`
	NodeCount       int               `json:"currentNodeCount,omitempty"`
	Status          string            `json:"status,omitempty"`
	Endpoint        string            `json:"endpoint,omitempty"`
	SelfLink        string            `json:"selfLink,omitempty"`
	ResourceLabels  map[string]string `json:"resourceLabels,omitempty"`
	CurrentVersion  string            `json:"currentMasterVersion,omitempty"`
	CreateTime      string            `json:"createTime,omitempty"`
	NodeLocations   []string          `json:"locations,omitempty"`
	PrivateCluster  bool              `json:"privateCluster,omitempty"`
	ClusterIPv4CIDR string            `json:"clusterIpv4Cidr,omitempty"`
}

// NodePoolSpec is the initial node pool of a new cluster.
type NodePoolSpec struct {
	NodeCount   int    `json:"initialNodeCount,omitempty"`
	MachineType string `json:"machineType,omitempty"`
	ImageType   string `json:"imageType,omitempty"`
	DiskSizeGB  int    `json:"diskSizeGb,omitempty"`
}

// SubnetworkSpec asks the provider to create a subnetwork alongside the
// cluster. Mutually exclusive with referencing an existing subnetwork.
type SubnetworkSpec struct {
	Name string `json:"name,omitempty"`
}

// PrivateClusterSpec configures private-node networking.
type PrivateClusterSpec struct {
	EnablePrivateNodes bool     `json:"enablePrivateNodes,omitempty"`
	AuthorizedNetworks []string `json:"masterAuthorizedNetworks,omitempty"`
}

// ClusterCreateCommon is the field set shared by all three channel
// variants. Embedded anonymously, so the variants present a single flat
// schema on the wire. Pointer fields distinguish "unset" from "false":
// only explicitly-set options are serialized.
type ClusterCreateCommon struct {
	Name             string              `json:"name"`
	Network          string              `json:"network,omitempty"`
	Subnetwork       string              `json:"subnetwork,omitempty"`
	CreateSubnetwork *SubnetworkSpec     `json:"createSubnetwork,omitempty"`
	NodePool         *NodePoolSpec       `json:"nodePool,omitempty"`
	NodeLocations    []string            `json:"locations,omitempty"`
	ResourceLabels   map[string]string   `json:"resourceLabels,omitempty"`
	ClusterIPv4CIDR  string              `json:"clusterIpv4Cidr,omitempty"`
	EnableIPAlias    *bool               `json:"useIpAliases,omitempty"`
	PrivateCluster   *PrivateClusterSpec `json:"privateClusterConfig,omitempty"`
}

// CreateClusterRequestGA is the GA cluster-creation payload.
type CreateClusterRequestGA struct {
	ClusterCreateCommon
}

// CreateClusterRequestBeta is the Beta cluster-creation payload: GA plus
// dataplane and notification fields.
type CreateClusterRequestBeta struct {
	ClusterCreateCommon
	EnableDataplaneV2 *bool  `json:"datapathV2,omitempty"`
	NotificationTopic string `json:"notificationConfig,omitempty"`
}

// CreateClusterRequestAlpha is the Alpha cluster-creation payload: Beta
// plus security-profile and workload-debugging fields.
type CreateClusterRequestAlpha struct {
	ClusterCreateCommon
	EnableDataplaneV2   *bool  `json:"datapathV2,omitempty"`
	NotificationTopic   string `json:"notificationConfig,omitempty"`
	SecurityProfile     string `json:"securityProfile,omitempty"`
	EnableWorkloadDebug *bool  `json:"workloadDebuggingEnabled,omitempty"`
}
