package manifest

// clusterSchema is the CUE schema cluster manifests are unified with
// before decoding. The schema enforces shape and basic value constraints;
// cross-field rules (conflicts, channel gating) belong to the request
// builder.
const clusterSchema = `
#Cluster: {
	name: string & =~"^[a-z][-a-z0-9]{0,38}[a-z0-9]$"

	numNodes?:    int & >=1 & <=5000
	machineType?: string
	imageType?:   string
	diskSizeGb?:  int & >=10

	network?:          string
	subnetwork?:       string
	createSubnetwork?: string
	clusterIpv4Cidr?:  string

	nodeLocations?: [...string]
	labels?: {[string]: string}

	enableIpAlias?:      bool
	enablePrivateNodes?: bool
	masterAuthorizedNetworks?: [...string]

	enableDataplaneV2?: bool
	notificationTopic?: string

	securityProfile?:         string
	enableWorkloadDebugging?: bool
}

cluster: #Cluster
`
