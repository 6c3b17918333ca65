package options

// Key identifies a single resource option. Key strings match the flag
// names exposed by the CLI.
type Key string

// Cluster creation options. GA unless noted otherwise.
const (
	KeyNodeCount          Key = "num-nodes"
	KeyMachineType        Key = "machine-type"
	KeyNetwork            Key = "network"
	KeySubnetwork         Key = "subnetwork"
	KeyCreateSubnetwork   Key = "create-subnetwork"
	KeyNodeLocations      Key = "node-locations"
	KeyAdditionalZones    Key = "additional-zones"
	KeyLabels             Key = "labels"
	KeyClusterCIDR        Key = "cluster-ipv4-cidr"
	KeyEnableIPAlias      Key = "enable-ip-alias"
	KeyEnablePrivateNodes Key = "enable-private-nodes"
	KeyAuthorizedNetworks Key = "master-authorized-networks"
	KeyImageType          Key = "image-type"
	KeyDiskSizeGB         Key = "disk-size"

	// Beta and above.
	KeyEnableDataplaneV2 Key = "enable-dataplane-v2"
	KeyNotificationTopic Key = "notification-topic"

	// Alpha only.
	KeySecurityProfile     Key = "security-profile"
	KeyEnableWorkloadDebug Key = "enable-workload-debugging"
)

// Firewall policy rule options. GA unless noted otherwise.
const (
	KeyAction            Key = "action"
	KeyDirection         Key = "direction"
	KeySrcIPRanges       Key = "src-ip-ranges"
	KeyDestIPRanges      Key = "dest-ip-ranges"
	KeyLayer4Configs     Key = "layer4-configs"
	KeyEnableLogging     Key = "enable-logging"
	KeyDisabled          Key = "disabled"
	KeyTargetResources   Key = "target-resources"
	KeyDescription       Key = "description"
	KeyNewPriority       Key = "new-priority"
	KeyEtag              Key = "etag"
	KeySrcRegionCodes    Key = "src-region-codes"  // beta and above
	KeyDestRegionCodes   Key = "dest-region-codes" // beta and above
	KeySrcFQDNs          Key = "src-fqdns"         // alpha only
	KeyDestFQDNs         Key = "dest-fqdns"        // alpha only
	KeySecurityGroup     Key = "security-profile-group" // alpha only
)

// Rule declares the value kind and channel availability of one option key.
// The channel tables from the upstream surface are collapsed into a static
// minimum-channel column: an option is legal in its MinChannel and in every
// channel that includes it.
type Rule struct {
	// Kind is the required value type.
	Kind Kind

	// MinChannel is the least-permissive channel that carries the
	// corresponding request field.
	MinChannel ReleaseChannel

	// EnumValues lists the legal values for KindEnum keys.
	EnumValues []string
}

// Rules is the static option table.
var Rules = map[Key]Rule{
	KeyNodeCount:          {Kind: KindInt, MinChannel: ChannelGA},
	KeyMachineType:        {Kind: KindString, MinChannel: ChannelGA},
	KeyNetwork:            {Kind: KindString, MinChannel: ChannelGA},
	KeySubnetwork:         {Kind: KindString, MinChannel: ChannelGA},
	KeyCreateSubnetwork:   {Kind: KindString, MinChannel: ChannelGA},
	KeyNodeLocations:      {Kind: KindStringList, MinChannel: ChannelGA},
	KeyAdditionalZones:    {Kind: KindStringList, MinChannel: ChannelGA},
	KeyLabels:             {Kind: KindStringList, MinChannel: ChannelGA},
	KeyClusterCIDR:        {Kind: KindString, MinChannel: ChannelGA},
	KeyEnableIPAlias:      {Kind: KindBool, MinChannel: ChannelGA},
	KeyEnablePrivateNodes: {Kind: KindBool, MinChannel: ChannelGA},
	KeyAuthorizedNetworks: {Kind: KindStringList, MinChannel: ChannelGA},
	KeyImageType:          {Kind: KindString, MinChannel: ChannelGA},
	KeyDiskSizeGB:         {Kind: KindInt, MinChannel: ChannelGA},

	KeyEnableDataplaneV2: {Kind: KindBool, MinChannel: ChannelBeta},
	KeyNotificationTopic: {Kind: KindString, MinChannel: ChannelBeta},

	KeySecurityProfile:     {Kind: KindString, MinChannel: ChannelAlpha},
	KeyEnableWorkloadDebug: {Kind: KindBool, MinChannel: ChannelAlpha},

	KeyAction: {Kind: KindEnum, MinChannel: ChannelGA,
		EnumValues: []string{"allow", "deny", "goto_next"}},
	KeyDirection: {Kind: KindEnum, MinChannel: ChannelGA,
		EnumValues: []string{"INGRESS", "EGRESS"}},
	KeySrcIPRanges:     {Kind: KindStringList, MinChannel: ChannelGA},
	KeyDestIPRanges:    {Kind: KindStringList, MinChannel: ChannelGA},
	KeyLayer4Configs:   {Kind: KindStringList, MinChannel: ChannelGA},
	KeyEnableLogging:   {Kind: KindBool, MinChannel: ChannelGA},
	KeyDisabled:        {Kind: KindBool, MinChannel: ChannelGA},
	KeyTargetResources: {Kind: KindStringList, MinChannel: ChannelGA},
	KeyDescription:     {Kind: KindString, MinChannel: ChannelGA},
	KeyNewPriority:     {Kind: KindInt, MinChannel: ChannelGA},
	KeyEtag:            {Kind: KindString, MinChannel: ChannelGA},
	KeySrcRegionCodes:  {Kind: KindStringList, MinChannel: ChannelBeta},
	KeyDestRegionCodes: {Kind: KindStringList, MinChannel: ChannelBeta},
	KeySrcFQDNs:        {Kind: KindStringList, MinChannel: ChannelAlpha},
	KeyDestFQDNs:       {Kind: KindStringList, MinChannel: ChannelAlpha},
	KeySecurityGroup:   {Kind: KindString, MinChannel: ChannelAlpha},
}

// Conflicts lists option pairs that must not both be explicitly set.
// Setting both is an error regardless of values; the upstream behavior of
// letting the later assignment win is deliberately not reproduced.
var Conflicts = [][2]Key{
	{KeySubnetwork, KeyCreateSubnetwork},
	{KeyNodeLocations, KeyAdditionalZones},
	{KeyClusterCIDR, KeyEnableIPAlias},
	{KeySrcFQDNs, KeySrcIPRanges},
	{KeyDestFQDNs, KeyDestIPRanges},
}

// SupportedIn reports whether k carries a request field in channel ch.
// Unknown keys are unsupported everywhere.
func SupportedIn(k Key, ch ReleaseChannel) bool {
	rule, ok := Rules[k]
	if !ok {
		return false
	}
	return ch.Includes(rule.MinChannel)
}
