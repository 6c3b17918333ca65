package options

import "fmt"

// ReleaseChannel selects which variant of the provider API a request is
// built against. Channels gate both the set of legal option keys and the
// shape of the outbound request.
type ReleaseChannel string

const (
	// ChannelGA is the generally-available API surface.
	ChannelGA ReleaseChannel = "ga"

	// ChannelBeta is the beta API surface. It accepts everything GA
	// accepts plus beta-only options.
	ChannelBeta ReleaseChannel = "beta"

	// ChannelAlpha is the alpha API surface. It accepts everything Beta
	// accepts plus alpha-only options.
	ChannelAlpha ReleaseChannel = "alpha"
)

// ParseReleaseChannel converts a user-supplied string into a ReleaseChannel.
func ParseReleaseChannel(s string) (ReleaseChannel, error) {
	switch ReleaseChannel(s) {
	case ChannelGA, ChannelBeta, ChannelAlpha:
		return ReleaseChannel(s), nil
	case "":
		return ChannelGA, nil
	default:
		return "", fmt.Errorf("unknown release channel %q (expected ga, beta, or alpha)", s)
	}
}

// String returns the channel name.
func (c ReleaseChannel) String() string {
	return string(c)
}

// APIVersion returns the version segment used in request paths for this
// channel.
func (c ReleaseChannel) APIVersion() string {
	switch c {
	case ChannelBeta:
		return "v1beta1"
	case ChannelAlpha:
		return "v1alpha1"
	default:
		return "v1"
	}
}

// Includes reports whether this channel's surface contains the other
// channel's surface. Alpha includes Beta includes GA.
func (c ReleaseChannel) Includes(other ReleaseChannel) bool {
	rank := map[ReleaseChannel]int{ChannelGA: 0, ChannelBeta: 1, ChannelAlpha: 2}
	return rank[c] >= rank[other]
}
