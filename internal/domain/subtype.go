package domain

import "fmt"

// FeatureCTFLeaderboard is the store feature type owned by the tracker.
const FeatureCTFLeaderboard = "ctf_leaderboard"

// Subtype selects how a tracked message is rendered.
type Subtype string

const (
	SubtypeCounter     Subtype = "counter"
	SubtypeCTFdTracker Subtype = "ctfd_tracker"
)

// ParseSubtype validates a subtype coming from the store or the admin channel.
// An empty string defaults to counter.
func ParseSubtype(s string) (Subtype, error) {
	switch Subtype(s) {
	case "", SubtypeCounter:
		return SubtypeCounter, nil
	case SubtypeCTFdTracker:
		return SubtypeCTFdTracker, nil
	default:
		return "", fmt.Errorf("unknown message type %q", s)
	}
}

func (s Subtype) String() string { return string(s) }
