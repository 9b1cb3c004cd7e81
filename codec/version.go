package codec

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ProtocolVersion is the wire protocol version negotiated with a peer.
// Content newer than the negotiated version is left out of the encoding.
type ProtocolVersion byte

const (
	// V1 carries the core header, guaranteed delivery, cross-bus, exception,
	// properties, body and routing/subscription payloads
	V1 ProtocolVersion = 1
	// V2 adds remote browse, remote get and fingerprints
	V2 ProtocolVersion = 2
	// V3 adds audit, system context and delivery delay
	V3 ProtocolVersion = 3

	// Current is the newest version this module writes
	Current = V3
)

// String returns the version name
func (v ProtocolVersion) String() string {
	return fmt.Sprintf("v%d", byte(v))
}

// Valid reports whether v is a version this module can write
func (v ProtocolVersion) Valid() bool {
	return v >= V1 && v <= Current
}

// versionRanges maps peer product releases onto the protocol they speak,
// newest first
var versionRanges = []struct {
	constraint string
	version    ProtocolVersion
}{
	{">= 3.0.0-0", V3},
	{">= 2.0.0-0, < 3.0.0-0", V2},
	{">= 1.0.0-0, < 2.0.0-0", V1},
}

// NegotiateVersion returns the protocol version to use with a peer that
// reports the given product version. Peers older than 1.0.0 are refused.
func NegotiateVersion(peerProductVersion string) (ProtocolVersion, error) {
	peer, err := semver.NewVersion(peerProductVersion)
	if err != nil {
		return 0, fmt.Errorf("codec: peer version %q: %w", peerProductVersion, err)
	}

	for _, r := range versionRanges {
		constraint, err := semver.NewConstraint(r.constraint)
		if err != nil {
			return 0, fmt.Errorf("codec: constraint %q: %w", r.constraint, err)
		}
		if constraint.Check(peer) {
			return r.version, nil
		}
	}

	return 0, fmt.Errorf("codec: peer version %s predates protocol %s", peer, V1)
}
