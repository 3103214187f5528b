// Package capability defines the capability negotiation vocabulary shared
// by ref advertisement, upload-pack requests and receive-pack commands.
package capability

import (
	"fmt"
	"os"
)

// Capability is the name of a wire-protocol capability.
type Capability string

// Server and client capabilities, as advertised on the first reference of
// an AdvRefs or the first command of a ReferenceUpdateRequest.
const (
	MultiACK                 Capability = "multi_ack"
	MultiACKDetailed         Capability = "multi_ack_detailed"
	NoDone                   Capability = "no-done"
	ThinPack                 Capability = "thin-pack"
	Sideband                 Capability = "side-band"
	Sideband64k              Capability = "side-band-64k"
	OFSDelta                 Capability = "ofs-delta"
	Agent                    Capability = "agent"
	Shallow                  Capability = "shallow"
	Deepen                   Capability = "deepen"
	DeepenSince              Capability = "deepen-since"
	DeepenNot                Capability = "deepen-not"
	DeepenRelative           Capability = "deepen-relative"
	NoProgress               Capability = "no-progress"
	IncludeTag               Capability = "include-tag"
	ReportStatus             Capability = "report-status"
	DeleteRefs               Capability = "delete-refs"
	Quiet                    Capability = "quiet"
	Atomic                   Capability = "atomic"
	PushOptions              Capability = "push-options"
	AllowTipSHA1InWant       Capability = "allow-tip-sha1-in-want"
	AllowReachableSHA1InWant Capability = "allow-reachable-sha1-in-want"
	PushCert                 Capability = "push-cert"
	SymRef                   Capability = "symref"
	ObjectFormat             Capability = "object-format"
	Filter                   Capability = "filter"
)

// argPolicy governs how many argument values a capability accepts.
type argPolicy int

const (
	// argsNone capabilities are plain flags: no argument is ever allowed.
	argsNone argPolicy = iota
	// argsOne capabilities accept exactly one argument, set at most once.
	argsOne
	// argsMany capabilities require at least one argument per call and
	// accumulate values across repeated Add calls.
	argsMany
)

var knownCapabilities = map[Capability]argPolicy{
	MultiACK:                 argsNone,
	MultiACKDetailed:         argsNone,
	NoDone:                   argsNone,
	ThinPack:                 argsNone,
	Sideband:                 argsNone,
	Sideband64k:              argsNone,
	OFSDelta:                 argsNone,
	Agent:                    argsOne,
	Shallow:                  argsNone,
	Deepen:                   argsOne,
	DeepenSince:              argsOne,
	DeepenNot:                argsMany,
	DeepenRelative:           argsNone,
	NoProgress:               argsNone,
	IncludeTag:               argsNone,
	ReportStatus:             argsNone,
	DeleteRefs:               argsNone,
	Quiet:                    argsNone,
	Atomic:                   argsNone,
	PushOptions:              argsNone,
	AllowTipSHA1InWant:       argsNone,
	AllowReachableSHA1InWant: argsNone,
	PushCert:                 argsOne,
	SymRef:                   argsMany,
	ObjectFormat:             argsOne,
	Filter:                   argsOne,
}

const userAgent = "gitkit/5"

// DefaultAgent returns the agent string this implementation advertises,
// extended with GO_GIT_USER_AGENT_EXTRA when that environment variable is
// set.
func DefaultAgent() string {
	if extra := os.Getenv("GO_GIT_USER_AGENT_EXTRA"); extra != "" {
		return fmt.Sprintf("%s %s", userAgent, extra)
	}

	return userAgent
}
