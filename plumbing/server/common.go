package server

import (
	"errors"
	"strconv"
	"strings"

	"github.com/sourcehold/gitkit/plumbing/protocol"
)

// ErrUpdateReference is returned when a receive-pack command cannot be
// applied: a create targets an existing ref, or an update/delete targets
// one that doesn't exist.
var ErrUpdateReference = errors.New("failed to update ref")

// DetermineProtocolVersion is used to determine the protocol version of the
// server from request parameters.
func DetermineProtocolVersion(params ...string) protocol.Version {
	ver := protocol.VersionV0
	for _, p := range params {
		if strings.HasPrefix(p, "version=") {
			v, _ := strconv.Atoi(p[8:])
			if v := protocol.Version(v); v > ver {
				ver = v
			}
		}
	}
	return ver
}
