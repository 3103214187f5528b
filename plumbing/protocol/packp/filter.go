package packp

import (
	"fmt"
	"strconv"
	"strings"
)

// Filter values restrict the objects sent in a packfile response to a
// server-defined subset, as described by the filter capability.
type Filter interface {
	fmt.Stringer
	IsZero() bool
}

// FilterTreeDepth requests trees and blobs below the given depth be
// omitted.
type FilterTreeDepth int

func (f FilterTreeDepth) isFilter() {}

// IsZero reports whether no filter was requested.
func (f FilterTreeDepth) IsZero() bool {
	return false
}

func (f FilterTreeDepth) String() string {
	return fmt.Sprintf("tree:%d", int(f))
}

// FilterBlobNone requests that no blob be sent.
type FilterBlobNone struct{}

func (f FilterBlobNone) isFilter() {}

// IsZero reports whether no filter was requested.
func (f FilterBlobNone) IsZero() bool {
	return false
}

func (f FilterBlobNone) String() string {
	return "blob:none"
}

// FilterBlobLimit requests blobs bigger than the given size, in bytes, be
// omitted.
type FilterBlobLimit int64

func (f FilterBlobLimit) isFilter() {}

// IsZero reports whether no filter was requested.
func (f FilterBlobLimit) IsZero() bool {
	return false
}

func (f FilterBlobLimit) String() string {
	return fmt.Sprintf("blob:limit=%d", int64(f))
}

// parseFilter parses the value of a "filter <spec>" line.
func parseFilter(spec string) (Filter, error) {
	switch {
	case spec == "blob:none":
		return FilterBlobNone{}, nil
	case strings.HasPrefix(spec, "blob:limit="):
		n, err := strconv.ParseInt(strings.TrimPrefix(spec, "blob:limit="), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("malformed blob:limit filter: %s", err)
		}
		return FilterBlobLimit(n), nil
	case strings.HasPrefix(spec, "tree:"):
		n, err := strconv.Atoi(strings.TrimPrefix(spec, "tree:"))
		if err != nil {
			return nil, fmt.Errorf("malformed tree filter: %s", err)
		}
		return FilterTreeDepth(n), nil
	default:
		return nil, fmt.Errorf("unsupported filter spec: %q", spec)
	}
}
