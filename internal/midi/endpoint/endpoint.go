// Package endpoint selects MIDI endpoints by name.
package endpoint

import (
	"fmt"
	"strings"

	"github.com/leandrodaf/midiseq/sdk/contracts"
)

// Select returns the index of the first endpoint whose name contains match,
// ignoring case. notFound is wrapped into the returned error.
func Select(endpoints []contracts.EndpointInfo, match string, notFound error) (int, error) {
	needle := strings.ToLower(strings.TrimSpace(match))
	if needle == "" {
		return -1, fmt.Errorf("%w: empty name", notFound)
	}
	for i, ep := range endpoints {
		if strings.Contains(strings.ToLower(ep.Name), needle) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: no endpoint matches %q among %d", notFound, match, len(endpoints))
}

// Names lists endpoint names for log output.
func Names(endpoints []contracts.EndpointInfo) []string {
	names := make([]string, len(endpoints))
	for i, ep := range endpoints {
		names[i] = ep.Name
	}
	return names
}
