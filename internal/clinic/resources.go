package clinic

import (
	"errors"
	"sort"
	"strings"
)

// ErrUnknownResource is returned for a resource name outside the catalog.
var ErrUnknownResource = errors.New("clinic: unknown resource")

// Resource is a dashboard entity served as opaque JSON.
type Resource struct {
	Name        string `json:"name"`
	Path        string `json:"path"`
	FallbackKey string `json:"fallbackKey"`
}

var resources = map[string]Resource{
	"billing":  {Name: "billing", Path: "/billing", FallbackKey: "billing"},
	"support":  {Name: "support", Path: "/support-tickets", FallbackKey: "support"},
	"patients": {Name: "patients", Path: "/patients", FallbackKey: "patients"},
	"nurses":   {Name: "nurses", Path: "/nurses", FallbackKey: "nurses"},
	"doctors":  {Name: "doctors", Path: "/doctors", FallbackKey: "doctors"},
	"orders":   {Name: "orders", Path: "/orders", FallbackKey: "orders"},
	"pharmacy": {Name: "pharmacy", Path: "/pharmacy", FallbackKey: "pharmacy"},
	"reports":  {Name: "reports", Path: "/reports", FallbackKey: "reports"},
	"timeline": {Name: "timeline", Path: "/about/timeline", FallbackKey: "aboutUs.timelineData"},
}

// LookupResource resolves a catalog entry by name, case-insensitively.
func LookupResource(name string) (Resource, error) {
	r, ok := resources[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Resource{}, ErrUnknownResource
	}
	return r, nil
}

// Resources lists the catalog sorted by name.
func Resources() []Resource {
	out := make([]Resource, 0, len(resources))
	for _, r := range resources {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
