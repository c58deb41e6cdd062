// Package redirect resolves caller redirect specs into network connection
// requests. Domain lookups are read-only, so a failed resolve leaves no
// side effects behind.
package redirect

import (
	"context"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// DomainDirectory resolves human-readable domain names to internal IDs.
type DomainDirectory interface {
	// LookupDomainID returns the ID for the given domain name, or an error
	// of kind NotFound when no record matches.
	LookupDomainID(ctx context.Context, name string) (string, error)
}

// Resolve turns redirect specs into connection requests for the given
// project, in input order. Within one call, each domain name is looked up
// at most once; repeated names are served from a per-call cache. Any lookup
// failure aborts the whole resolve.
func Resolve(ctx context.Context, dir DomainDirectory, projectID string, specs []domain.RedirectSpec) ([]domain.ConnectionRequest, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	// Cache is scoped to this invocation; never shared across requests.
	cache := make(map[string]string, len(specs))
	requests := make([]domain.ConnectionRequest, 0, len(specs))

	for _, spec := range specs {
		domainID, ok := cache[spec.Domain]
		if !ok {
			id, err := dir.LookupDomainID(ctx, spec.Domain)
			if err != nil {
				return nil, err
			}
			cache[spec.Domain] = id
			domainID = id
		}

		requests = append(requests, domain.ConnectionRequest{
			DomainID:  domainID,
			ProjectID: projectID,
			Port:      spec.Port,
			Prefix:    spec.Prefix,
		})
	}

	return requests, nil
}
