package provision

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// DirectoryClient talks to the Domain Directory, the collaborator that
// resolves human-readable domain names to internal domain IDs. Lookups are
// read-only.
type DirectoryClient struct {
	http *httpClient
}

// NewDirectoryClient creates a Domain Directory client.
func NewDirectoryClient(cfg Config, logger *slog.Logger) *DirectoryClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryClient{
		http: newHTTPClient(cfg, logger.With("component", "domain-directory")),
	}
}

type domainRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LookupDomainID resolves a domain name to its ID. An unknown name is a
// NotFound error carrying the name.
func (c *DirectoryClient) LookupDomainID(ctx context.Context, name string) (string, error) {
	var record domainRecord
	path := "/api/v1/domains?name=" + url.QueryEscape(name)
	if err := c.http.do(ctx, http.MethodGet, path, nil, &record); err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Status == http.StatusNotFound {
			return "", domain.E(domain.KindNotFound, "domain "+name+" not found", domain.ErrDomainNotFound)
		}
		return "", upstreamError("domain directory", err)
	}
	return record.ID, nil
}
