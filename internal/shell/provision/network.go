package provision

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/unideploy/unideploy/internal/core/domain"
)

// NetworkClient talks to the Network Provisioner, the collaborator that
// creates and deletes domain-to-service routing records.
type NetworkClient struct {
	http   *httpClient
	logger *slog.Logger
}

// NewNetworkClient creates a Network Provisioner client.
func NewNetworkClient(cfg Config, logger *slog.Logger) *NetworkClient {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "network-provisioner")
	return &NetworkClient{
		http:   newHTTPClient(cfg, logger),
		logger: logger,
	}
}

// CreateConnection wires one domain-to-project routing record.
func (c *NetworkClient) CreateConnection(ctx context.Context, req domain.ConnectionRequest) (*domain.Connection, error) {
	var conn domain.Connection
	if err := c.http.do(ctx, http.MethodPost, "/api/v1/connections", req, &conn); err != nil {
		return nil, upstreamError("network provisioner", err)
	}
	c.logger.Info("connection created",
		"connection_id", conn.ID,
		"domain_id", conn.DomainID,
		"project_id", conn.ProjectID,
		"port", conn.Port,
	)
	return &conn, nil
}

// DeleteConnection removes a routing record.
func (c *NetworkClient) DeleteConnection(ctx context.Context, id string) error {
	if err := c.http.do(ctx, http.MethodDelete, "/api/v1/connections/"+url.PathEscape(id), nil, nil); err != nil {
		return upstreamError("network provisioner", err)
	}
	c.logger.Info("connection deleted", "connection_id", id)
	return nil
}
