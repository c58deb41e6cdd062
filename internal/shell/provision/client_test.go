package provision

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unideploy/unideploy/internal/core/domain"
)

func TestComputeClient_CreateProject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/projects", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var spec domain.ProvisionSpec
		require.NoError(t, json.NewDecoder(r.Body).Decode(&spec))
		assert.Equal(t, 2048, spec.MemoryMB)
		assert.Equal(t, 2, spec.CPU)

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Project{
			ID:       "prj-1",
			SourceID: "src-1",
			VM:       domain.VM{MemoryMB: spec.MemoryMB, CPU: spec.CPU, DiskMB: spec.DiskMB},
		})
	}))
	defer server.Close()

	client := NewComputeClient(Config{BaseURL: server.URL, APIKey: "test-key"}, nil)
	project, err := client.CreateProject(context.Background(), domain.ProvisionSpec{
		MemoryMB: 2048, CPU: 2, DiskMB: 512, ComposePath: "compose.yml",
	})

	require.NoError(t, err)
	assert.Equal(t, "prj-1", project.ID)
	assert.Equal(t, "src-1", project.SourceID)
	assert.Equal(t, 2048, project.VM.MemoryMB)
}

func TestComputeClient_CreateProjectUpstreamFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		w.Write([]byte(`{"error":"capacity exhausted"}`))
	}))
	defer server.Close()

	client := NewComputeClient(Config{BaseURL: server.URL}, nil)
	_, err := client.CreateProject(context.Background(), domain.ProvisionSpec{})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	assert.Contains(t, err.Error(), "capacity exhausted")
}

func TestComputeClient_DeleteProject(t *testing.T) {
	var deleted string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		deleted = r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewComputeClient(Config{BaseURL: server.URL}, nil)
	require.NoError(t, client.DeleteProject(context.Background(), "prj-1"))
	assert.Equal(t, "/api/v1/projects/prj-1", deleted)
}

func TestComputeClient_MarkSourceUploaded(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/api/v1/sources/src-1", r.URL.Path)

		var body map[string]map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "uploaded", body["settings"]["status"])

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := NewComputeClient(Config{BaseURL: server.URL}, nil)
	assert.NoError(t, client.MarkSourceUploaded(context.Background(), "src-1"))
}

func TestNetworkClient_CreateConnection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/connections", r.URL.Path)

		var req domain.ConnectionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(domain.Connection{
			ID:        "conn-1",
			DomainID:  req.DomainID,
			ProjectID: req.ProjectID,
			Port:      req.Port,
			Prefix:    req.Prefix,
		})
	}))
	defer server.Close()

	client := NewNetworkClient(Config{BaseURL: server.URL}, nil)
	conn, err := client.CreateConnection(context.Background(), domain.ConnectionRequest{
		DomainID: "dom-a", ProjectID: "prj-1", Port: 8080, Prefix: "/api",
	})

	require.NoError(t, err)
	assert.Equal(t, "conn-1", conn.ID)
	assert.Equal(t, "dom-a", conn.DomainID)
	assert.Equal(t, 8080, conn.Port)
}

func TestNetworkClient_CreateConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewNetworkClient(Config{BaseURL: server.URL}, nil)
	_, err := client.CreateConnection(context.Background(), domain.ConnectionRequest{})

	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
}

func TestDirectoryClient_LookupDomainID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/domains", r.URL.Path)
		assert.Equal(t, "a.com", r.URL.Query().Get("name"))
		json.NewEncoder(w).Encode(map[string]string{"id": "dom-a", "name": "a.com"})
	}))
	defer server.Close()

	client := NewDirectoryClient(Config{BaseURL: server.URL}, nil)
	id, err := client.LookupDomainID(context.Background(), "a.com")

	require.NoError(t, err)
	assert.Equal(t, "dom-a", id)
}

func TestDirectoryClient_LookupDomainNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewDirectoryClient(Config{BaseURL: server.URL}, nil)
	_, err := client.LookupDomainID(context.Background(), "missing.com")

	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
	assert.ErrorIs(t, err, domain.ErrDomainNotFound)
}
