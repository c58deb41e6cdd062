package domain

import "time"

// =============================================================================
// Project Projection
// =============================================================================

// SourceStatus is the lifecycle status of a project's source descriptor.
type SourceStatus string

const (
	SourceStatusEmpty    SourceStatus = "empty"
	SourceStatusUploaded SourceStatus = "uploaded"
	SourceStatusDeployed SourceStatus = "deployed"
)

// VM describes the compute sizing of a project.
type VM struct {
	MemoryMB int `json:"memory"`
	CPU      int `json:"cpu"`
	DiskMB   int `json:"disk"`
}

// SourceSettings holds the deployable settings of a source descriptor.
type SourceSettings struct {
	Status      SourceStatus `json:"status"`
	ComposePath string       `json:"compose_path,omitempty"`
}

// Source is the source descriptor attached to a project.
type Source struct {
	ID       string         `json:"id"`
	Settings SourceSettings `json:"settings"`
}

// Project is the compute-resource projection returned to the caller.
// It is created by the Compute Provisioner; the gateway never mutates it
// except through provisioner calls.
type Project struct {
	ID        string    `json:"id"`
	SourceID  string    `json:"source_id"`
	VM        VM        `json:"vm"`
	Source    Source    `json:"source"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// =============================================================================
// Provisioning Spec
// =============================================================================

// ProvisionSpec is the sizing/compose spec sent to the Compute Provisioner.
type ProvisionSpec struct {
	MemoryMB    int      `json:"memory_mb"`
	CPU         int      `json:"cpu"`
	DiskMB      int      `json:"disk_mb"`
	ComposePath string   `json:"compose_path"`
	Env         []EnvVar `json:"env,omitempty"`
}

// =============================================================================
// Network Connections
// =============================================================================

// ConnectionRequest asks the Network Provisioner to wire one redirect.
type ConnectionRequest struct {
	DomainID  string `json:"domain_id"`
	ProjectID string `json:"project_id"`
	Port      int    `json:"port"`
	Prefix    string `json:"prefix,omitempty"`
}

// Connection is a routing record created by the Network Provisioner.
type Connection struct {
	ID        string `json:"id"`
	DomainID  string `json:"domain_id"`
	ProjectID string `json:"project_id"`
	Port      int    `json:"port"`
	Prefix    string `json:"prefix,omitempty"`
}

// =============================================================================
// Deploy Task
// =============================================================================

// DeployTask is an asynchronous source-deployment submission. The gateway's
// contract is submission acknowledged, not deployment completed.
type DeployTask struct {
	ProjectID   string   `json:"project_id"`
	SourceID    string   `json:"source_id"`
	ArchivePath string   `json:"archive_path"`
	ComposePath string   `json:"compose_path"`
	Env         []EnvVar `json:"env,omitempty"`
}
