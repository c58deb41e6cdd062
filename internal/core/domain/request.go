package domain

import (
	"fmt"
	"path"
	"strings"
)

// =============================================================================
// Request Types
// =============================================================================

// RedirectSpec maps a project port to a domain, optionally under a path prefix.
type RedirectSpec struct {
	Port   int    `json:"port"`
	Domain string `json:"domain"`
	Prefix string `json:"prefix,omitempty"`
}

// EnvVar is a single environment variable passed to the deployed source.
type EnvVar struct {
	Key      string `json:"key"`
	Value    string `json:"value"`
	IsSecret bool   `json:"isSecret"`
}

// DeploymentRequest is the validated, immutable input of one saga execution.
type DeploymentRequest struct {
	DeployCode  string
	MemoryMB    int
	CPU         int
	DiskMB      int
	ComposePath string
	Redirects   []RedirectSpec
	Env         []EnvVar
}

// =============================================================================
// Validation Limits
// =============================================================================

const (
	// DeployCodeLength is the exact length of a deploy code.
	DeployCodeLength = 6

	// MinCPU and MaxCPU bound the requested CPU count.
	MinCPU = 1
	MaxCPU = 8

	// MinDiskMB is the smallest allowed disk size.
	MinDiskMB = 256
)

// memoryTiers is the fixed set of allowed RAM sizes in MB.
var memoryTiers = map[int]bool{
	512:  true,
	1024: true,
	2048: true,
	4096: true,
	8192: true,
}

// MemoryTiers returns the allowed RAM sizes in ascending order.
func MemoryTiers() []int {
	return []int{512, 1024, 2048, 4096, 8192}
}

// =============================================================================
// Request Construction
// =============================================================================

// NewDeploymentRequest validates caller input and builds an immutable request.
// All failures are classified as BadRequest.
func NewDeploymentRequest(deployCode string, memoryMB, cpu, diskMB int, composePath string, redirects []RedirectSpec, env []EnvVar) (*DeploymentRequest, error) {
	if len(deployCode) != DeployCodeLength {
		return nil, E(KindBadRequest, fmt.Sprintf("deploy_code must be exactly %d characters", DeployCodeLength), nil)
	}
	if !memoryTiers[memoryMB] {
		return nil, E(KindBadRequest, fmt.Sprintf("ram must be one of %v MB", MemoryTiers()), nil)
	}
	if cpu < MinCPU || cpu > MaxCPU {
		return nil, E(KindBadRequest, fmt.Sprintf("cpu must be between %d and %d", MinCPU, MaxCPU), nil)
	}
	if diskMB < MinDiskMB {
		return nil, E(KindBadRequest, fmt.Sprintf("disk must be at least %d MB", MinDiskMB), nil)
	}
	if err := validateComposePath(composePath); err != nil {
		return nil, err
	}
	for i, r := range redirects {
		if r.Port < 1 || r.Port > 65535 {
			return nil, E(KindBadRequest, fmt.Sprintf("redirects[%d]: port %d out of range", i, r.Port), nil)
		}
		if strings.TrimSpace(r.Domain) == "" {
			return nil, E(KindBadRequest, fmt.Sprintf("redirects[%d]: domain is required", i), nil)
		}
	}
	for i, e := range env {
		if strings.TrimSpace(e.Key) == "" {
			return nil, E(KindBadRequest, fmt.Sprintf("env[%d]: key is required", i), nil)
		}
	}

	return &DeploymentRequest{
		DeployCode:  deployCode,
		MemoryMB:    memoryMB,
		CPU:         cpu,
		DiskMB:      diskMB,
		ComposePath: composePath,
		Redirects:   redirects,
		Env:         env,
	}, nil
}

// validateComposePath rejects empty, absolute, and traversing paths.
func validateComposePath(p string) error {
	if strings.TrimSpace(p) == "" {
		return E(KindBadRequest, "compose_path is required", nil)
	}
	if strings.HasPrefix(p, "/") {
		return E(KindBadRequest, "compose_path must be relative", nil)
	}
	cleaned := path.Clean(p)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return E(KindBadRequest, "compose_path must not traverse outside the archive", nil)
	}
	return nil
}

// ProvisionSpec builds the sizing spec sent to the Compute Provisioner.
func (r *DeploymentRequest) ProvisionSpec() ProvisionSpec {
	return ProvisionSpec{
		MemoryMB:    r.MemoryMB,
		CPU:         r.CPU,
		DiskMB:      r.DiskMB,
		ComposePath: r.ComposePath,
		Env:         r.Env,
	}
}
