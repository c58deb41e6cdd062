// Package compose validates Docker Compose specifications carried inside
// uploaded archives. This is part of the Functional Core - all functions are
// pure with no I/O.
package compose

import (
	"context"
	"errors"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Errors
// =============================================================================

var (
	// ErrEmptySpec is returned when the compose file is empty.
	ErrEmptySpec = errors.New("compose spec is empty")

	// ErrInvalidYAML is returned when the compose file is not valid YAML.
	ErrInvalidYAML = errors.New("invalid YAML syntax")

	// ErrNoServices is returned when the compose file defines no services.
	ErrNoServices = errors.New("compose spec must define at least one service")
)

// =============================================================================
// Verification
// =============================================================================

// VerifySpec checks that content is a structurally valid compose file with at
// least one service. It performs no security scanning of the spec; that is a
// separate subsystem's concern.
func VerifySpec(content []byte) error {
	if strings.TrimSpace(string(content)) == "" {
		return ErrEmptySpec
	}

	var dict map[string]interface{}
	if err := yaml.Unmarshal(content, &dict); err != nil || dict == nil {
		return ErrInvalidYAML
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: content,
				Config:  dict,
			},
		},
	}, func(opts *loader.Options) {
		opts.SetProjectName("unideploy-verify", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = true // env values are supplied at deploy time
		// In-memory content, nothing to resolve on disk.
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		return err
	}

	if len(project.Services) == 0 {
		return ErrNoServices
	}

	return nil
}
