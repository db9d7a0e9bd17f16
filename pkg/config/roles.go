package config

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"sigs.k8s.io/yaml"
)

//go:embed roles.default.yaml
var defaultRoles []byte

// LoadRoles reads the role hierarchy from a YAML or JSON file. An empty path
// yields the built-in hierarchy.
func LoadRoles(path string) (types.Hierarchy, error) {
	data := defaultRoles
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return types.Hierarchy{}, fmt.Errorf("read roles file: %w", err)
		}
		data = b
	}
	return ParseRoles(data)
}

// ParseRoles decodes and validates a role hierarchy document.
func ParseRoles(data []byte) (types.Hierarchy, error) {
	var defs map[string]types.RoleDefinition
	if err := yaml.UnmarshalStrict(data, &defs); err != nil {
		return types.Hierarchy{}, fmt.Errorf("%w: roles: %v", ErrInvalidConfig, err)
	}
	if _, ok := defs[types.RootRole]; !ok {
		return types.Hierarchy{}, fmt.Errorf("%w: roles: %q role is not defined", ErrInvalidConfig, types.RootRole)
	}
	for name, def := range defs {
		for i, issue := range def.Issues {
			if issue.Type <= 0 || issue.Role == "" {
				return types.Hierarchy{}, fmt.Errorf("%w: roles: %s.issues[%d] needs a positive type and a role", ErrInvalidConfig, name, i)
			}
		}
	}
	return types.NewHierarchy(defs), nil
}
