// Package seed loads the RBAC catalog applied when the service starts.
package seed

import (
	_ "embed"
	"fmt"
	"os"

	"banco/internal/model"

	"gopkg.in/yaml.v2"
)

//go:embed default_catalog.yaml
var defaultCatalog []byte

type PermissionEntry struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
}

// Catalog lists role descriptions, permissions and the grants between them
type Catalog struct {
	Roles       map[model.RoleName]string   `yaml:"roles"`
	Permissions []PermissionEntry           `yaml:"permissions"`
	Grants      map[model.RoleName][]string `yaml:"grants"`
}

// Default returns the embedded catalog
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the embedded default when path is empty
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rbac catalog: %w", err)
	}
	return Parse(raw)
}

func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.UnmarshalStrict(raw, &c); err != nil {
		return nil, fmt.Errorf("parse rbac catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate rejects unknown role kinds and grants naming undeclared permissions
func (c *Catalog) Validate() error {
	for name := range c.Roles {
		if !name.IsValid() {
			return fmt.Errorf("rbac catalog: unknown role %q", name)
		}
	}
	declared := make(map[string]bool, len(c.Permissions))
	for _, p := range c.Permissions {
		if p.Name == "" {
			return fmt.Errorf("rbac catalog: permission without name")
		}
		if declared[p.Name] {
			return fmt.Errorf("rbac catalog: permission %q declared twice", p.Name)
		}
		declared[p.Name] = true
	}
	for role, perms := range c.Grants {
		if !role.IsValid() {
			return fmt.Errorf("rbac catalog: grant for unknown role %q", role)
		}
		for _, p := range perms {
			if !declared[p] {
				return fmt.Errorf("rbac catalog: role %q granted undeclared permission %q", role, p)
			}
		}
	}
	return nil
}

// RoleDescription falls back to the role label when the catalog has no text
func (c *Catalog) RoleDescription(name model.RoleName) string {
	if d, ok := c.Roles[name]; ok && d != "" {
		return d
	}
	return name.Label()
}
