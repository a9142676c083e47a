package directory

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed roles.yaml
var defaultRoles []byte

type fileEntry struct {
	Digit *int `yaml:"digit"`
	Role  `yaml:",inline"`
}

type file struct {
	Roles []fileEntry `yaml:"roles"`
}

// Parse decodes a YAML role table. Relative dial tone paths are resolved
// against baseDir.
func Parse(data []byte, baseDir string) (*Directory, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("directory: parse roles: %w", err)
	}
	d := &Directory{}
	for i, e := range f.Roles {
		if e.Digit == nil {
			return nil, fmt.Errorf("%w: entry %d has no digit", ErrInvalidRole, i)
		}
		role := e.Role
		if role.DialTone != "" && baseDir != "" && !filepath.IsAbs(role.DialTone) {
			role.DialTone = filepath.Join(baseDir, role.DialTone)
		}
		if err := d.assign(*e.Digit, role); err != nil {
			return nil, err
		}
	}
	return d, nil
}

// Load reads the role table at path.
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("directory: read %s: %w", path, err)
	}
	return Parse(data, filepath.Dir(path))
}

// LoadOrDefault reads path when it exists and falls back to the built-in table
// otherwise. The boolean reports whether the built-in table was used.
func LoadOrDefault(path string) (*Directory, bool, error) {
	if path != "" {
		d, err := Load(path)
		if err == nil {
			return d, false, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, false, err
		}
	}
	d, err := Default()
	return d, true, err
}

// Default returns the built-in role table. Dial tone paths are relative to the
// working directory.
func Default() (*Directory, error) {
	return Parse(defaultRoles, "")
}
