package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// ComponentDescriptor is the small self-describing header stored as
// impl.cfg beside each component's graph-storage files, so Deserialize can
// pick the right concrete implementation without consulting anything else.
type ComponentDescriptor struct {
	Impl          string `toml:"impl"`
	FormatVersion int    `toml:"format_version"`
}

const implConfigFileName = "impl.cfg"

// LoadComponentDescriptor reads impl.cfg from dir.
func LoadComponentDescriptor(dir string) (ComponentDescriptor, error) {
	path := filepath.Join(dir, implConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return ComponentDescriptor{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var desc ComponentDescriptor
	if err := toml.Unmarshal(data, &desc); err != nil {
		return ComponentDescriptor{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return desc, nil
}

// SaveComponentDescriptor writes impl.cfg to dir, creating dir if needed.
func SaveComponentDescriptor(dir string, desc ComponentDescriptor) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("config: create %s: %w", dir, err)
	}
	data, err := toml.Marshal(desc)
	if err != nil {
		return fmt.Errorf("config: marshal impl.cfg: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, implConfigFileName), data, 0o644)
}
