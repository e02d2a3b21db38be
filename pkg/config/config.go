// Package config loads and writes the human-editable TOML configuration
// files used by the corpus manager and graph storage layer.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// CorpusSizeUnit is either Tokens or a named Segmentation.
type CorpusSizeUnit struct {
	Tokens      bool   `toml:"tokens,omitempty"`
	Segmentation string `toml:"segmentation,omitempty"`
}

// CorpusSize records the corpus' declared size, used to size progress bars
// and sanity-check import results.
type CorpusSize struct {
	Quantity uint64         `toml:"quantity"`
	Unit     CorpusSizeUnit `toml:"unit"`
}

// View holds presentation defaults for a corpus.
type View struct {
	BaseTextSegmentation string `toml:"base_text_segmentation"`
}

// CorpusConfig is the parsed form of corpus-config.toml.
type CorpusConfig struct {
	View       View       `toml:"view"`
	CorpusSize CorpusSize `toml:"corpus_size"`
}

// Default returns the configuration used when corpus-config.toml is absent.
func Default() CorpusConfig {
	return CorpusConfig{
		View: View{BaseTextSegmentation: ""},
		CorpusSize: CorpusSize{
			Quantity: 0,
			Unit:     CorpusSizeUnit{Tokens: true},
		},
	}
}

const configFileName = "corpus-config.toml"

// Load reads corpus-config.toml from dir, returning defaults if the file
// does not exist.
func Load(dir string) (CorpusConfig, error) {
	path := filepath.Join(dir, configFileName)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return CorpusConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg CorpusConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return CorpusConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to corpus-config.toml in dir.
func Save(dir string, cfg CorpusConfig) error {
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, configFileName), data, 0o644)
}
