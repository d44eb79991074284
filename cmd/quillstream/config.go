package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// fileConfig is the optional YAML config file. Flags override anything
// set here.
type fileConfig struct {
	// Listen is the address the serve command binds to.
	Listen string `yaml:"listen"`
	// Recording is the default frame recording path for replay.
	Recording string `yaml:"recording"`
	// Document is the default document path for replay and apply.
	Document string `yaml:"document"`
	// DocumentID labels update responses when the payloads omit one.
	DocumentID string `yaml:"document_id"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{
		Listen:     ":8787",
		DocumentID: "doc",
	}
}

// loadFileConfig reads the --config file if one was given, otherwise
// returns defaults.
func loadFileConfig() (fileConfig, error) {
	cfg := defaultFileConfig()
	if configPath == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", configPath, err)
	}
	return cfg, nil
}
