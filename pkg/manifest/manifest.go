// Package manifest persists a record of what a pipeline run installed into
// the bundle, so a later release build can check what it is shipping.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/knarfS/linuxdeploy-plugin-conda/pkg/types"
)

// Filename is the manifest file written into the conda prefix
const Filename = "conda-bundle.yaml"

// Manifest records one completed install
type Manifest struct {
	Architecture    string    `yaml:"architecture"`
	PythonVersion   string    `yaml:"pythonVersion,omitempty"`
	Channels        []string  `yaml:"channels,omitempty"`
	Packages        []string  `yaml:"packages,omitempty"`
	PipRequirements []string  `yaml:"pipRequirements,omitempty"`
	CreatedAt       time.Time `yaml:"createdAt"`
}

// FromSpec builds a manifest from the environment spec that was installed
func FromSpec(arch types.Architecture, spec types.EnvironmentSpec) *Manifest {
	m := &Manifest{
		Architecture:  string(arch),
		PythonVersion: spec.PythonVersion,
		Channels:      spec.Channels,
		Packages:      spec.Packages,
		CreatedAt:     time.Now().UTC(),
	}
	for _, directive := range spec.PipRequirements {
		m.PipRequirements = append(m.PipRequirements, directive.String())
	}
	return m
}

// Write persists the manifest into the given conda prefix
func (m *Manifest) Write(prefix string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(prefix, Filename), data, 0o644)
}

// Read loads the manifest from a conda prefix
func Read(prefix string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(prefix, Filename))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
