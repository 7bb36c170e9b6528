// Package config provides configuration loading for quality probes.
package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/neosense/neosense/pkg/catalog"
	"gopkg.in/yaml.v3"
)

// ProbeConfigFile represents the structure of the probes.yaml file.
type ProbeConfigFile struct {
	Probes []ProbeConfig `yaml:"probes" validate:"required,min=1,dive"`
}

// ProbeConfig represents one quality probe in the YAML file.
type ProbeConfig struct {
	Label      string `yaml:"label"       validate:"required"`
	Property   string `yaml:"property"    validate:"required"`
	MetricType string `yaml:"metric_type" validate:"required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoadProbeConfig loads a quality probe set from a YAML file, replacing the
// built-in probes for the quality_metrics operation.
func LoadProbeConfig(filepath string) ([]catalog.QualityProbe, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var configFile ProbeConfigFile
	if err := yaml.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := validate.Struct(configFile); err != nil {
		return nil, fmt.Errorf("invalid probe config %s: %w", filepath, err)
	}

	probes := make([]catalog.QualityProbe, 0, len(configFile.Probes))
	for _, probe := range configFile.Probes {
		probes = append(probes, catalog.QualityProbe{
			Label:      probe.Label,
			Property:   probe.Property,
			MetricType: probe.MetricType,
		})
	}

	return probes, nil
}
