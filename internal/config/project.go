package config

// ProjectConfig holds project-specific configuration for a single manifest.
// This allows customizing audit behavior per project in a multi-project
// batch run.
type ProjectConfig struct {
	// RegistryFile overrides the global registry file for this project.
	// If empty, the global registry file is used.
	RegistryFile string `yaml:"registryFile,omitempty"`

	// CargoPath overrides the cargo binary used to resolve this project.
	// If empty, the global cargo path is used.
	CargoPath string `yaml:"cargoPath,omitempty"`

	// ResolveTimeoutSeconds overrides the global resolve timeout for this
	// project. If zero, the global timeout is used.
	ResolveTimeoutSeconds int `yaml:"resolveTimeoutSeconds,omitempty"`

	// Ignore lists dependency names to exclude from gap classification.
	// Ignored dependencies never appear in reports or write-back entries.
	Ignore []string `yaml:"ignore,omitempty"`
}

// File represents the structure of the .mirrorscan configuration file.
type File struct {
	// RegistryFile is the path to the offline registry listing applied to
	// all projects unless overridden per project.
	RegistryFile string `yaml:"registryFile,omitempty"`

	// Projects maps manifest paths to their project-specific configurations.
	// Keys should be the manifest path as passed on the command line
	// (e.g., "./services/api/Cargo.toml").
	Projects map[string]ProjectConfig `yaml:"projects,omitempty"`

	// Defaults contains default project configuration applied to all
	// projects unless overridden in the project-specific configuration.
	Defaults ProjectConfig `yaml:"defaults,omitempty"`
}

// GetProjectConfig returns the configuration for a specific manifest path.
// It merges the project-specific configuration with defaults.
func (cf *File) GetProjectConfig(manifestPath string) ProjectConfig {
	// Start with defaults
	result := cf.Defaults

	// Override with project-specific configuration if present
	if projectConfig, ok := cf.Projects[manifestPath]; ok {
		if projectConfig.RegistryFile != "" {
			result.RegistryFile = projectConfig.RegistryFile
		}
		if projectConfig.CargoPath != "" {
			result.CargoPath = projectConfig.CargoPath
		}
		if projectConfig.ResolveTimeoutSeconds != 0 {
			result.ResolveTimeoutSeconds = projectConfig.ResolveTimeoutSeconds
		}
		if len(projectConfig.Ignore) > 0 {
			result.Ignore = projectConfig.Ignore
		}
	}

	return result
}
