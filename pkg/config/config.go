// Package config is the settings loader (spec.md §4.1, component A): a
// single structured document read once at boot, extracting the fixed set of
// named settings the rest of the engine depends on.
package config

import (
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/flowforge/engine/pkg/logger"
)

// Settings is the fixed set spec.md §4.1 names.
type Settings struct {
	WorkflowsFolder   string `koanf:"workflowsFolder"`
	TrashFolder       string `koanf:"trashFolder"`
	TempFolder        string `koanf:"tempFolder"`
	XSD               string `koanf:"xsd"`
	TasksNamesFile    string `koanf:"tasksNamesFile"`
	TasksSettingsFile string `koanf:"tasksSettingsFile"`
	ConnectionString  string `koanf:"connectionString"`
}

// envPrefix lets any setting be overridden for container deployments, e.g.
// WEXCTL_TEMPFOLDER=/var/run/flowforge/temp.
const envPrefix = "WEXCTL_"

// Load reads path (a YAML document) layered over Settings' zero values and
// under an environment-variable override layer, returning the resolved
// Settings. A missing or malformed field is logged and left at its zero
// value rather than failing Load — spec.md §4.1 is explicit that the engine
// boots regardless and lets downstream collaborators surface the fault.
func Load(path string) (*Settings, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Settings{}, "koanf"), nil); err != nil {
		logger.Warn("settings: failed to load defaults", "error", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			logger.Warn("settings: failed to load file, continuing with defaults", "path", path, "error", err)
		}
	}

	envToField := map[string]string{
		"WORKFLOWSFOLDER":   "workflowsFolder",
		"TRASHFOLDER":       "trashFolder",
		"TEMPFOLDER":        "tempFolder",
		"XSD":               "xsd",
		"TASKSNAMESFILE":    "tasksNamesFile",
		"TASKSSETTINGSFILE": "tasksSettingsFile",
		"CONNECTIONSTRING":  "connectionString",
	}
	envProvider := env.Provider(".", env.Opt{
		Prefix: envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			key := strings.TrimPrefix(k, envPrefix)
			if field, ok := envToField[key]; ok {
				return field, v
			}
			return "", nil
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		logger.Warn("settings: failed to load environment overrides", "error", err)
	}

	var s Settings
	if err := k.Unmarshal("", &s); err != nil {
		logger.Warn("settings: failed to unmarshal, returning empty settings", "error", err)
		return &Settings{}, nil
	}

	if s.TempFolder != "" {
		if err := os.MkdirAll(s.TempFolder, 0o750); err != nil {
			logger.Error("settings: failed to create temp folder", "path", s.TempFolder, "error", err)
		}
	}

	return &s, nil
}
