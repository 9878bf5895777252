package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyLaunchDarkly = "launchdarkly"
	keyAudit        = "audit"
	keyScan         = "scan"
	keyCache        = "cache"
	keyOutput       = "output"
	keyLogging      = "logging"
)

// knownTopLevelKeys lists the YAML keys that correspond to exported Config fields.
// Keys not in this list are silently ignored during merge.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyLaunchDarkly: true,
	keyAudit:        true,
	keyScan:         true,
	keyCache:        true,
	keyOutput:       true,
	keyLogging:      true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target. Keys absent in the overlay are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	var overlay map[string]interface{}
	if err = yaml.Unmarshal(data, &overlay); err != nil {
		return fmt.Errorf("parsing overlay YAML from %s: %w", overlayPath, err)
	}

	// Empty or comment-only file: nothing to merge.
	if len(overlay) == 0 {
		return nil
	}

	for key, value := range overlay {
		if !knownTopLevelKeys[key] {
			continue
		}

		sectionBytes, marshalErr := yaml.Marshal(value)
		if marshalErr != nil {
			return fmt.Errorf("re-marshalling overlay section %q: %w", key, marshalErr)
		}

		if err = unmarshalSection(target, key, sectionBytes); err != nil {
			return fmt.Errorf("applying overlay section %q: %w", key, err)
		}
	}

	return nil
}

// unmarshalSection replaces one section of target. Each section starts from
// its built-in defaults so that fields the overlay omits are not inherited
// from the user config.
func unmarshalSection(target *Config, key string, data []byte) error {
	defaults := New()
	switch key {
	case keyLaunchDarkly:
		v := defaults.LaunchDarkly
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		// Credentials only ever come from the user config or environment.
		v.APIKey = target.LaunchDarkly.APIKey
		target.LaunchDarkly = v
		return nil
	case keyAudit:
		v := defaults.Audit
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Audit = v
		return nil
	case keyScan:
		v := defaults.Scan
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Scan = v
		return nil
	case keyCache:
		v := defaults.Cache
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Cache = v
		return nil
	case keyOutput:
		v := defaults.Output
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Output = v
		return nil
	case keyLogging:
		v := defaults.Logging
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
		return nil
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
}
