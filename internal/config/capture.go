package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/persistorai/auditrail/internal/capture"
)

// LoadCaptureOptions builds capture options from capture.DefaultOptions, an
// optional YAML file and AUDIT_* environment overrides, in increasing
// precedence. An empty path skips the file.
//
// Recognized file keys: enabled, track_soft_deletes, soft_delete_property,
// excluded_entities, excluded_properties.
func LoadCaptureOptions(path string) (capture.Options, error) {
	opts := capture.DefaultOptions()
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return opts, fmt.Errorf("loading capture config %s: %w", path, err)
		}
	}

	var err error

	if opts.EnableAutomaticLogging, err = boolSetting(k, "enabled", "AUDIT_ENABLED", opts.EnableAutomaticLogging); err != nil {
		return opts, err
	}

	if opts.TrackSoftDeletes, err = boolSetting(k, "track_soft_deletes", "AUDIT_TRACK_SOFT_DELETES", opts.TrackSoftDeletes); err != nil {
		return opts, err
	}

	if v := envOrDefault("AUDIT_SOFT_DELETE_PROPERTY", k.String("soft_delete_property")); v != "" {
		opts.SoftDeletePropertyName = v
	}

	opts.ExcludedEntityTypes = listSetting(k, "excluded_entities", "AUDIT_EXCLUDED_ENTITIES")
	opts.ExcludedProperties = listSetting(k, "excluded_properties", "AUDIT_EXCLUDED_PROPERTIES")

	return opts, nil
}

func boolSetting(k *koanf.Koanf, key, env string, fallback bool) (bool, error) {
	v := fallback
	if k.Exists(key) {
		v = k.Bool(key)
	}

	raw := os.Getenv(env)
	if raw == "" {
		return v, nil
	}

	switch strings.ToLower(raw) {
	case "true", "1", "yes", "on":
		return true, nil
	case "false", "0", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be a boolean, got %q", env, raw)
	}
}

// listSetting reads a comma-separated env value, or the YAML list when unset.
func listSetting(k *koanf.Koanf, key, env string) []string {
	var items []string
	if raw := os.Getenv(env); raw != "" {
		items = strings.Split(raw, ",")
	} else {
		items = k.Strings(key)
	}

	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}

	return out
}
