package settings

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Load reads settings from an optional file, layered with GITINSPECT_*
// environment variables and the defaults from Default. The file format is
// inferred from the extension (json, yaml, toml). An empty path loads
// defaults and environment only.
func Load(path string) (Settings, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("GITINSPECT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		// JSON files are the machine-written settings format; check them
		// against the schema before decoding so typos in keys surface as
		// schema violations instead of silently ignored fields.
		if strings.HasSuffix(path, ".json") {
			doc, err := os.ReadFile(path)
			if err != nil {
				return Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
			}

			if err := ValidateJSON(doc); err != nil {
				return Settings{}, fmt.Errorf("settings file %s: %w", path, err)
			}
		}

		v.SetConfigFile(path)

		if err := v.ReadInConfig(); err != nil {
			return Settings{}, fmt.Errorf("reading settings file %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, fmt.Errorf("parsing settings: %w", err)
	}

	// The parsed settings are returned alongside validation errors so
	// callers that layer more sources on top can keep what was read.
	return s, s.Validate()
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("depth", d.Depth)
	v.SetDefault("n_files", d.NFiles)
	v.SetDefault("extensions", d.Extensions)
	v.SetDefault("copy_move", d.CopyMove)
	v.SetDefault("blame_exclusions", d.BlameExclusions)
	v.SetDefault("sort_key", d.SortKey)
	v.SetDefault("max_workers", d.MaxWorkers)
	v.SetDefault("blame_workers", d.BlameWorkers)
	v.SetDefault("log_level", d.LogLevel)
	v.SetDefault("log_format", d.LogFormat)
}
