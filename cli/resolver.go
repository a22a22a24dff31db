package cli

import (
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/atsub/log"
)

// resolve returns a [kong.ConfigurationLoader] that reads flag values from the
// mapping under key in a YAML configuration file.
//
// It can be used with [kong.Configuration] like this:
//
//	kong.Configuration(resolve("config"), "/path/to/config")
//
// Flag names with hyphens (e.g., "log-level") may be written with
// underscores (e.g., "log_level"). Numbers are handed to kong as strings and
// sequences become repeated flag values.
//
// Example configuration file:
//
//	config:
//	  log-level: debug
//	  log_format: json
//	  lenient: true
//	  defs: ~/.config/atsub/defs.yaml
//
// Command-line flags override configuration file values. A file that cannot
// be decoded is ignored with a warning.
func resolve(key string) kong.ConfigurationLoader {
	return func(r io.Reader) (kong.Resolver, error) {
		var doc map[string]any

		if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
			if err != io.EOF {
				log.Warn("ignoring configuration file",
					slog.String("key", key),
					slog.Any("error", err),
				)
			}

			return config{}, nil
		}

		section, ok := doc[key].(map[string]any)
		if !ok {
			return config{}, nil
		}

		cfg := make(config, len(section))
		for name, value := range section {
			cfg[name] = flagInput(value)
		}

		return cfg, nil
	}
}

// config implements [kong.Resolver] for the YAML configuration file.
type config map[string]any

// Validate implements [kong.Resolver].
func (r config) Validate(*kong.Application) error {
	return nil
}

// Resolve implements [kong.Resolver].
func (r config) Resolve(
	_ *kong.Context,
	_ *kong.Path,
	flag *kong.Flag,
) (any, error) {
	if value, ok := r[flag.Name]; ok {
		return value, nil
	}

	if value, ok := r[strings.ReplaceAll(flag.Name, "-", "_")]; ok {
		return value, nil
	}

	return nil, nil
}

// flagInput converts a decoded YAML value to the form kong's mappers parse.
func flagInput(v any) any {
	switch v := v.(type) {
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = flagInput(e)
		}

		return out
	default:
		return v
	}
}
