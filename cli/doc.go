// Package cli contains the command line interface for atsub.
//
// # Usage
//
//	atsub [flags] [expand] [CONTEXT...]
//	atsub [flags] check|refs|preview|init|version
//
// The template is read from the --source files (or stdin with "-"), and its
// variables from the --defs document:
//
//	slots: [req]
//	vars:
//	  m:  {field: req.method}
//	  id: {field: req.id, base: 16, width: 8, fill: "0"}
//
// Each YAML document of the CONTEXT files is one context tuple, mapping slot
// names to values:
//
//	atsub -d defs.yaml -s page.tmpl requests.yaml
//
// # Configuration
//
// Default flag values are read from the "config" mapping of the YAML file in
// the user configuration directory (see the init command), and from the JSON
// file of the same name with a ".json" suffix. Command-line flags override
// both.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (text, json)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, none, etc.)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o atsub .
//
//   - --pprof-mode: Enable profiling (see --help for the modes)
//   - --pprof-dir: Set profile output directory
package cli
