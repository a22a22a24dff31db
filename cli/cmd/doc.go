// Package cmd implements the atsub subcommands.
//
// Every command reads its template from the --source files, resolves variable
// names against the registry described by the --defs document, and takes its
// context tuples from YAML document streams. Shared state reaches the
// commands through the [context.Context] passed to Run: see [WithContext],
// [WithOptions], and [WithSourceFiles].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path to
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
