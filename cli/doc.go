// Package cli implements the jobharvest command line.
//
// The root command harvests one careers site and writes CSV, plus optional
// JSON and SQLite outputs. Settings come from a YAML file, JOBHARVEST_*
// environment variables and flags, in increasing order of precedence.
// Subcommands inspect endpoints, print the version and start the MCP server.
package cli
