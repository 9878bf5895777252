// Package pagination provides paging and sorting for flag listings printed
// by the CLI.
//
// It contains:
//   - Params: --limit/--offset and --page/--page-size handling
//   - Meta: paging metadata attached to JSON output
//   - Sort: ordering of flag rows by a named field
package pagination
