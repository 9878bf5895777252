// Package cache provides file-based caching with TTL expiration for flag data.
//
// The cache sits between the CLI and the LaunchDarkly API so repeated audits
// within a short window do not refetch the whole flag catalogue. Key features:
//   - One file per entry under the user cache directory (ldaudit/), written
//     to a unique temp file and renamed into place so readers never observe a
//     partially written entry, even across processes sharing the directory
//   - A JSON header line ahead of the payload so entries can be listed
//     without decoding payloads
//   - TTL evaluated at read time against the store's configured TTL
//     (0 disables hits entirely)
//   - SHA256-based keys over order-normalized query parameters
//
// Corrupt, truncated or checksum-mismatched entries are reported as misses
// by Lookup so a damaged cache never blocks a fresh fetch.
package cache
