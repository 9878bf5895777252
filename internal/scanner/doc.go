// Package scanner searches a source tree for references to feature flag keys.
//
// The walk is lexical and depth-first, skips excluded directories by name,
// filters files by extension and size, and then reads the surviving files on
// a bounded worker pool. Files are decoded as UTF-8, falling back to
// ISO-8859-1 for legacy encodings; files that look binary are skipped.
package scanner
