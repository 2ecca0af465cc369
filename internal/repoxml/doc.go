// Package repoxml implements the XML layer of the repository source
// resolution engine: a lenient document tree, schema version detection,
// per-version schema validation, and the forward-compatibility probe for
// documents published under a newer schema than this engine understands.
//
// Architecture:
//   - Document/Element: an in-memory tree built from a fetched byte buffer,
//     with line/column positions for diagnostics
//   - DetectVersion: extracts the integer schema version from the root
//     element's namespace declaration without requiring namespace
//     resolution to succeed
//   - Validator: validates a buffer against the embedded schema definition
//     for a detected version, distinguishing "validator unavailable" from
//     "document invalid"
//   - ProbeNewerSchema: extracts the self-update-capable subset from a
//     document whose schema version is newer than LatestVersion
//
// The package never mutates its inputs; every pass constructs a fresh
// reader over the owned byte buffer.
package repoxml
