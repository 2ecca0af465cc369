// Package source implements the repository source resolution orchestrator.
//
// A Source is a remote package-index endpoint identified by URL. Loading a
// source is a bounded, synchronous state machine: normalize the URL, fetch
// the index (with a single canonical-filename fallback), detect the schema
// version, validate or probe the document, parse the packages, and publish
// the result atomically. Every failure mode is converted into one final
// descriptive string; nothing escapes the orchestrator as a panic or an
// unclassified error, and a failed load never discards a source's
// previously known packages.
//
// A single Source must not be loaded concurrently; distinct Sources may be
// loaded in parallel. The only shared state between loads is the embedded,
// read-only schema set.
package source
