// Package sources reads transform configuration documents from local files and from
// in-memory payloads fetched from transform engines.
//
// The package defines the DocumentReader interface which abstracts parsing a
// document and handing it to a caller supplied DocumentFunc. The reader never
// keeps state about the documents it reads: accumulation is the caller's job.
//
// Architecture:
//   - DocumentReader: reads a path (file or directory) or a single in-memory document
//   - DocumentValidator: checks a document against the embedded JSON schema and parses it
//   - DocumentFunc: callback invoked once per successfully parsed document
//
// Local files may use JWCC (JSON with comments and trailing commas); they are
// standardized to plain JSON before validation.
package sources
