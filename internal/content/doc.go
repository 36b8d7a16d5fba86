// Package content owns the article bundle: a tar.gz holding one markdown
// file per registered article plus a manifest.json.
//
//   - [Loader] resolves the active bundle digest from SSM, downloads it from
//     S3, checks its SHA-256 and optional KMS signature, and extracts it in memory.
//   - [Manager] publishes the active [Snapshot] through an atomic pointer so
//     readers never lock.
//   - [Watcher] polls for a new digest and swaps bundles that pass
//     [ValidateSnapshot].
//   - [CheckArticles] compares a bundle's articles/ directory against the
//     closed registry in package article.
//
// Extraction is bounded: compressed size, per-file size, total size, and
// entry paths are all checked before anything reaches the Snapshot.
package content
