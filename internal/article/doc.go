// Package article is the closed registry of article identifiers served by
// the site.
//
// Every article the site knows about has an [ID] constant in this package.
// The set is fixed at compile time: adding or removing an article is a
// source change. Code that receives identifiers from outside the binary
// (URL path segments, bundle file names, CLI arguments) must go through
// [Parse] or [IsValid] before using them as lookup keys.
//
// The registry holds no article content. Bodies live in content bundles
// (see package content) and are rendered by package render.
package article
