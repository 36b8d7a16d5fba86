// Package cryptoutil verifies article bundle integrity.
//
// Bundles are addressed by their SHA-256 digest and may carry a detached
// signature produced by an AWS KMS asymmetric key. [KMSVerifier] fetches
// the public half once and verifies signatures locally.
package cryptoutil
