// Package keys handles Ed25519 key material for transaction signing.
//
// Keys travel as Base58 strings. A private key is either a 32-byte seed or
// the 64-byte expanded form (seed followed by public key). Callers that decode
// private keys own the returned bytes and should Wipe them when done.
//
// KeyStore is a local-first filesystem store for root seeds and role seeds
// derived from them.
package keys
