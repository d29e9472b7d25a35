// Package ccond implements the ed25519-sha-256 type of the crypto-conditions
// encoding family: DER fulfillments, condition fingerprints, binary conditions
// and their URI forms.
//
// Only the ed25519-sha-256 type is supported. Field lengths are fixed by the
// protocol (32-byte public key, 64-byte signature) and are never negotiated.
package ccond
