// Package tx holds the transaction records exchanged with the ledger.
//
// Values are plain data. Asset and metadata payloads are opaque and treated as
// read-only: nothing in this module mutates a payload it was handed.
package tx
