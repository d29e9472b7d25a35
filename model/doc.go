// Package model defines stable boundary types for API layers.
//
// Transaction identity (canonical bytes, ids and CIDs) is unaffected by any
// projection. These structs are the only types intended for direct JSON
// serialization by consumers such as the ledgertx CLI's --json output.
package model
