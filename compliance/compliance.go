// Package compliance selects how strictly stored and loaded transactions are
// checked.
package compliance

import "fmt"

// ComplianceMode selects how aggressively a transaction is rejected.
//
// Permissive checks fulfillments and the id. Strict additionally checks the
// structural shape of the transaction (operation, version, keys, condition
// URIs) before anything is written or returned.
type ComplianceMode int

const (
	Permissive ComplianceMode = iota
	Strict
)

func (m ComplianceMode) String() string {
	switch m {
	case Permissive:
		return "permissive"
	case Strict:
		return "strict"
	default:
		return fmt.Sprintf("ComplianceMode(%d)", int(m))
	}
}

// ParseMode maps "permissive" / "strict" to a mode. The empty string is
// Permissive.
func ParseMode(s string) (ComplianceMode, error) {
	switch s {
	case "", "permissive":
		return Permissive, nil
	case "strict":
		return Strict, nil
	default:
		return Permissive, fmt.Errorf("compliance: unknown mode %q (want permissive or strict)", s)
	}
}
