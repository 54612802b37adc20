// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package runtime

import "fmt"

// TrapError is the Fatal "RuntimeTrap" taxonomy member (spec.md §7):
// a contract that misbehaves (unbound symbol, arity mismatch, step
// budget exceeded, malformed metadata encoding) always traps fatally
// rather than returning a recoverable domain error, matching
// ilxd's RuleError/FatalError split in blockchain/errors.go.
type TrapError struct {
	ContractID string
	Phase      string
	Err        error
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("runtime trap in contract %s during %s: %v", e.ContractID, e.Phase, e.Err)
}

func (e *TrapError) Unwrap() error { return e.Err }
