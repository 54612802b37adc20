// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package lurk

import "fmt"

// applyBuiltin dispatches a symbol-headed call to either a primitive
// list/arithmetic operator or a Host function (spec.md §6's fixed
// table: db-lookup, db-get, db-set, db-del, zkas-lookup, merkle-add,
// get-current-slot, plus Pedersen/Poseidon).
func (ev *evaluator) applyBuiltin(sym Symbol, args []Value) (Value, error) {
	switch sym {
	case "cons":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: cons takes 2 arguments", ErrTrap)
		}
		return Cons(args[0], args[1]), nil
	case "car":
		return carOf(args)
	case "cdr":
		return cdrOf(args)
	case "atom":
		if len(args) != 1 {
			return nil, fmt.Errorf("%w: atom takes 1 argument", ErrTrap)
		}
		if _, ok := args[0].(*Pair); ok {
			return Nil, nil
		}
		return Symbol("t"), nil
	case "eq":
		if len(args) != 2 {
			return nil, fmt.Errorf("%w: eq takes 2 arguments", ErrTrap)
		}
		if equalValue(args[0], args[1]) {
			return Symbol("t"), nil
		}
		return Nil, nil
	case "+", "-", "*", "/", "<", ">", "=":
		return arith(sym, args)
	case "db-lookup":
		return ev.hostDBLookup(args)
	case "db-get":
		return ev.hostDBGet(args)
	case "db-set":
		return ev.hostDBSet(args)
	case "db-del":
		return ev.hostDBDel(args)
	case "zkas-lookup":
		return ev.hostZkasLookup(args)
	case "merkle-add":
		return ev.hostMerkleAdd(args)
	case "get-current-slot":
		return Int(ev.host.CurrentSlot()), nil
	case "poseidon":
		return ev.hostPoseidon(args)
	case "pedersen":
		return ev.hostPedersen(args)
	default:
		return nil, fmt.Errorf("%w: unbound symbol %q", ErrTrap, sym)
	}
}

func carOf(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: car takes 1 argument", ErrTrap)
	}
	p, ok := args[0].(*Pair)
	if !ok {
		return nil, fmt.Errorf("%w: car of non-pair", ErrTrap)
	}
	return p.Car, nil
}

func cdrOf(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: cdr takes 1 argument", ErrTrap)
	}
	p, ok := args[0].(*Pair)
	if !ok {
		return nil, fmt.Errorf("%w: cdr of non-pair", ErrTrap)
	}
	return p.Cdr, nil
}

func equalValue(a, b Value) bool {
	switch x := a.(type) {
	case Symbol:
		y, ok := b.(Symbol)
		return ok && x == y
	case Int:
		y, ok := b.(Int)
		return ok && x == y
	case Str:
		y, ok := b.(Str)
		return ok && x == y
	case nilValue:
		return IsNil(b)
	default:
		return false
	}
}

func arith(op Symbol, args []Value) (Value, error) {
	ints := make([]int64, len(args))
	for i, a := range args {
		n, ok := a.(Int)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects integer arguments", ErrTrap, op)
		}
		ints[i] = int64(n)
	}
	switch op {
	case "+":
		var acc int64
		for _, n := range ints {
			acc += n
		}
		return Int(acc), nil
	case "*":
		acc := int64(1)
		for _, n := range ints {
			acc *= n
		}
		return Int(acc), nil
	case "-":
		if len(ints) == 0 {
			return nil, fmt.Errorf("%w: - needs at least 1 argument", ErrTrap)
		}
		acc := ints[0]
		for _, n := range ints[1:] {
			acc -= n
		}
		return Int(acc), nil
	case "/":
		if len(ints) != 2 || ints[1] == 0 {
			return nil, fmt.Errorf("%w: / expects 2 args, nonzero divisor", ErrTrap)
		}
		return Int(ints[0] / ints[1]), nil
	case "<":
		return boolValue(len(ints) == 2 && ints[0] < ints[1]), nil
	case ">":
		return boolValue(len(ints) == 2 && ints[0] > ints[1]), nil
	case "=":
		return boolValue(len(ints) == 2 && ints[0] == ints[1]), nil
	}
	return nil, fmt.Errorf("%w: unknown arithmetic op %s", ErrTrap, op)
}

func boolValue(b bool) Value {
	if b {
		return Symbol("t")
	}
	return Nil
}
