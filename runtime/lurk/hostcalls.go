// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package lurk

import "fmt"

func valueBytes(v Value) ([]byte, error) {
	switch x := v.(type) {
	case Bytes:
		return x, nil
	case Str:
		return []byte(x), nil
	default:
		return nil, fmt.Errorf("%w: expected byte value", ErrTrap)
	}
}

func (ev *evaluator) hostDBLookup(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: db-lookup takes (tree key)", ErrTrap)
	}
	tree, ok := args[0].(Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: db-lookup tree must be a symbol", ErrTrap)
	}
	key, err := valueBytes(args[1])
	if err != nil {
		return nil, err
	}
	val, found, err := ev.host.DBLookup(tree, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return Nil, nil
	}
	return Bytes(val), nil
}

func (ev *evaluator) hostDBGet(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: db-get takes (handle key)", ErrTrap)
	}
	key, err := valueBytes(args[1])
	if err != nil {
		return nil, err
	}
	val, found, err := ev.host.DBGet(args[0], key)
	if err != nil {
		return nil, err
	}
	if !found {
		return Nil, nil
	}
	return Bytes(val), nil
}

func (ev *evaluator) hostDBSet(args []Value) (Value, error) {
	if len(args) != 3 {
		return nil, fmt.Errorf("%w: db-set takes (handle key value)", ErrTrap)
	}
	key, err := valueBytes(args[1])
	if err != nil {
		return nil, err
	}
	val, err := valueBytes(args[2])
	if err != nil {
		return nil, err
	}
	ev.host.DBSet(args[0], key, val)
	return Nil, nil
}

func (ev *evaluator) hostDBDel(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: db-del takes (handle key)", ErrTrap)
	}
	key, err := valueBytes(args[1])
	if err != nil {
		return nil, err
	}
	ev.host.DBDel(args[0], key)
	return Nil, nil
}

func (ev *evaluator) hostZkasLookup(args []Value) (Value, error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("%w: zkas-lookup takes (namespace)", ErrTrap)
	}
	ns, ok := args[0].(Str)
	if !ok {
		return nil, fmt.Errorf("%w: zkas-lookup namespace must be a string", ErrTrap)
	}
	b, found, err := ev.host.ZkasLookup(string(ns))
	if err != nil {
		return nil, err
	}
	if !found {
		return Nil, nil
	}
	return Bytes(b), nil
}

func (ev *evaluator) hostMerkleAdd(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: merkle-add takes (tree leaf)", ErrTrap)
	}
	tree, ok := args[0].(Symbol)
	if !ok {
		return nil, fmt.Errorf("%w: merkle-add tree must be a symbol", ErrTrap)
	}
	leaf, err := valueBytes(args[1])
	if err != nil {
		return nil, err
	}
	pos, err := ev.host.MerkleAdd(tree, leaf)
	if err != nil {
		return nil, err
	}
	return Int(pos), nil
}

func (ev *evaluator) hostPoseidon(args []Value) (Value, error) {
	inputs := make([][]byte, len(args))
	for i, a := range args {
		b, err := valueBytes(a)
		if err != nil {
			return nil, err
		}
		inputs[i] = b
	}
	return Bytes(ev.host.Poseidon(inputs...)), nil
}

func (ev *evaluator) hostPedersen(args []Value) (Value, error) {
	if len(args) != 2 {
		return nil, fmt.Errorf("%w: pedersen takes (value blind)", ErrTrap)
	}
	value, err := valueBytes(args[0])
	if err != nil {
		return nil, err
	}
	blind, err := valueBytes(args[1])
	if err != nil {
		return nil, err
	}
	return Bytes(ev.host.Pedersen(value, blind)), nil
}
