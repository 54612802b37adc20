// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

// Package lurk is a small deterministic s-expression interpreter for
// user-deployed contract bytecode (spec.md §3.2/§4.4). It is adapted
// from ilxd's zk/lurk/macros preprocessor: that file walks lurk source
// character-by-character (Parser.Peek/Consume, paren-depth counting)
// to textually expand imports and modules before the program reaches
// a proving backend. This package reuses that same scan-and-consume
// shape to build an actual AST and evaluate it directly, since
// SPEC_FULL.md's runtime needs a real execution path for user
// contracts rather than a macro-expansion pass feeding an external
// prover.
package lurk

import (
	"fmt"
	"strings"
)

// Value is any lurk runtime value: Symbol, Int, Str, *Pair, or Nil.
type Value interface {
	isValue()
}

// Symbol is an identifier or keyword atom.
type Symbol string

func (Symbol) isValue() {}

// Int is a signed integer atom.
type Int int64

func (Int) isValue() {}

// Str is a string literal atom.
type Str string

func (Str) isValue() {}

// Bytes is a byte-string atom, used for field-sized values (hashes,
// keys, commitments) that don't fit a machine Int.
type Bytes []byte

func (Bytes) isValue() {}

// Pair is a cons cell; lists are chains of Pairs terminated by Nil.
type Pair struct {
	Car, Cdr Value
}

func (*Pair) isValue() {}

// nilValue is the unique empty-list/false value.
type nilValue struct{}

func (nilValue) isValue() {}

// Nil is lurk's nil: empty list and boolean false.
var Nil Value = nilValue{}

// IsNil reports whether v is Nil.
func IsNil(v Value) bool {
	_, ok := v.(nilValue)
	return ok
}

// Cons builds a pair.
func Cons(a, b Value) Value { return &Pair{Car: a, Cdr: b} }

// List builds a proper list from vs.
func List(vs ...Value) Value {
	out := Nil
	for i := len(vs) - 1; i >= 0; i-- {
		out = Cons(vs[i], out)
	}
	return out
}

// ToSlice flattens a proper list into a Go slice; returns an error if
// v is not a proper list.
func ToSlice(v Value) ([]Value, error) {
	var out []Value
	for {
		if IsNil(v) {
			return out, nil
		}
		p, ok := v.(*Pair)
		if !ok {
			return nil, fmt.Errorf("lurk: improper list")
		}
		out = append(out, p.Car)
		v = p.Cdr
	}
}

// String renders v back to lurk source text, used for deterministic
// state_update serialization.
func String(v Value) string {
	switch x := v.(type) {
	case nilValue:
		return "nil"
	case Symbol:
		return string(x)
	case Int:
		return fmt.Sprintf("%d", int64(x))
	case Str:
		return fmt.Sprintf("%q", string(x))
	case Bytes:
		return fmt.Sprintf("#x%x", []byte(x))
	case *Pair:
		var sb strings.Builder
		sb.WriteByte('(')
		cur := Value(x)
		first := true
		for {
			p, ok := cur.(*Pair)
			if !ok {
				break
			}
			if !first {
				sb.WriteByte(' ')
			}
			first = false
			sb.WriteString(String(p.Car))
			cur = p.Cdr
		}
		if !IsNil(cur) {
			sb.WriteString(" . ")
			sb.WriteString(String(cur))
		}
		sb.WriteByte(')')
		return sb.String()
	default:
		return "?"
	}
}
