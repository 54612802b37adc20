// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package lurk

import "fmt"

// Program is a loaded contract: a set of top-level defuns (at minimum
// "metadata", "exec" and "apply") sharing one global environment,
// loaded once per Runtime.Load and invoked once per entry point per
// call (spec.md §4.4's three-phase ABI).
type Program struct {
	global *Env
}

// Load parses source (the contract's deployed bytecode, a lurk s-expression
// program) and evaluates its top-level defuns into a fresh global
// environment.
func Load(source string) (*Program, error) {
	forms, err := ParseAll(source)
	if err != nil {
		return nil, err
	}
	global := NewEnv(nil)
	for _, f := range forms {
		if _, err := Eval(f, global, nil); err != nil {
			return nil, err
		}
	}
	return &Program{global: global}, nil
}

// Call invokes the named top-level entry point with args, resolving
// host-function calls against host.
func (p *Program) Call(entryPoint string, args []Value, host Host) (Value, error) {
	fn, ok := p.global.Get(Symbol(entryPoint))
	if !ok {
		return nil, fmt.Errorf("%w: entry point %q not defined", ErrTrap, entryPoint)
	}
	c, ok := fn.(*closure)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not a function", ErrTrap, entryPoint)
	}
	ev := &evaluator{host: host}
	if len(args) != len(c.params) {
		return nil, fmt.Errorf("%w: %q arity mismatch", ErrTrap, entryPoint)
	}
	callEnv := NewEnv(c.env)
	for i, param := range c.params {
		callEnv.Define(param, args[i])
	}
	return ev.eval(c.body, callEnv)
}

// HasEntryPoint reports whether name is defined at top level.
func (p *Program) HasEntryPoint(name string) bool {
	_, ok := p.global.Get(Symbol(name))
	return ok
}
