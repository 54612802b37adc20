// Copyright (c) 2024 The shroud developers
// Use of this source code is governed by an MIT
// license that can be found in the LICENSE file.

package lurk

import (
	"errors"
	"fmt"
)

// ErrTrap is returned for any evaluation failure (unbound symbol, bad
// arity, type mismatch). It maps to runtime.TrapError / spec.md §7's
// Fatal "RuntimeTrap" kind — a contract program misbehaving is always
// a fatal condition, never a recoverable domain error.
var ErrTrap = errors.New("lurk: trap")

// maxSteps bounds total form evaluations per Eval call, the
// determinism/termination guarantee spec.md §4.4 requires in place of
// a wall-clock timeout (contracts "cannot observe wall time").
const maxSteps = 1 << 20

type evaluator struct {
	host  Host
	steps int
}

// Eval evaluates expr in env against host, enforcing a fixed step
// budget so a malformed or adversarial program traps rather than
// looping forever.
func Eval(expr Value, env *Env, host Host) (Value, error) {
	ev := &evaluator{host: host}
	return ev.eval(expr, env)
}

func (ev *evaluator) eval(expr Value, env *Env) (Value, error) {
	ev.steps++
	if ev.steps > maxSteps {
		return nil, fmt.Errorf("%w: step budget exceeded", ErrTrap)
	}
	switch x := expr.(type) {
	case Symbol:
		if v, ok := env.Get(x); ok {
			return v, nil
		}
		return nil, fmt.Errorf("%w: unbound symbol %q", ErrTrap, x)
	case Int, Str, Bytes, nilValue:
		return expr, nil
	case *Pair:
		return ev.evalList(x, env)
	default:
		return nil, fmt.Errorf("%w: cannot evaluate %T", ErrTrap, expr)
	}
}

func (ev *evaluator) evalList(p *Pair, env *Env) (Value, error) {
	head, ok := p.Car.(Symbol)
	if ok {
		if fn, special := specialForms[head]; special {
			return fn(ev, p.Cdr, env)
		}
	}
	fnVal, err := ev.eval(p.Car, env)
	if err != nil {
		return nil, err
	}
	args, err := ev.evalArgs(p.Cdr, env)
	if err != nil {
		return nil, err
	}
	return ev.apply(fnVal, args)
}

func (ev *evaluator) evalArgs(v Value, env *Env) ([]Value, error) {
	var out []Value
	for !IsNil(v) {
		p, ok := v.(*Pair)
		if !ok {
			return nil, fmt.Errorf("%w: improper argument list", ErrTrap)
		}
		val, err := ev.eval(p.Car, env)
		if err != nil {
			return nil, err
		}
		out = append(out, val)
		v = p.Cdr
	}
	return out, nil
}

func (ev *evaluator) apply(fn Value, args []Value) (Value, error) {
	switch f := fn.(type) {
	case *closure:
		if len(args) != len(f.params) {
			return nil, fmt.Errorf("%w: arity mismatch calling closure", ErrTrap)
		}
		callEnv := NewEnv(f.env)
		for i, param := range f.params {
			callEnv.Define(param, args[i])
		}
		return ev.eval(f.body, callEnv)
	case Symbol:
		return ev.applyBuiltin(f, args)
	default:
		return nil, fmt.Errorf("%w: value is not callable", ErrTrap)
	}
}

type specialForm func(ev *evaluator, rest Value, env *Env) (Value, error)

var specialForms map[Symbol]specialForm

func init() {
	specialForms = map[Symbol]specialForm{
		"quote": func(ev *evaluator, rest Value, env *Env) (Value, error) {
			args, err := ToSlice(rest)
			if err != nil || len(args) != 1 {
				return nil, fmt.Errorf("%w: quote takes one argument", ErrTrap)
			}
			return args[0], nil
		},
		"if": func(ev *evaluator, rest Value, env *Env) (Value, error) {
			args, err := ToSlice(rest)
			if err != nil || len(args) < 2 || len(args) > 3 {
				return nil, fmt.Errorf("%w: if takes 2 or 3 arguments", ErrTrap)
			}
			cond, err := ev.eval(args[0], env)
			if err != nil {
				return nil, err
			}
			if !IsNil(cond) {
				return ev.eval(args[1], env)
			}
			if len(args) == 3 {
				return ev.eval(args[2], env)
			}
			return Nil, nil
		},
		"lambda": func(ev *evaluator, rest Value, env *Env) (Value, error) {
			args, err := ToSlice(rest)
			if err != nil || len(args) != 2 {
				return nil, fmt.Errorf("%w: lambda takes (params) body", ErrTrap)
			}
			params, err := symbolList(args[0])
			if err != nil {
				return nil, err
			}
			return &closure{params: params, body: args[1], env: env}, nil
		},
		"defun": func(ev *evaluator, rest Value, env *Env) (Value, error) {
			args, err := ToSlice(rest)
			if err != nil || len(args) != 3 {
				return nil, fmt.Errorf("%w: defun takes name (params) body", ErrTrap)
			}
			name, ok := args[0].(Symbol)
			if !ok {
				return nil, fmt.Errorf("%w: defun name must be a symbol", ErrTrap)
			}
			params, err := symbolList(args[1])
			if err != nil {
				return nil, err
			}
			c := &closure{params: params, body: args[2], env: env}
			env.Define(name, c)
			return Nil, nil
		},
		"let": func(ev *evaluator, rest Value, env *Env) (Value, error) {
			args, err := ToSlice(rest)
			if err != nil || len(args) != 2 {
				return nil, fmt.Errorf("%w: let takes (bindings) body", ErrTrap)
			}
			bindings, err := ToSlice(args[0])
			if err != nil {
				return nil, err
			}
			inner := NewEnv(env)
			for _, b := range bindings {
				pair, err := ToSlice(b)
				if err != nil || len(pair) != 2 {
					return nil, fmt.Errorf("%w: malformed let binding", ErrTrap)
				}
				sym, ok := pair[0].(Symbol)
				if !ok {
					return nil, fmt.Errorf("%w: let binding name must be a symbol", ErrTrap)
				}
				val, err := ev.eval(pair[1], inner)
				if err != nil {
					return nil, err
				}
				inner.Define(sym, val)
			}
			return ev.eval(args[1], inner)
		},
	}
}

func symbolList(v Value) ([]Symbol, error) {
	items, err := ToSlice(v)
	if err != nil {
		return nil, err
	}
	out := make([]Symbol, len(items))
	for i, it := range items {
		sym, ok := it.(Symbol)
		if !ok {
			return nil, fmt.Errorf("%w: expected symbol in parameter list", ErrTrap)
		}
		out[i] = sym
	}
	return out, nil
}
