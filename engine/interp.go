package engine

import (
	"fmt"
	"math"
	"strings"
)

// Tree-walking interpreter.
//
// The safety-critical rule mirrors the host binding's own: any Value held
// across an operation that may allocate must sit on the VM shadow stack
// (vm.tmp), which the collector scans and rewrites. Interpreter code
// therefore passes environments and operands as shadow-stack indices and
// re-reads them after every allocating call. A Value returned from an eval
// function is fresh: the caller must pin it before the next allocation.

type ctrl int

const (
	ctrlNormal ctrl = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
	ctrlThrow
)

// interruptInterval is the interpreter step count between cooperative
// interrupt handler invocations.
const interruptInterval = 4096

type frame struct {
	name string
	file string
	line int
}

type interp struct {
	vm     *VM
	file   string
	repl   bool
	frames []frame
}

// globalEnv is the env index meaning "no local scope, resolve on the
// global object".
const globalEnv = -1

func (ip *interp) env(envIdx int) Value {
	if envIdx == globalEnv {
		return Null()
	}
	return ip.vm.tmpAt(envIdx)
}

func (ip *interp) line(n int) {
	if len(ip.frames) > 0 && n > 0 {
		ip.frames[len(ip.frames)-1].line = n
	}
}

// step performs interrupt bookkeeping; returns a throw on requested abort.
func (ip *interp) step() (Value, ctrl) {
	vm := ip.vm
	vm.steps++
	if vm.interrupt != nil && vm.steps%interruptInterval == 0 {
		if vm.interrupt(vm.userData) != 0 {
			return ip.throwNamed("InternalError", "interrupted", 0)
		}
	}
	return Undefined(), ctrlNormal
}

// throwNamed builds an error object and returns it as a throw.
func (ip *interp) throwNamed(name, msg string, line int) (Value, ctrl) {
	ip.line(line)
	v, ok := ip.vm.newError(name, msg, ip.stackTrace())
	if !ok {
		ip.vm.pendingOOM = true
		return Null(), ctrlThrow
	}
	return v, ctrlThrow
}

func (ip *interp) stackTrace() string {
	var b strings.Builder
	for i := len(ip.frames) - 1; i >= 0; i-- {
		f := ip.frames[i]
		name := f.name
		if name == "" {
			name = "<anonymous>"
		}
		fmt.Fprintf(&b, "    at %s (%s:%d)\n", name, f.file, f.line)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// newError allocates an error object with name, message and stack props.
func (vm *VM) newError(name, msg, stack string) (Value, bool) {
	e, ok := vm.newContainer(kindError)
	if !ok {
		return Undefined(), false
	}
	ei := vm.pushTmp(e)
	defer vm.popTmpTo(ei)

	ns, ok := vm.NewString(name)
	if !ok {
		return Undefined(), false
	}
	if !vm.SetProp(vm.tmpAt(ei), "name", ns) {
		return Undefined(), false
	}
	ms, ok := vm.NewString(msg)
	if !ok {
		return Undefined(), false
	}
	if !vm.SetProp(vm.tmpAt(ei), "message", ms) {
		return Undefined(), false
	}
	if stack != "" {
		ss, ok := vm.NewString(stack)
		if !ok {
			return Undefined(), false
		}
		if !vm.SetProp(vm.tmpAt(ei), "stack", ss) {
			return Undefined(), false
		}
	}
	return vm.tmpAt(ei), true
}

// oom reports arena exhaustion as a throw, falling back to the Go-side
// flag when even the error object cannot be allocated.
func (ip *interp) oom() (Value, ctrl) {
	return ip.throwNamed("RangeError", "out of memory", 0)
}

// Statements.

func (ip *interp) execStmts(body []stmt, envIdx int) (Value, ctrl) {
	for _, s := range body {
		if v, c := ip.execStmt(s, envIdx); c != ctrlNormal {
			return v, c
		}
	}
	return Undefined(), ctrlNormal
}

func (ip *interp) execStmt(s stmt, envIdx int) (Value, ctrl) {
	if v, c := ip.step(); c != ctrlNormal {
		return v, c
	}
	vm := ip.vm

	switch s := s.(type) {
	case *varStmt:
		ip.line(s.line)
		val := Undefined()
		if s.init != nil {
			v, c := ip.evalExpr(s.init, envIdx)
			if c != ctrlNormal {
				return v, c
			}
			val = v
		}
		return ip.bindVar(s, val, envIdx)

	case *exprStmt:
		v, c := ip.evalExpr(s.e, envIdx)
		if c != ctrlNormal {
			return v, c
		}
		if envIdx == globalEnv {
			// Top-level expression statements feed the completion value.
			vm.setTmp(ip.vm.completion, v)
		}
		return Undefined(), ctrlNormal

	case *ifStmt:
		v, c := ip.evalExpr(s.cond, envIdx)
		if c != ctrlNormal {
			return v, c
		}
		if ip.vm.truthy(v) {
			return ip.execStmts(s.then, envIdx)
		}
		return ip.execStmts(s.els, envIdx)

	case *whileStmt:
		for {
			v, c := ip.evalExpr(s.cond, envIdx)
			if c != ctrlNormal {
				return v, c
			}
			if !ip.vm.truthy(v) {
				return Undefined(), ctrlNormal
			}
			v, c = ip.execStmts(s.body, envIdx)
			switch c {
			case ctrlBreak:
				return Undefined(), ctrlNormal
			case ctrlNormal, ctrlContinue:
			default:
				return v, c
			}
		}

	case *forStmt:
		if s.init != nil {
			if v, c := ip.execStmt(s.init, envIdx); c != ctrlNormal {
				return v, c
			}
		}
		for {
			if s.cond != nil {
				v, c := ip.evalExpr(s.cond, envIdx)
				if c != ctrlNormal {
					return v, c
				}
				if !ip.vm.truthy(v) {
					return Undefined(), ctrlNormal
				}
			}
			v, c := ip.execStmts(s.body, envIdx)
			switch c {
			case ctrlBreak:
				return Undefined(), ctrlNormal
			case ctrlNormal, ctrlContinue:
			default:
				return v, c
			}
			if s.post != nil {
				if v, c := ip.execStmt(s.post, envIdx); c != ctrlNormal {
					return v, c
				}
			}
		}

	case *returnStmt:
		ip.line(s.line)
		if s.e == nil {
			return Undefined(), ctrlReturn
		}
		v, c := ip.evalExpr(s.e, envIdx)
		if c != ctrlNormal {
			return v, c
		}
		return v, ctrlReturn

	case *throwStmt:
		ip.line(s.line)
		v, c := ip.evalExpr(s.e, envIdx)
		if c != ctrlNormal {
			return v, c
		}
		return v, ctrlThrow

	case *tryStmt:
		return ip.execTry(s, envIdx)

	case *breakStmt:
		return Undefined(), ctrlBreak

	case *continueStmt:
		return Undefined(), ctrlContinue

	case *blockStmt:
		return ip.execStmts(s.body, envIdx)
	}
	return ip.throwNamed("InternalError", "unknown statement", 0)
}

func (ip *interp) bindVar(s *varStmt, val Value, envIdx int) (Value, ctrl) {
	vm := ip.vm
	if envIdx != globalEnv {
		env, slot, ok := vm.envResolve(ip.env(envIdx), s.name)
		if ok {
			if s.init != nil || vm.envGet(env, slot).IsUndefined() {
				vm.envSet(env, slot, val)
			}
			return Undefined(), ctrlNormal
		}
		// Shape collection happens at parse time, so this is unreachable
		// for well-formed protos.
		return ip.throwNamed("InternalError", "unbound var "+s.name, s.line)
	}
	if s.init == nil {
		if _, ok := vm.GetProp(vm.global, s.name); ok {
			return Undefined(), ctrlNormal
		}
	}
	if !vm.SetProp(vm.global, s.name, val) {
		return ip.oom()
	}
	return Undefined(), ctrlNormal
}

func (ip *interp) execTry(s *tryStmt, envIdx int) (Value, ctrl) {
	vm := ip.vm
	v, c := ip.execStmts(s.body, envIdx)

	if c == ctrlThrow && s.catch != nil {
		// Pin the thrown value while building the catch scope.
		ti := vm.pushTmp(v)
		catchEnv := globalEnv
		if s.shapeID >= 0 {
			env, ok := vm.newEnv(ip.env(envIdx), s.shapeID)
			if !ok {
				vm.popTmpTo(ti)
				return ip.oom()
			}
			ei := vm.pushTmp(env)
			vm.envSet(vm.tmpAt(ei), 0, vm.tmpAt(ti))
			catchEnv = ei
		} else if envIdx != globalEnv {
			catchEnv = envIdx
		}
		v, c = ip.execStmts(s.catch, catchEnv)
		vm.popTmpTo(ti)
	}

	if s.fin != nil {
		// Pin the pending completion across the finally block; a throw
		// or return from finally supersedes it.
		pi := vm.pushTmp(v)
		fv, fc := ip.execStmts(s.fin, envIdx)
		v = vm.tmpAt(pi)
		vm.popTmpTo(pi)
		if fc != ctrlNormal {
			return fv, fc
		}
	}
	return v, c
}

// Expressions.

func (ip *interp) evalExpr(e expr, envIdx int) (Value, ctrl) {
	vm := ip.vm

	switch e := e.(type) {
	case *numLit:
		if e.isInt {
			return Int(int32(e.f)), ctrlNormal
		}
		v, ok := vm.NewFloat(e.f)
		if !ok {
			return ip.oom()
		}
		return v, ctrlNormal

	case *strLit:
		v, ok := vm.NewString(e.s)
		if !ok {
			return ip.oom()
		}
		return v, ctrlNormal

	case *boolLit:
		return Bool(e.b), ctrlNormal

	case *nullLit:
		return Null(), ctrlNormal

	case *identExpr:
		return ip.readIdent(e.name, e.line, envIdx)

	case *arrayLit:
		arr, ok := vm.NewArray()
		if !ok {
			return ip.oom()
		}
		ai := vm.pushTmp(arr)
		for i, el := range e.elems {
			v, c := ip.evalExpr(el, envIdx)
			if c != ctrlNormal {
				vm.popTmpTo(ai)
				return v, c
			}
			if !vm.ArraySet(vm.tmpAt(ai), i, v) {
				vm.popTmpTo(ai)
				return ip.oom()
			}
		}
		v := vm.tmpAt(ai)
		vm.popTmpTo(ai)
		return v, ctrlNormal

	case *objectLit:
		obj, ok := vm.NewObject()
		if !ok {
			return ip.oom()
		}
		oi := vm.pushTmp(obj)
		for i, key := range e.keys {
			v, c := ip.evalExpr(e.vals[i], envIdx)
			if c != ctrlNormal {
				vm.popTmpTo(oi)
				return v, c
			}
			if !vm.SetProp(vm.tmpAt(oi), key, v) {
				vm.popTmpTo(oi)
				return ip.oom()
			}
		}
		v := vm.tmpAt(oi)
		vm.popTmpTo(oi)
		return v, ctrlNormal

	case *funcLit:
		fn, ok := vm.newFunction(e.proto, ip.env(envIdx))
		if !ok {
			return ip.oom()
		}
		return fn, ctrlNormal

	case *callExpr:
		return ip.evalCall(e, envIdx)

	case *newExpr:
		return ip.evalNew(e, envIdx)

	case *memberExpr:
		obj, c := ip.evalExpr(e.obj, envIdx)
		if c != ctrlNormal {
			return obj, c
		}
		return ip.getMember(obj, e.name, e.line)

	case *indexExpr:
		return ip.evalIndex(e, envIdx)

	case *assignExpr:
		return ip.evalAssign(e, envIdx)

	case *updateExpr:
		return ip.evalUpdate(e, envIdx)

	case *binExpr:
		return ip.evalBinary(e, envIdx)

	case *logicalExpr:
		l, c := ip.evalExpr(e.l, envIdx)
		if c != ctrlNormal {
			return l, c
		}
		if e.op == "&&" {
			if !vm.truthy(l) {
				return l, ctrlNormal
			}
		} else if vm.truthy(l) {
			return l, ctrlNormal
		}
		return ip.evalExpr(e.r, envIdx)

	case *unaryExpr:
		return ip.evalUnary(e, envIdx)

	case *condExpr:
		cond, c := ip.evalExpr(e.cond, envIdx)
		if c != ctrlNormal {
			return cond, c
		}
		if vm.truthy(cond) {
			return ip.evalExpr(e.then, envIdx)
		}
		return ip.evalExpr(e.els, envIdx)
	}
	return ip.throwNamed("InternalError", "unknown expression", 0)
}

func (ip *interp) readIdent(name string, line int, envIdx int) (Value, ctrl) {
	vm := ip.vm
	if envIdx != globalEnv {
		if env, slot, ok := vm.envResolve(ip.env(envIdx), name); ok {
			return vm.envGet(env, slot), ctrlNormal
		}
	}
	if v, ok := vm.GetProp(vm.global, name); ok {
		return v, ctrlNormal
	}
	return ip.throwNamed("ReferenceError", name+" is not defined", line)
}

// writeIdent stores val into an existing binding, or creates a global in
// REPL mode. val must already be pinned by the caller if it is a ref.
func (ip *interp) writeIdent(name string, val Value, line int, envIdx int) (Value, ctrl) {
	vm := ip.vm
	if envIdx != globalEnv {
		if env, slot, ok := vm.envResolve(ip.env(envIdx), name); ok {
			vm.envSet(env, slot, val)
			return Undefined(), ctrlNormal
		}
	}
	if _, ok := vm.GetProp(vm.global, name); ok || ip.repl {
		// Assignment reaches the global object only for names already
		// declared there; REPL laxity additionally lets assignment mint
		// new globals.
		vi := vm.pushTmp(val)
		ok := vm.SetProp(vm.global, name, vm.tmpAt(vi))
		vm.popTmpTo(vi)
		if !ok {
			return ip.oom()
		}
		return Undefined(), ctrlNormal
	}
	return ip.throwNamed("ReferenceError", name+" is not defined", line)
}

func (ip *interp) getMember(obj Value, name string, line int) (Value, ctrl) {
	vm := ip.vm
	switch vm.kindOf(obj) {
	case kindObject, kindError:
		v, _ := vm.GetProp(obj, name)
		return v, ctrlNormal
	case kindArray:
		if name == "length" {
			return Int(int32(vm.ArrayLen(obj))), ctrlNormal
		}
		return Undefined(), ctrlNormal
	case kindString:
		if name == "length" {
			return Int(int32(len([]rune(vm.GoString(obj))))), ctrlNormal
		}
		return Undefined(), ctrlNormal
	}
	if obj.IsUndefined() || obj.IsNull() {
		return ip.throwNamed("TypeError",
			"cannot read property '"+name+"' of "+vm.ToDisplayString(obj), line)
	}
	return Undefined(), ctrlNormal
}

func (ip *interp) evalIndex(e *indexExpr, envIdx int) (Value, ctrl) {
	vm := ip.vm
	obj, c := ip.evalExpr(e.obj, envIdx)
	if c != ctrlNormal {
		return obj, c
	}
	oi := vm.pushTmp(obj)
	defer vm.popTmpTo(oi)

	idx, c := ip.evalExpr(e.idx, envIdx)
	if c != ctrlNormal {
		return idx, c
	}
	obj = vm.tmpAt(oi)

	switch vm.kindOf(obj) {
	case kindArray:
		if idx.IsInt() {
			return vm.ArrayGet(obj, int(idx.Int())), ctrlNormal
		}
		if vm.IsFloat(idx) {
			return vm.ArrayGet(obj, int(vm.Float(idx))), ctrlNormal
		}
		if vm.IsString(idx) && vm.stringEquals(idx, "length") {
			return Int(int32(vm.ArrayLen(obj))), ctrlNormal
		}
		return Undefined(), ctrlNormal
	case kindObject, kindError:
		key := vm.ToDisplayString(idx)
		v, _ := vm.GetProp(obj, key)
		return v, ctrlNormal
	case kindString:
		i := -1
		if idx.IsInt() {
			i = int(idx.Int())
		}
		r := []rune(vm.GoString(obj))
		if i < 0 || i >= len(r) {
			return Undefined(), ctrlNormal
		}
		s, ok := vm.NewString(string(r[i]))
		if !ok {
			return ip.oom()
		}
		return s, ctrlNormal
	}
	return ip.throwNamed("TypeError", "cannot index "+vm.ToDisplayString(obj), e.line)
}

func (ip *interp) evalAssign(e *assignExpr, envIdx int) (Value, ctrl) {
	vm := ip.vm

	// Compound ops desugar to read-combine-write.
	combine := func(cur Value, curIdx int) (Value, ctrl) {
		val, c := ip.evalExpr(e.val, envIdx)
		if c != ctrlNormal || e.op == "=" {
			return val, c
		}
		vi := vm.pushTmp(val)
		defer vm.popTmpTo(vi)
		return ip.binaryOp(e.op[:1], curIdx, vi, e.line)
	}

	switch t := e.target.(type) {
	case *identExpr:
		cur := Undefined()
		if e.op != "=" {
			v, c := ip.readIdent(t.name, t.line, envIdx)
			if c != ctrlNormal {
				return v, c
			}
			cur = v
		}
		ci := vm.pushTmp(cur)
		val, c := combine(cur, ci)
		if c != ctrlNormal {
			vm.popTmpTo(ci)
			return val, c
		}
		vm.setTmp(ci, val)
		if v, c := ip.writeIdent(t.name, vm.tmpAt(ci), e.line, envIdx); c != ctrlNormal {
			vm.popTmpTo(ci)
			return v, c
		}
		val = vm.tmpAt(ci)
		vm.popTmpTo(ci)
		return val, ctrlNormal

	case *memberExpr:
		obj, c := ip.evalExpr(t.obj, envIdx)
		if c != ctrlNormal {
			return obj, c
		}
		oi := vm.pushTmp(obj)
		cur := Undefined()
		if e.op != "=" {
			v, c := ip.getMember(vm.tmpAt(oi), t.name, t.line)
			if c != ctrlNormal {
				vm.popTmpTo(oi)
				return v, c
			}
			cur = v
		}
		ci := vm.pushTmp(cur)
		val, c := combine(cur, ci)
		if c != ctrlNormal {
			vm.popTmpTo(oi)
			return val, c
		}
		vm.setTmp(ci, val)
		if v, c := ip.setMember(oi, t.name, ci, t.line); c != ctrlNormal {
			vm.popTmpTo(oi)
			return v, c
		}
		val = vm.tmpAt(ci)
		vm.popTmpTo(oi)
		return val, ctrlNormal

	case *indexExpr:
		obj, c := ip.evalExpr(t.obj, envIdx)
		if c != ctrlNormal {
			return obj, c
		}
		oi := vm.pushTmp(obj)
		idx, c := ip.evalExpr(t.idx, envIdx)
		if c != ctrlNormal {
			vm.popTmpTo(oi)
			return idx, c
		}
		ii := vm.pushTmp(idx)
		cur := Undefined()
		if e.op != "=" {
			// Reuse the read path; both operands stay pinned.
			v, c := ip.indexValue(vm.tmpAt(oi), vm.tmpAt(ii), t.line)
			if c != ctrlNormal {
				vm.popTmpTo(oi)
				return v, c
			}
			cur = v
		}
		ci := vm.pushTmp(cur)
		val, c := combine(cur, ci)
		if c != ctrlNormal {
			vm.popTmpTo(oi)
			return val, c
		}
		vm.setTmp(ci, val)
		if v, c := ip.setIndex(oi, ii, ci, t.line); c != ctrlNormal {
			vm.popTmpTo(oi)
			return v, c
		}
		val = vm.tmpAt(ci)
		vm.popTmpTo(oi)
		return val, ctrlNormal
	}
	return ip.throwNamed("SyntaxError", "invalid assignment target", e.line)
}

// indexValue reads obj[idx] with both operands already pinned.
func (ip *interp) indexValue(obj, idx Value, line int) (Value, ctrl) {
	vm := ip.vm
	switch vm.kindOf(obj) {
	case kindArray:
		if idx.IsInt() {
			return vm.ArrayGet(obj, int(idx.Int())), ctrlNormal
		}
		return Undefined(), ctrlNormal
	case kindObject, kindError:
		v, _ := vm.GetProp(obj, vm.ToDisplayString(idx))
		return v, ctrlNormal
	}
	return ip.throwNamed("TypeError", "cannot index "+vm.ToDisplayString(obj), line)
}

// setMember writes obj.name = val with operands passed as shadow indices.
func (ip *interp) setMember(oi int, name string, vi int, line int) (Value, ctrl) {
	vm := ip.vm
	obj := vm.tmpAt(oi)
	switch vm.kindOf(obj) {
	case kindObject, kindError:
		if !vm.SetProp(obj, name, vm.tmpAt(vi)) {
			return ip.oom()
		}
		return Undefined(), ctrlNormal
	case kindArray:
		if name == "length" {
			n := vm.tmpAt(vi)
			if n.IsInt() && n.Int() >= 0 {
				if int(n.Int()) <= vm.ArrayLen(obj) {
					vm.setVal(obj, 1, Int(n.Int()))
					return Undefined(), ctrlNormal
				}
				if !vm.ArraySet(obj, int(n.Int())-1, Undefined()) {
					return ip.oom()
				}
				return Undefined(), ctrlNormal
			}
		}
		return ip.throwNamed("TypeError", "cannot set property '"+name+"' on array", line)
	}
	return ip.throwNamed("TypeError", "cannot set property '"+name+"'", line)
}

// setIndex writes obj[idx] = val with operands passed as shadow indices.
func (ip *interp) setIndex(oi, ii, vi int, line int) (Value, ctrl) {
	vm := ip.vm
	obj := vm.tmpAt(oi)
	idx := vm.tmpAt(ii)
	switch vm.kindOf(obj) {
	case kindArray:
		i := -1
		if idx.IsInt() {
			i = int(idx.Int())
		} else if vm.IsFloat(idx) {
			i = int(vm.Float(idx))
		}
		if i < 0 {
			return ip.throwNamed("RangeError", "invalid array index", line)
		}
		if !vm.ArraySet(obj, i, vm.tmpAt(vi)) {
			return ip.oom()
		}
		return Undefined(), ctrlNormal
	case kindObject, kindError:
		key := vm.ToDisplayString(idx)
		if !vm.SetProp(vm.tmpAt(oi), key, vm.tmpAt(vi)) {
			return ip.oom()
		}
		return Undefined(), ctrlNormal
	}
	return ip.throwNamed("TypeError", "cannot index "+vm.ToDisplayString(obj), line)
}

func (ip *interp) evalUpdate(e *updateExpr, envIdx int) (Value, ctrl) {
	vm := ip.vm
	delta := 1.0
	if e.op == "--" {
		delta = -1.0
	}

	read := func() (Value, ctrl) {
		switch t := e.target.(type) {
		case *identExpr:
			return ip.readIdent(t.name, t.line, envIdx)
		}
		return ip.throwNamed("SyntaxError", "invalid update target", e.line)
	}

	old, c := read()
	if c != ctrlNormal {
		return old, c
	}
	oldN, ok := vm.toNumber(old)
	if !ok {
		return ip.throwNamed("TypeError", "not a number", e.line)
	}
	nv, c := ip.makeNumber(oldN + delta)
	if c != ctrlNormal {
		return nv, c
	}
	ni := vm.pushTmp(nv)
	t := e.target.(*identExpr)
	if v, c := ip.writeIdent(t.name, vm.tmpAt(ni), e.line, envIdx); c != ctrlNormal {
		vm.popTmpTo(ni)
		return v, c
	}
	nv = vm.tmpAt(ni)
	vm.popTmpTo(ni)
	if e.prefix {
		return nv, ctrlNormal
	}
	return ip.makeNumber(oldN)
}

// makeNumber produces the canonical representation of f: inline int32 when
// exact, boxed float otherwise.
func (ip *interp) makeNumber(f float64) (Value, ctrl) {
	if fitsInt32(f) {
		return Int(int32(f)), ctrlNormal
	}
	v, ok := ip.vm.NewFloat(f)
	if !ok {
		return ip.oom()
	}
	return v, ctrlNormal
}

func (ip *interp) evalUnary(e *unaryExpr, envIdx int) (Value, ctrl) {
	vm := ip.vm

	if e.op == "typeof" {
		// typeof tolerates unresolved identifiers.
		if id, ok := e.x.(*identExpr); ok {
			if envIdx == globalEnv {
				if _, found := vm.GetProp(vm.global, id.name); !found {
					s, ok := vm.NewString("undefined")
					if !ok {
						return ip.oom()
					}
					return s, ctrlNormal
				}
			}
		}
	}

	x, c := ip.evalExpr(e.x, envIdx)
	if c != ctrlNormal {
		return x, c
	}

	switch e.op {
	case "!":
		return Bool(!vm.truthy(x)), ctrlNormal
	case "-":
		f, ok := vm.toNumber(x)
		if !ok {
			return ip.makeNumber(math.NaN())
		}
		return ip.makeNumber(-f)
	case "+":
		f, ok := vm.toNumber(x)
		if !ok {
			return ip.makeNumber(math.NaN())
		}
		return ip.makeNumber(f)
	case "typeof":
		s, ok := vm.NewString(vm.typeOf(x))
		if !ok {
			return ip.oom()
		}
		return s, ctrlNormal
	}
	return ip.throwNamed("InternalError", "unknown unary operator "+e.op, e.line)
}

func (ip *interp) evalBinary(e *binExpr, envIdx int) (Value, ctrl) {
	vm := ip.vm
	l, c := ip.evalExpr(e.l, envIdx)
	if c != ctrlNormal {
		return l, c
	}
	li := vm.pushTmp(l)
	defer vm.popTmpTo(li)

	r, c := ip.evalExpr(e.r, envIdx)
	if c != ctrlNormal {
		return r, c
	}
	ri := vm.pushTmp(r)

	return ip.binaryOp(e.op, li, ri, e.line)
}

// binaryOp applies op to pinned operands.
func (ip *interp) binaryOp(op string, li, ri int, line int) (Value, ctrl) {
	vm := ip.vm
	l := vm.tmpAt(li)
	r := vm.tmpAt(ri)

	switch op {
	case "+":
		if vm.IsString(l) || vm.IsString(r) {
			s := vm.ToDisplayString(l) + vm.ToDisplayString(vm.tmpAt(ri))
			v, ok := vm.NewString(s)
			if !ok {
				return ip.oom()
			}
			return v, ctrlNormal
		}
		fallthrough
	case "-", "*", "%", "/":
		// Exact integer fast path for + - *.
		if op != "/" && l.IsInt() && r.IsInt() {
			a, b := int64(l.Int()), int64(r.Int())
			var n int64
			switch op {
			case "+":
				n = a + b
			case "-":
				n = a - b
			case "*":
				n = a * b
			case "%":
				if b == 0 {
					return ip.makeNumber(math.NaN())
				}
				n = a % b
			}
			if n >= math.MinInt32 && n <= math.MaxInt32 {
				return Int(int32(n)), ctrlNormal
			}
			v, ok := vm.NewInt64(n)
			if !ok {
				return ip.oom()
			}
			return v, ctrlNormal
		}
		a, okA := vm.toNumber(l)
		b, okB := vm.toNumber(r)
		if !okA || !okB {
			return ip.makeNumber(math.NaN())
		}
		switch op {
		case "+":
			return ip.makeNumber(a + b)
		case "-":
			return ip.makeNumber(a - b)
		case "*":
			return ip.makeNumber(a * b)
		case "/":
			return ip.makeNumber(a / b)
		case "%":
			return ip.makeNumber(math.Mod(a, b))
		}

	case "<", ">", "<=", ">=":
		if vm.IsString(l) && vm.IsString(r) {
			a, b := vm.GoString(l), vm.GoString(r)
			switch op {
			case "<":
				return Bool(a < b), ctrlNormal
			case ">":
				return Bool(a > b), ctrlNormal
			case "<=":
				return Bool(a <= b), ctrlNormal
			case ">=":
				return Bool(a >= b), ctrlNormal
			}
		}
		a, okA := vm.toNumber(l)
		b, okB := vm.toNumber(r)
		if !okA || !okB {
			return Bool(false), ctrlNormal
		}
		switch op {
		case "<":
			return Bool(a < b), ctrlNormal
		case ">":
			return Bool(a > b), ctrlNormal
		case "<=":
			return Bool(a <= b), ctrlNormal
		case ">=":
			return Bool(a >= b), ctrlNormal
		}

	case "==", "===":
		return Bool(vm.valuesEqual(l, r, op == "===")), ctrlNormal
	case "!=", "!==":
		return Bool(!vm.valuesEqual(l, r, op == "!==")), ctrlNormal
	}
	return ip.throwNamed("InternalError", "unknown operator "+op, line)
}

// Calls.

func (ip *interp) evalCall(e *callExpr, envIdx int) (Value, ctrl) {
	vm := ip.vm

	// Method calls on arrays and strings dispatch natively; everything
	// else resolves the callee to a function value first.
	if m, ok := e.callee.(*memberExpr); ok {
		obj, c := ip.evalExpr(m.obj, envIdx)
		if c != ctrlNormal {
			return obj, c
		}
		oi := vm.pushTmp(obj)

		argsIdx, argc, v, c := ip.evalArgs(e.args, envIdx)
		if c != ctrlNormal {
			vm.popTmpTo(oi)
			return v, c
		}

		obj = vm.tmpAt(oi)
		switch vm.kindOf(obj) {
		case kindArray:
			v, c := ip.arrayMethod(oi, m.name, argsIdx, argc, m.line)
			vm.popTmpTo(oi)
			return v, c
		case kindString:
			v, c := ip.stringMethod(oi, m.name, argsIdx, argc, m.line)
			vm.popTmpTo(oi)
			return v, c
		}

		fn, c := ip.getMember(obj, m.name, m.line)
		if c != ctrlNormal {
			vm.popTmpTo(oi)
			return fn, c
		}
		fi := vm.pushTmp(fn)
		v, c = ip.invoke(fi, argsIdx, argc, m.name, e.line)
		vm.popTmpTo(oi)
		return v, c
	}

	fn, c := ip.evalExpr(e.callee, envIdx)
	if c != ctrlNormal {
		return fn, c
	}
	fi := vm.pushTmp(fn)
	argsIdx, argc, v, c := ip.evalArgs(e.args, envIdx)
	if c != ctrlNormal {
		vm.popTmpTo(fi)
		return v, c
	}
	name := ""
	if id, ok := e.callee.(*identExpr); ok {
		name = id.name
	}
	v, c = ip.invoke(fi, argsIdx, argc, name, e.line)
	vm.popTmpTo(fi)
	return v, c
}

// evalArgs evaluates arguments onto the shadow stack, returning the base
// index and count. On abrupt completion the stack is already trimmed.
func (ip *interp) evalArgs(args []expr, envIdx int) (int, int, Value, ctrl) {
	vm := ip.vm
	base := len(vm.tmp)
	for _, a := range args {
		v, c := ip.evalExpr(a, envIdx)
		if c != ctrlNormal {
			vm.popTmpTo(base)
			return 0, 0, v, c
		}
		vm.pushTmp(v)
	}
	return base, len(args), Undefined(), ctrlNormal
}

// invoke calls the pinned function at fi with argc pinned args at argsIdx.
func (ip *interp) invoke(fi, argsIdx, argc int, name string, line int) (Value, ctrl) {
	vm := ip.vm
	fn := vm.tmpAt(fi)
	if !vm.IsFunction(fn) {
		what := name
		if what == "" {
			what = vm.ToDisplayString(fn)
		}
		return ip.throwNamed("TypeError", what+" is not a function", line)
	}
	ip.line(line)

	id := vm.funcID(fn)
	if id < 0 {
		nat := vm.natives[-id-1]
		ip.frames = append(ip.frames, frame{name: nat.name, file: "native", line: 0})
		v, c := nat.fn(ip, argsIdx, argc)
		ip.frames = ip.frames[:len(ip.frames)-1]
		return v, c
	}

	proto := vm.protos[id]
	if len(ip.frames) >= maxCallDepth {
		return ip.throwNamed("RangeError", "maximum call stack size exceeded", line)
	}

	env, ok := vm.newEnv(vm.funcEnv(vm.tmpAt(fi)), proto.shapeID)
	if !ok {
		return ip.oom()
	}
	ei := vm.pushTmp(env)

	// Bind parameters.
	for i := range proto.params {
		if i < argc {
			vm.envSet(vm.tmpAt(ei), i, vm.tmpAt(argsIdx+i))
		}
	}
	// Bind the arguments array.
	argsArr, ok := vm.NewArray()
	if !ok {
		vm.popTmpTo(ei)
		return ip.oom()
	}
	ai := vm.pushTmp(argsArr)
	for i := 0; i < argc; i++ {
		if !vm.ArraySet(vm.tmpAt(ai), i, vm.tmpAt(argsIdx+i)) {
			vm.popTmpTo(ei)
			return ip.oom()
		}
	}
	argSlot := len(proto.params)
	vm.envSet(vm.tmpAt(ei), argSlot, vm.tmpAt(ai))
	vm.popTmpTo(ai)

	fname := proto.name
	if fname == "" {
		fname = name
	}
	ip.frames = append(ip.frames, frame{name: fname, file: proto.file, line: proto.line})
	v, c := ip.execStmts(proto.body, ei)
	ip.frames = ip.frames[:len(ip.frames)-1]
	vm.popTmpTo(ei)

	switch c {
	case ctrlReturn, ctrlNormal:
		if c == ctrlNormal {
			v = Undefined()
		}
		return v, ctrlNormal
	case ctrlBreak, ctrlContinue:
		return ip.throwNamed("SyntaxError", "break/continue outside loop", line)
	}
	return v, c
}

const maxCallDepth = 512

func (ip *interp) evalNew(e *newExpr, envIdx int) (Value, ctrl) {
	vm := ip.vm
	fn, c := ip.evalExpr(e.callee, envIdx)
	if c != ctrlNormal {
		return fn, c
	}
	fi := vm.pushTmp(fn)
	defer vm.popTmpTo(fi)

	argsIdx, argc, v, c := ip.evalArgs(e.args, envIdx)
	if c != ctrlNormal {
		return v, c
	}

	fn = vm.tmpAt(fi)
	if vm.IsFunction(fn) && vm.funcID(fn) < 0 {
		nat := vm.natives[-vm.funcID(fn)-1]
		if nat.ctor {
			return nat.fn(ip, argsIdx, argc)
		}
	}
	return ip.throwNamed("TypeError", "not a constructor", e.line)
}
