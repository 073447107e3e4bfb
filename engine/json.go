package engine

import (
	"fmt"
	"strconv"
	"strings"
)

// JSON parse mode for the evaluation boundary: the source is decoded as a
// single JSON document into engine values instead of being executed.

type jsonParser struct {
	vm  *VM
	src string
	pos int
}

func (vm *VM) parseJSON(src string) (Value, error) {
	p := &jsonParser{vm: vm, src: src}
	p.skipSpace()
	v, err := p.parseValue()
	if err != nil {
		return Undefined(), err
	}
	vi := vm.pushTmp(v)
	p.skipSpace()
	if p.pos != len(p.src) {
		vm.popTmpTo(vi)
		return Undefined(), p.errf("trailing data after JSON value")
	}
	v = vm.tmpAt(vi)
	vm.popTmpTo(vi)
	return v, nil
}

func (p *jsonParser) errf(format string, args ...any) error {
	return fmt.Errorf("invalid JSON at offset %d: %s", p.pos, fmt.Sprintf(format, args...))
}

func (p *jsonParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\r', '\n':
			p.pos++
		default:
			return
		}
	}
}

func (p *jsonParser) parseValue() (Value, error) {
	vm := p.vm
	if p.pos >= len(p.src) {
		return Undefined(), p.errf("unexpected end of input")
	}
	switch c := p.src[p.pos]; {
	case c == '{':
		return p.parseObject()
	case c == '[':
		return p.parseArray()
	case c == '"':
		s, err := p.parseString()
		if err != nil {
			return Undefined(), err
		}
		v, ok := vm.NewString(s)
		if !ok {
			return Undefined(), p.errf("out of memory")
		}
		return v, nil
	case c == 't':
		return Bool(true), p.expect("true")
	case c == 'f':
		return Bool(false), p.expect("false")
	case c == 'n':
		return Null(), p.expect("null")
	case c == '-' || (c >= '0' && c <= '9'):
		return p.parseNumber()
	}
	return Undefined(), p.errf("unexpected character %q", string(p.src[p.pos]))
}

func (p *jsonParser) expect(lit string) error {
	if !strings.HasPrefix(p.src[p.pos:], lit) {
		return p.errf("expected %q", lit)
	}
	p.pos += len(lit)
	return nil
}

func (p *jsonParser) parseNumber() (Value, error) {
	start := p.pos
	if p.src[p.pos] == '-' {
		p.pos++
	}
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-' {
			p.pos++
			continue
		}
		break
	}
	f, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return Undefined(), p.errf("bad number %q", p.src[start:p.pos])
	}
	if fitsInt32(f) {
		return Int(int32(f)), nil
	}
	v, ok := p.vm.NewFloat(f)
	if !ok {
		return Undefined(), p.errf("out of memory")
	}
	return v, nil
}

func (p *jsonParser) parseString() (string, error) {
	if p.src[p.pos] != '"' {
		return "", p.errf("expected string")
	}
	p.pos++
	var b strings.Builder
	for {
		if p.pos >= len(p.src) {
			return "", p.errf("unterminated string")
		}
		c := p.src[p.pos]
		p.pos++
		switch {
		case c == '"':
			return b.String(), nil
		case c == '\\':
			if p.pos >= len(p.src) {
				return "", p.errf("unterminated escape")
			}
			e := p.src[p.pos]
			p.pos++
			switch e {
			case '"', '\\', '/':
				b.WriteByte(e)
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case 'u':
				if p.pos+4 > len(p.src) {
					return "", p.errf("bad unicode escape")
				}
				u, err := strconv.ParseUint(p.src[p.pos:p.pos+4], 16, 32)
				if err != nil {
					return "", p.errf("bad unicode escape")
				}
				p.pos += 4
				b.WriteRune(rune(u))
			default:
				return "", p.errf("bad escape \\%s", string(e))
			}
		default:
			b.WriteByte(c)
		}
	}
}

func (p *jsonParser) parseObject() (Value, error) {
	vm := p.vm
	p.pos++ // consume '{'
	obj, ok := vm.NewObject()
	if !ok {
		return Undefined(), p.errf("out of memory")
	}
	oi := vm.pushTmp(obj)
	defer vm.popTmpTo(oi)

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == '}' {
		p.pos++
		return vm.tmpAt(oi), nil
	}
	for {
		p.skipSpace()
		key, err := p.parseString()
		if err != nil {
			return Undefined(), err
		}
		p.skipSpace()
		if p.pos >= len(p.src) || p.src[p.pos] != ':' {
			return Undefined(), p.errf("expected ':'")
		}
		p.pos++
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return Undefined(), err
		}
		if !vm.SetProp(vm.tmpAt(oi), key, v) {
			return Undefined(), p.errf("out of memory")
		}
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Undefined(), p.errf("unterminated object")
		}
		if p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.src[p.pos] == '}' {
			p.pos++
			return vm.tmpAt(oi), nil
		}
		return Undefined(), p.errf("expected ',' or '}'")
	}
}

func (p *jsonParser) parseArray() (Value, error) {
	vm := p.vm
	p.pos++ // consume '['
	arr, ok := vm.NewArray()
	if !ok {
		return Undefined(), p.errf("out of memory")
	}
	ai := vm.pushTmp(arr)
	defer vm.popTmpTo(ai)

	p.skipSpace()
	if p.pos < len(p.src) && p.src[p.pos] == ']' {
		p.pos++
		return vm.tmpAt(ai), nil
	}
	for i := 0; ; i++ {
		p.skipSpace()
		v, err := p.parseValue()
		if err != nil {
			return Undefined(), err
		}
		if !vm.ArraySet(vm.tmpAt(ai), i, v) {
			return Undefined(), p.errf("out of memory")
		}
		p.skipSpace()
		if p.pos >= len(p.src) {
			return Undefined(), p.errf("unterminated array")
		}
		if p.src[p.pos] == ',' {
			p.pos++
			continue
		}
		if p.src[p.pos] == ']' {
			p.pos++
			return vm.tmpAt(ai), nil
		}
		return Undefined(), p.errf("expected ',' or ']'")
	}
}
