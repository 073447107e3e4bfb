package engine

// Recursive-descent parser for the engine's script subset. Function
// prototypes and env shapes are registered on the VM at parse time; the
// arena only ever holds runtime values, never syntax.

type stmt interface{ stmtNode() }

type (
	varStmt struct {
		name string
		init expr // nil for bare declaration
		line int
	}
	exprStmt struct {
		e expr
	}
	ifStmt struct {
		cond expr
		then []stmt
		els  []stmt
	}
	whileStmt struct {
		cond expr
		body []stmt
	}
	forStmt struct {
		init stmt // nil allowed
		cond expr // nil allowed
		post stmt // nil allowed
		body []stmt
	}
	returnStmt struct {
		e    expr // nil for bare return
		line int
	}
	throwStmt struct {
		e    expr
		line int
	}
	tryStmt struct {
		body    []stmt
		param   string // catch binding, "" when no catch clause
		shapeID int    // env shape for the catch binding, -1 when unbound
		catch   []stmt // nil when no catch clause
		fin     []stmt // nil when no finally clause
	}
	breakStmt    struct{}
	continueStmt struct{}
	blockStmt    struct {
		body []stmt
	}
)

func (*varStmt) stmtNode()      {}
func (*exprStmt) stmtNode()     {}
func (*ifStmt) stmtNode()       {}
func (*whileStmt) stmtNode()    {}
func (*forStmt) stmtNode()      {}
func (*returnStmt) stmtNode()   {}
func (*throwStmt) stmtNode()    {}
func (*tryStmt) stmtNode()      {}
func (*breakStmt) stmtNode()    {}
func (*continueStmt) stmtNode() {}
func (*blockStmt) stmtNode()    {}

type expr interface{ exprNode() }

type (
	numLit struct {
		f     float64
		isInt bool
	}
	strLit struct {
		s string
	}
	boolLit struct {
		b bool
	}
	nullLit   struct{}
	identExpr struct {
		name string
		line int
	}
	arrayLit struct {
		elems []expr
	}
	objectLit struct {
		keys []string
		vals []expr
	}
	funcLit struct {
		proto int
	}
	callExpr struct {
		callee expr
		args   []expr
		line   int
	}
	newExpr struct {
		callee expr
		args   []expr
		line   int
	}
	memberExpr struct {
		obj  expr
		name string
		line int
	}
	indexExpr struct {
		obj  expr
		idx  expr
		line int
	}
	assignExpr struct {
		target expr
		op     string // "=", "+=", "-=", "*=", "/=", "%="
		val    expr
		line   int
	}
	updateExpr struct {
		target expr
		op     string // "++" or "--"
		prefix bool
		line   int
	}
	binExpr struct {
		op   string
		l, r expr
		line int
	}
	logicalExpr struct {
		op   string // "&&" or "||"
		l, r expr
	}
	unaryExpr struct {
		op   string // "!", "-", "+", "typeof"
		x    expr
		line int
	}
	condExpr struct {
		cond, then, els expr
	}
)

func (*numLit) exprNode()      {}
func (*strLit) exprNode()      {}
func (*boolLit) exprNode()     {}
func (*nullLit) exprNode()     {}
func (*identExpr) exprNode()   {}
func (*arrayLit) exprNode()    {}
func (*objectLit) exprNode()   {}
func (*funcLit) exprNode()     {}
func (*callExpr) exprNode()    {}
func (*newExpr) exprNode()     {}
func (*memberExpr) exprNode()  {}
func (*indexExpr) exprNode()   {}
func (*assignExpr) exprNode()  {}
func (*updateExpr) exprNode()  {}
func (*binExpr) exprNode()     {}
func (*logicalExpr) exprNode() {}
func (*unaryExpr) exprNode()   {}
func (*condExpr) exprNode()    {}

// funcProto is the compiled form of a function body. Referenced from
// function objects by inline id; lives on the Go heap for the VM lifetime.
type funcProto struct {
	name    string
	file    string
	line    int
	params  []string
	shapeID int
	body    []stmt
}

type parser struct {
	lex  *lexer
	tok  token
	vm   *VM
	file string

	// fn tracks the enclosing function scope's collected var names; nil
	// at program top level, where var declarations bind global
	// properties.
	fn *fnScope
}

type fnScope struct {
	vars []string
}

func (s *fnScope) declare(name string) {
	for _, v := range s.vars {
		if v == name {
			return
		}
	}
	s.vars = append(s.vars, name)
}

func (vm *VM) parse(src, filename string, stripCol bool) ([]stmt, error) {
	p := &parser{lex: newLexer(src, filename, stripCol), vm: vm, file: filename}
	if err := p.next(); err != nil {
		return nil, err
	}
	var body []stmt
	for p.tok.kind != tokEOF {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if s != nil {
			body = append(body, s)
		}
	}
	return hoistFuncs(body), nil
}

// hoistFuncs moves function declarations (desugared to var+funcLit by the
// parser) to the front of a body so they are bound before other code runs.
func hoistFuncs(body []stmt) []stmt {
	var fns, rest []stmt
	for _, s := range body {
		if v, ok := s.(*varStmt); ok {
			if _, isFn := v.init.(*funcLit); isFn {
				fns = append(fns, s)
				continue
			}
		}
		rest = append(rest, s)
	}
	return append(fns, rest...)
}

func (p *parser) next() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errf(format string, args ...any) error {
	return p.lex.errf(p.tok.line, p.tok.col, format, args...)
}

func (p *parser) isPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) isIdent(s string) bool {
	return p.tok.kind == tokIdent && p.tok.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.isPunct(s) {
		return p.errf("expected %q, got %q", s, p.tok.text)
	}
	return p.next()
}

func (p *parser) acceptPunct(s string) (bool, error) {
	if p.isPunct(s) {
		return true, p.next()
	}
	return false, nil
}

// skipSemi consumes an optional statement terminator.
func (p *parser) skipSemi() error {
	if p.isPunct(";") {
		return p.next()
	}
	return nil
}

func (p *parser) parseStatement() (stmt, error) {
	switch {
	case p.isPunct(";"):
		return nil, p.next()

	case p.isPunct("{"):
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &blockStmt{body: body}, nil

	case p.isIdent("var"), p.isIdent("let"), p.isIdent("const"):
		return p.parseVar()

	case p.isIdent("function"):
		return p.parseFuncDecl()

	case p.isIdent("if"):
		return p.parseIf()

	case p.isIdent("while"):
		return p.parseWhile()

	case p.isIdent("for"):
		return p.parseFor()

	case p.isIdent("return"):
		line := p.tok.line
		if err := p.next(); err != nil {
			return nil, err
		}
		if p.isPunct(";") || p.isPunct("}") || p.tok.kind == tokEOF {
			return &returnStmt{line: line}, p.skipSemi()
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &returnStmt{e: e, line: line}, p.skipSemi()

	case p.isIdent("throw"):
		line := p.tok.line
		if err := p.next(); err != nil {
			return nil, err
		}
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &throwStmt{e: e, line: line}, p.skipSemi()

	case p.isIdent("try"):
		return p.parseTry()

	case p.isIdent("break"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return &breakStmt{}, p.skipSemi()

	case p.isIdent("continue"):
		if err := p.next(); err != nil {
			return nil, err
		}
		return &continueStmt{}, p.skipSemi()
	}

	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &exprStmt{e: e}, p.skipSemi()
}

func (p *parser) parseBlock() ([]stmt, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var body []stmt
	for !p.isPunct("}") {
		if p.tok.kind == tokEOF {
			return nil, p.errf("unexpected end of input in block")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		if s != nil {
			body = append(body, s)
		}
	}
	return hoistFuncs(body), p.next()
}

func (p *parser) parseVar() (stmt, error) {
	if err := p.next(); err != nil { // consume var/let/const
		return nil, err
	}
	// Multiple declarators desugar into a block of single declarations.
	var decls []stmt
	for {
		if p.tok.kind != tokIdent {
			return nil, p.errf("expected identifier in declaration")
		}
		name := p.tok.text
		line := p.tok.line
		if p.fn != nil {
			p.fn.declare(name)
		}
		if err := p.next(); err != nil {
			return nil, err
		}
		var init expr
		if ok, err := p.acceptPunct("="); err != nil {
			return nil, err
		} else if ok {
			e, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			init = e
		}
		decls = append(decls, &varStmt{name: name, init: init, line: line})
		if ok, err := p.acceptPunct(","); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	if err := p.skipSemi(); err != nil {
		return nil, err
	}
	if len(decls) == 1 {
		return decls[0], nil
	}
	return &blockStmt{body: decls}, nil
}

func (p *parser) parseFuncDecl() (stmt, error) {
	line := p.tok.line
	if err := p.next(); err != nil {
		return nil, err
	}
	if p.tok.kind != tokIdent {
		return nil, p.errf("expected function name")
	}
	name := p.tok.text
	if p.fn != nil {
		p.fn.declare(name)
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	id, err := p.parseFuncRest(name, line)
	if err != nil {
		return nil, err
	}
	return &varStmt{name: name, init: &funcLit{proto: id}, line: line}, nil
}

// parseFuncRest parses "(params) { body }" and registers a prototype.
func (p *parser) parseFuncRest(name string, line int) (int, error) {
	if err := p.expectPunct("("); err != nil {
		return 0, err
	}
	var params []string
	for !p.isPunct(")") {
		if p.tok.kind != tokIdent {
			return 0, p.errf("expected parameter name")
		}
		params = append(params, p.tok.text)
		if err := p.next(); err != nil {
			return 0, err
		}
		if ok, err := p.acceptPunct(","); err != nil {
			return 0, err
		} else if !ok {
			break
		}
	}
	if err := p.expectPunct(")"); err != nil {
		return 0, err
	}

	outer := p.fn
	p.fn = &fnScope{}
	body, err := p.parseBlock()
	inner := p.fn
	p.fn = outer

	if err != nil {
		return 0, err
	}

	shape := make([]string, 0, len(params)+1+len(inner.vars))
	shape = append(shape, params...)
	shape = append(shape, "arguments")
	for _, v := range inner.vars {
		dup := false
		for _, s := range shape {
			if s == v {
				dup = true
				break
			}
		}
		if !dup {
			shape = append(shape, v)
		}
	}

	shapeID := len(p.vm.shapes)
	p.vm.shapes = append(p.vm.shapes, shape)
	id := len(p.vm.protos)
	p.vm.protos = append(p.vm.protos, &funcProto{
		name:    name,
		file:    p.file,
		line:    line,
		params:  params,
		shapeID: shapeID,
		body:    body,
	})
	return id, nil
}

func (p *parser) parseIf() (stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	then, err := p.parseBranch()
	if err != nil {
		return nil, err
	}
	var els []stmt
	if p.isIdent("else") {
		if err := p.next(); err != nil {
			return nil, err
		}
		els, err = p.parseBranch()
		if err != nil {
			return nil, err
		}
	}
	return &ifStmt{cond: cond, then: then, els: els}, nil
}

// parseBranch parses either a block or a single statement body.
func (p *parser) parseBranch() ([]stmt, error) {
	if p.isPunct("{") {
		return p.parseBlock()
	}
	s, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, nil
	}
	return []stmt{s}, nil
}

func (p *parser) parseWhile() (stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseBranch()
	if err != nil {
		return nil, err
	}
	return &whileStmt{cond: cond, body: body}, nil
}

func (p *parser) parseFor() (stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	f := &forStmt{}
	if !p.isPunct(";") {
		var err error
		if p.isIdent("var") || p.isIdent("let") || p.isIdent("const") {
			f.init, err = p.parseVar()
		} else {
			var e expr
			e, err = p.parseExpr()
			f.init = &exprStmt{e: e}
			if err == nil {
				err = p.skipSemi()
			}
		}
		if err != nil {
			return nil, err
		}
	} else if err := p.next(); err != nil {
		return nil, err
	}
	if !p.isPunct(";") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		f.cond = e
	}
	if err := p.expectPunct(";"); err != nil {
		return nil, err
	}
	if !p.isPunct(")") {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		f.post = &exprStmt{e: e}
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseBranch()
	if err != nil {
		return nil, err
	}
	f.body = body
	return f, nil
}

func (p *parser) parseTry() (stmt, error) {
	if err := p.next(); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	t := &tryStmt{body: body, shapeID: -1}
	if p.isIdent("catch") {
		if err := p.next(); err != nil {
			return nil, err
		}
		if ok, err := p.acceptPunct("("); err != nil {
			return nil, err
		} else if ok {
			if p.tok.kind != tokIdent {
				return nil, p.errf("expected catch binding")
			}
			t.param = p.tok.text
			t.shapeID = len(p.vm.shapes)
			p.vm.shapes = append(p.vm.shapes, []string{t.param})
			if err := p.next(); err != nil {
				return nil, err
			}
			if err := p.expectPunct(")"); err != nil {
				return nil, err
			}
		}
		t.catch, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		if t.catch == nil {
			t.catch = []stmt{}
		}
	}
	if p.isIdent("finally") {
		if err := p.next(); err != nil {
			return nil, err
		}
		t.fin, err = p.parseBlock()
		if err != nil {
			return nil, err
		}
		if t.fin == nil {
			t.fin = []stmt{}
		}
	}
	if t.catch == nil && t.fin == nil {
		return nil, p.errf("try without catch or finally")
	}
	return t, nil
}

// Expressions.

func (p *parser) parseExpr() (expr, error) {
	return p.parseAssign()
}

func (p *parser) parseAssign() (expr, error) {
	line := p.tok.line
	left, err := p.parseCond()
	if err != nil {
		return nil, err
	}
	for _, op := range []string{"=", "+=", "-=", "*=", "/=", "%="} {
		if p.isPunct(op) {
			switch left.(type) {
			case *identExpr, *memberExpr, *indexExpr:
			default:
				return nil, p.errf("invalid assignment target")
			}
			if err := p.next(); err != nil {
				return nil, err
			}
			val, err := p.parseAssign()
			if err != nil {
				return nil, err
			}
			return &assignExpr{target: left, op: op, val: val, line: line}, nil
		}
	}
	return left, nil
}

func (p *parser) parseCond() (expr, error) {
	cond, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if !p.isPunct("?") {
		return cond, nil
	}
	if err := p.next(); err != nil {
		return nil, err
	}
	then, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(":"); err != nil {
		return nil, err
	}
	els, err := p.parseAssign()
	if err != nil {
		return nil, err
	}
	return &condExpr{cond: cond, then: then, els: els}, nil
}

func (p *parser) parseLogicalOr() (expr, error) {
	l, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.isPunct("||") {
		if err := p.next(); err != nil {
			return nil, err
		}
		r, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		l = &logicalExpr{op: "||", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseLogicalAnd() (expr, error) {
	l, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.isPunct("&&") {
		if err := p.next(); err != nil {
			return nil, err
		}
		r, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		l = &logicalExpr{op: "&&", l: l, r: r}
	}
	return l, nil
}

func (p *parser) parseEquality() (expr, error) {
	l, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.isPunct("===") || p.isPunct("!==") || p.isPunct("==") || p.isPunct("!=") {
		op := p.tok.text
		line := p.tok.line
		if err := p.next(); err != nil {
			return nil, err
		}
		r, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		l = &binExpr{op: op, l: l, r: r, line: line}
	}
	return l, nil
}

func (p *parser) parseRelational() (expr, error) {
	l, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.isPunct("<") || p.isPunct(">") || p.isPunct("<=") || p.isPunct(">=") {
		op := p.tok.text
		line := p.tok.line
		if err := p.next(); err != nil {
			return nil, err
		}
		r, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		l = &binExpr{op: op, l: l, r: r, line: line}
	}
	return l, nil
}

func (p *parser) parseAdditive() (expr, error) {
	l, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.isPunct("+") || p.isPunct("-") {
		op := p.tok.text
		line := p.tok.line
		if err := p.next(); err != nil {
			return nil, err
		}
		r, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		l = &binExpr{op: op, l: l, r: r, line: line}
	}
	return l, nil
}

func (p *parser) parseMultiplicative() (expr, error) {
	l, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.isPunct("*") || p.isPunct("/") || p.isPunct("%") {
		op := p.tok.text
		line := p.tok.line
		if err := p.next(); err != nil {
			return nil, err
		}
		r, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l = &binExpr{op: op, l: l, r: r, line: line}
	}
	return l, nil
}

func (p *parser) parseUnary() (expr, error) {
	line := p.tok.line
	switch {
	case p.isPunct("!"), p.isPunct("-"), p.isPunct("+"):
		op := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: op, x: x, line: line}, nil

	case p.isIdent("typeof"):
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryExpr{op: "typeof", x: x, line: line}, nil

	case p.isPunct("++"), p.isPunct("--"):
		op := p.tok.text
		if err := p.next(); err != nil {
			return nil, err
		}
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &updateExpr{target: x, op: op, prefix: true, line: line}, nil

	case p.isIdent("new"):
		if err := p.next(); err != nil {
			return nil, err
		}
		callee, err := p.parsePrimary()
		if err != nil {
			return nil, err
		}
		// Member chains before the argument list: new a.b.C(...)
		for p.isPunct(".") {
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokIdent {
				return nil, p.errf("expected property name")
			}
			callee = &memberExpr{obj: callee, name: p.tok.text, line: p.tok.line}
			if err := p.next(); err != nil {
				return nil, err
			}
		}
		args, err := p.parseArgs()
		if err != nil {
			return nil, err
		}
		ne := &newExpr{callee: callee, args: args, line: line}
		return p.parsePostfix(ne)
	}

	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	return p.parsePostfix(e)
}

// parsePostfix handles call, member, index and ++/-- suffixes.
func (p *parser) parsePostfix(e expr) (expr, error) {
	for {
		switch {
		case p.isPunct("("):
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			e = &callExpr{callee: e, args: args, line: p.tok.line}

		case p.isPunct("."):
			if err := p.next(); err != nil {
				return nil, err
			}
			if p.tok.kind != tokIdent {
				return nil, p.errf("expected property name")
			}
			e = &memberExpr{obj: e, name: p.tok.text, line: p.tok.line}
			if err := p.next(); err != nil {
				return nil, err
			}

		case p.isPunct("["):
			if err := p.next(); err != nil {
				return nil, err
			}
			idx, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectPunct("]"); err != nil {
				return nil, err
			}
			e = &indexExpr{obj: e, idx: idx, line: p.tok.line}

		case p.isPunct("++"), p.isPunct("--"):
			op := p.tok.text
			line := p.tok.line
			if err := p.next(); err != nil {
				return nil, err
			}
			return &updateExpr{target: e, op: op, line: line}, nil

		default:
			return e, nil
		}
	}
}

func (p *parser) parseArgs() ([]expr, error) {
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	var args []expr
	for !p.isPunct(")") {
		a, err := p.parseAssign()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
		if ok, err := p.acceptPunct(","); err != nil {
			return nil, err
		} else if !ok {
			break
		}
	}
	return args, p.expectPunct(")")
}

func (p *parser) parsePrimary() (expr, error) {
	switch p.tok.kind {
	case tokNumber:
		e := &numLit{f: p.tok.num, isInt: p.tok.isInt}
		return e, p.next()

	case tokString:
		e := &strLit{s: p.tok.text}
		return e, p.next()

	case tokIdent:
		switch p.tok.text {
		case "true":
			return &boolLit{b: true}, p.next()
		case "false":
			return &boolLit{b: false}, p.next()
		case "null":
			return &nullLit{}, p.next()
		case "function":
			line := p.tok.line
			if err := p.next(); err != nil {
				return nil, err
			}
			name := ""
			if p.tok.kind == tokIdent && !p.isPunct("(") {
				name = p.tok.text
				if err := p.next(); err != nil {
					return nil, err
				}
			}
			id, err := p.parseFuncRest(name, line)
			if err != nil {
				return nil, err
			}
			return &funcLit{proto: id}, nil
		}
		e := &identExpr{name: p.tok.text, line: p.tok.line}
		return e, p.next()

	case tokPunct:
		switch p.tok.text {
		case "(":
			if err := p.next(); err != nil {
				return nil, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return e, p.expectPunct(")")

		case "[":
			if err := p.next(); err != nil {
				return nil, err
			}
			var elems []expr
			for !p.isPunct("]") {
				el, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				elems = append(elems, el)
				if ok, err := p.acceptPunct(","); err != nil {
					return nil, err
				} else if !ok {
					break
				}
			}
			return &arrayLit{elems: elems}, p.expectPunct("]")

		case "{":
			if err := p.next(); err != nil {
				return nil, err
			}
			ol := &objectLit{}
			for !p.isPunct("}") {
				var key string
				switch p.tok.kind {
				case tokIdent, tokString:
					key = p.tok.text
				case tokNumber:
					key = formatNumber(p.tok.num)
				default:
					return nil, p.errf("expected property key")
				}
				if err := p.next(); err != nil {
					return nil, err
				}
				if err := p.expectPunct(":"); err != nil {
					return nil, err
				}
				v, err := p.parseAssign()
				if err != nil {
					return nil, err
				}
				ol.keys = append(ol.keys, key)
				ol.vals = append(ol.vals, v)
				if ok, err := p.acceptPunct(","); err != nil {
					return nil, err
				} else if !ok {
					break
				}
			}
			return ol, p.expectPunct("}")
		}
	}
	return nil, p.errf("unexpected token %q", p.tok.text)
}
