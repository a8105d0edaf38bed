package compiler

import "github.com/mna/wisp/lang/bytecode"

func (p *Parser) beginScope() { p.current.scopeDepth++ }

// endScope closes the current lexical scope, discarding its locals in
// reverse declaration order: a captured local is closed into its upvalue
// (OP_CLOSE_UPVALUE), an uncaptured one is simply popped.
func (p *Parser) endScope() {
	p.current.scopeDepth--
	locals := p.current.locals
	for len(locals) > 0 && locals[len(locals)-1].depth > p.current.scopeDepth {
		if locals[len(locals)-1].isCaptured {
			p.emitOp(bytecode.OpCloseUpvalue)
		} else {
			p.emitOp(bytecode.OpPop)
		}
		locals = locals[:len(locals)-1]
	}
	p.current.locals = locals
}

// declareVariable registers name as a local in the current scope (a no-op
// at global scope, where variables live in the globals table instead). It
// is a compile error to redeclare a name already bound in the same scope.
func (p *Parser) declareVariable(name string) {
	if p.current.scopeDepth == 0 {
		return
	}
	for i := len(p.current.locals) - 1; i >= 0; i-- {
		l := p.current.locals[i]
		if l.depth != -1 && l.depth < p.current.scopeDepth {
			break
		}
		if l.name == name {
			p.error("Already a variable with this name in this scope.")
		}
	}
	p.addLocal(name)
}

func (p *Parser) addLocal(name string) {
	if len(p.current.locals) == maxLocals {
		p.error("Too many local variables in function.")
		return
	}
	p.current.locals = append(p.current.locals, localVar{name: name, depth: -1})
}

// markInitialized flips the most recently declared local from "in
// progress" to usable. At global scope this is a no-op: globals are
// defined via OP_DEFINE_GLOBAL instead.
func (p *Parser) markInitialized() {
	if p.current.scopeDepth == 0 {
		return
	}
	p.current.locals[len(p.current.locals)-1].depth = p.current.scopeDepth
}

// resolveLocal scans c's locals from newest to oldest so shadowing
// resolves to the innermost declaration. A match still marked "in
// progress" (depth -1) means the name is being read from within its own
// initializer, which is a compile error.
func (p *Parser) resolveLocal(c *funcCompiler, name string) int {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name == name {
			if c.locals[i].depth == -1 {
				p.error("Can't read local variable in its own initializer.")
			}
			return i
		}
	}
	return -1
}

// resolveUpvalue implements the recursive upvalue-resolution algorithm: a
// name found as a local in the immediately enclosing function is captured
// directly; a name found as an upvalue further out is threaded through one
// upvalue per intervening function; otherwise the name is left to resolve
// as a global.
func (p *Parser) resolveUpvalue(c *funcCompiler, name string) int {
	if c.enclosing == nil {
		return -1
	}
	if local := p.resolveLocal(c.enclosing, name); local != -1 {
		c.enclosing.locals[local].isCaptured = true
		return p.addUpvalue(c, byte(local), true)
	}
	if up := p.resolveUpvalue(c.enclosing, name); up != -1 {
		return p.addUpvalue(c, byte(up), false)
	}
	return -1
}

// addUpvalue deduplicates by (index, isLocal) so repeated references to the
// same captured variable within one function share a single upvalue slot.
func (p *Parser) addUpvalue(c *funcCompiler, index byte, isLocal bool) int {
	for i, uv := range c.upvalues {
		if uv.index == index && uv.isLocal == isLocal {
			return i
		}
	}
	if len(c.upvalues) == maxUpvalues {
		p.error("Too many closure variables in function.")
		return 0
	}
	c.upvalues = append(c.upvalues, upvalueDesc{index: index, isLocal: isLocal})
	c.function.UpvalueCount = len(c.upvalues)
	return len(c.upvalues) - 1
}
