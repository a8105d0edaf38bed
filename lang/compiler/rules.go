package compiler

import (
	"github.com/mna/wisp/lang/bytecode"
	"github.com/mna/wisp/lang/lexer"
	"github.com/mna/wisp/lang/token"
	"github.com/mna/wisp/lang/value"
)

// Precedence orders the binding strength of infix operators, low to high;
// parsePrecedence(p) consumes everything that binds at least as tightly as
// p.
type Precedence int

const (
	PrecNone       Precedence = iota
	PrecAssignment            // =
	PrecOr                    // or
	PrecAnd                   // and
	PrecEquality              // == !=
	PrecComparison            // < > <= >=
	PrecTerm                  // + -
	PrecFactor                // * /
	PrecUnary                 // ! -
	PrecCall                  // . ()
	PrecPrimary
)

type parseFn func(p *Parser, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

var rules map[token.Token]parseRule

func init() {
	rules = map[token.Token]parseRule{
		token.LPAREN:    {prefix: (*Parser).grouping, infix: (*Parser).call, precedence: PrecCall},
		token.DOT:       {infix: (*Parser).dot, precedence: PrecCall},
		token.MINUS:     {prefix: (*Parser).unary, infix: (*Parser).binary, precedence: PrecTerm},
		token.PLUS:      {infix: (*Parser).binary, precedence: PrecTerm},
		token.SLASH:     {infix: (*Parser).binary, precedence: PrecFactor},
		token.STAR:      {infix: (*Parser).binary, precedence: PrecFactor},
		token.BANG:      {prefix: (*Parser).unary},
		token.BANG_EQ:   {infix: (*Parser).binary, precedence: PrecEquality},
		token.EQ_EQ:     {infix: (*Parser).binary, precedence: PrecEquality},
		token.GT:        {infix: (*Parser).binary, precedence: PrecComparison},
		token.GT_EQ:     {infix: (*Parser).binary, precedence: PrecComparison},
		token.LT:        {infix: (*Parser).binary, precedence: PrecComparison},
		token.LT_EQ:     {infix: (*Parser).binary, precedence: PrecComparison},
		token.IDENT:     {prefix: (*Parser).variable},
		token.STRING:    {prefix: (*Parser).stringLit},
		token.NUMBER:    {prefix: (*Parser).number},
		token.AND:       {infix: (*Parser).and_, precedence: PrecAnd},
		token.OR:        {infix: (*Parser).or_, precedence: PrecOr},
		token.FALSE:     {prefix: (*Parser).literal},
		token.TRUE:      {prefix: (*Parser).literal},
		token.NIL:       {prefix: (*Parser).literal},
		token.THIS:      {prefix: (*Parser).this_},
		token.SUPER:     {prefix: (*Parser).super_},
	}
}

func (p *Parser) getRule(t token.Token) parseRule { return rules[t] }

func (p *Parser) expression() { p.parsePrecedence(PrecAssignment) }

func (p *Parser) parsePrecedence(prec Precedence) {
	p.advance()
	prefix := p.getRule(p.prev.Type).prefix
	if prefix == nil {
		p.error("Expect expression.")
		return
	}
	canAssign := prec <= PrecAssignment
	prefix(p, canAssign)

	for prec <= p.getRule(p.cur.Type).precedence {
		p.advance()
		infix := p.getRule(p.prev.Type).infix
		infix(p, canAssign)
	}

	if canAssign && p.match(token.EQ) {
		p.error("Invalid assignment target.")
	}
}

func (p *Parser) number(canAssign bool) { p.emitConstant(value.Number(p.parseNumber())) }

func (p *Parser) stringLit(canAssign bool) {
	raw := p.prev.Lexeme
	str := p.internString(raw[1 : len(raw)-1])
	p.emitConstant(str)
}

func (p *Parser) literal(canAssign bool) {
	switch p.prev.Type {
	case token.FALSE:
		p.emitOp(bytecode.OpFalse)
	case token.NIL:
		p.emitOp(bytecode.OpNil)
	case token.TRUE:
		p.emitOp(bytecode.OpTrue)
	}
}

func (p *Parser) grouping(canAssign bool) {
	p.expression()
	p.consume(token.RPAREN, "Expect ')' after expression.")
}

func (p *Parser) unary(canAssign bool) {
	opType := p.prev.Type
	p.parsePrecedence(PrecUnary)
	switch opType {
	case token.BANG:
		p.emitOp(bytecode.OpNot)
	case token.MINUS:
		p.emitOp(bytecode.OpNegate)
	}
}

func (p *Parser) binary(canAssign bool) {
	opType := p.prev.Type
	rule := p.getRule(opType)
	p.parsePrecedence(rule.precedence + 1)

	switch opType {
	case token.BANG_EQ:
		p.emitOp(bytecode.OpEqual)
		p.emitOp(bytecode.OpNot)
	case token.EQ_EQ:
		p.emitOp(bytecode.OpEqual)
	case token.GT:
		p.emitOp(bytecode.OpGreater)
	case token.GT_EQ:
		p.emitOp(bytecode.OpLess)
		p.emitOp(bytecode.OpNot)
	case token.LT:
		p.emitOp(bytecode.OpLess)
	case token.LT_EQ:
		p.emitOp(bytecode.OpGreater)
		p.emitOp(bytecode.OpNot)
	case token.PLUS:
		p.emitOp(bytecode.OpAdd)
	case token.MINUS:
		p.emitOp(bytecode.OpSubtract)
	case token.STAR:
		p.emitOp(bytecode.OpMultiply)
	case token.SLASH:
		p.emitOp(bytecode.OpDivide)
	}
}

func (p *Parser) and_(canAssign bool) {
	endJump := p.emitJump(bytecode.OpJumpIfFalse)
	p.emitOp(bytecode.OpPop)
	p.parsePrecedence(PrecAnd)
	p.patchJump(endJump)
}

func (p *Parser) or_(canAssign bool) {
	elseJump := p.emitJump(bytecode.OpJumpIfFalse)
	endJump := p.emitJump(bytecode.OpJump)
	p.patchJump(elseJump)
	p.emitOp(bytecode.OpPop)
	p.parsePrecedence(PrecOr)
	p.patchJump(endJump)
}

func (p *Parser) call(canAssign bool) {
	argCount := p.argumentList()
	p.emitBytes(byte(bytecode.OpCall), argCount)
}

func (p *Parser) argumentList() byte {
	argCount := 0
	if !p.check(token.RPAREN) {
		for {
			p.expression()
			if argCount == maxArgs {
				p.error("Can't have more than 255 arguments.")
			}
			argCount++
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	p.consume(token.RPAREN, "Expect ')' after arguments.")
	return byte(argCount)
}

func (p *Parser) dot(canAssign bool) {
	p.consume(token.IDENT, "Expect property name after '.'.")
	name := p.identifierConstant(p.prev.Lexeme)

	switch {
	case canAssign && p.match(token.EQ):
		p.expression()
		p.emitBytes(byte(bytecode.OpSetProperty), name)
	case p.match(token.LPAREN):
		argCount := p.argumentList()
		p.emitBytes(byte(bytecode.OpInvoke), name)
		p.emitByte(argCount)
	default:
		p.emitBytes(byte(bytecode.OpGetProperty), name)
	}
}

func (p *Parser) variable(canAssign bool) { p.namedVariable(p.prev, canAssign) }

func (p *Parser) namedVariable(name lexer.Token, canAssign bool) {
	var getOp, setOp bytecode.Op
	arg := p.resolveLocal(p.current, name.Lexeme)
	switch {
	case arg != -1:
		getOp, setOp = bytecode.OpGetLocal, bytecode.OpSetLocal
	default:
		if arg = p.resolveUpvalue(p.current, name.Lexeme); arg != -1 {
			getOp, setOp = bytecode.OpGetUpvalue, bytecode.OpSetUpvalue
		} else {
			arg = int(p.identifierConstant(name.Lexeme))
			getOp, setOp = bytecode.OpGetGlobal, bytecode.OpSetGlobal
		}
	}

	if canAssign && p.match(token.EQ) {
		p.expression()
		p.emitBytes(byte(setOp), byte(arg))
	} else {
		p.emitBytes(byte(getOp), byte(arg))
	}
}

func (p *Parser) this_(canAssign bool) {
	if p.class == nil {
		p.error("Can't use 'this' outside of a class.")
		return
	}
	p.variable(false)
}

func (p *Parser) super_(canAssign bool) {
	switch {
	case p.class == nil:
		p.error("Can't use 'super' outside of a class.")
	case !p.class.hasSuperclass:
		p.error("Can't use 'super' in a class with no superclass.")
	}

	line := p.prev.Line
	p.consume(token.DOT, "Expect '.' after 'super'.")
	p.consume(token.IDENT, "Expect superclass method name.")
	name := p.identifierConstant(p.prev.Lexeme)

	p.namedVariable(syntheticToken("this", line), false)
	if p.match(token.LPAREN) {
		argCount := p.argumentList()
		p.namedVariable(syntheticToken("super", line), false)
		p.emitBytes(byte(bytecode.OpSuperInvoke), name)
		p.emitByte(argCount)
	} else {
		p.namedVariable(syntheticToken("super", line), false)
		p.emitBytes(byte(bytecode.OpGetSuper), name)
	}
}
