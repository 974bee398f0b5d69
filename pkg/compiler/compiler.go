package compiler

import (
	"strconv"

	"github.com/kristofer/clockwork/pkg/chunk"
	"github.com/kristofer/clockwork/pkg/token"
	"github.com/kristofer/clockwork/pkg/value"
)

// FunctionType distinguishes the implicit top-level script function
// from ordinary `fun` declarations — only the distinction matters that
// `return` is a compile error at script scope (§4.5 statements:
// "return ... error if in top-level script").
type FunctionType int

const (
	TypeFunction FunctionType = iota
	TypeScript
)

// local is one entry of a function compilation's lexical-local array
// (§3 "Compiler state"): the declaring token, its scope depth, and
// the -1-depth convention that forbids self-reference in its own
// initializer.
type local struct {
	name  token.Token
	depth int
}

const maxLocals = 256
const maxParams = 255
const maxArgs = 255

// Objects bundles the object-construction facilities the VM exclusively
// owns: the allocation hook every new heap Object must be registered
// through (so it joins the VM's intrusive object list, §5) and the
// shared string intern index, so that an identifier compiled twice —
// or compiled once and looked up again at runtime — always resolves to
// the same String reference (§4.3 "Invariants: every key of the intern
// table is distinct by content").
type Objects struct {
	Alloc   func(*value.Object)
	Strings *value.Strings
}

func (o Objects) intern(s string) *value.Object {
	return o.Strings.CopyString(s, o.Alloc)
}

// Compiler is one function's compilation context: the chunk under
// construction, its locals, and a link to the enclosing function
// being compiled (for nested `fun` declarations). Compilation of a
// whole source string threads one *parser shared by every Compiler in
// the enclosing chain, and one Objects shared the same way.
type Compiler struct {
	enclosing *Compiler

	p    *parser
	objs Objects

	function *value.Object // the ObjFunction under construction
	fnType   FunctionType

	locals     []local
	scopeDepth int
}

// Compile compiles source into a top-level Function object. The
// second return value is nil on success; on failure it holds every
// "[line L] Error ...:" diagnostic accumulated across the whole
// parse (panic-mode recovery means more than one may appear).
func Compile(source string, objs Objects) (*value.Object, []string) {
	p := newParser(source)
	c := &Compiler{
		p:          p,
		objs:       objs,
		fnType:     TypeScript,
		scopeDepth: 0,
	}
	c.function = value.NewFunction(nil, 0, chunk.New())
	objs.Alloc(c.function)
	// Slot 0 is reserved for the callee itself (§3 "Call frame"); it
	// has no name a user program could ever reference.
	c.locals = append(c.locals, local{depth: 0})

	p.advance()
	for !p.match(token.EOF) {
		c.declaration()
	}
	fn := c.endCompiler()

	if p.hadError {
		return nil, p.errors
	}
	return fn, nil
}

func (c *Compiler) currentChunk() *chunk.Chunk { return c.function.Chunk }

// --- byte emission -------------------------------------------------

func (c *Compiler) emitByte(b byte) {
	c.currentChunk().Write(b, c.p.previous.Line)
}

func (c *Compiler) emitOp(op chunk.Op) {
	c.currentChunk().WriteOp(op, c.p.previous.Line)
}

func (c *Compiler) emitOpByte(op chunk.Op, operand byte) {
	c.emitOp(op)
	c.emitByte(operand)
}

func (c *Compiler) emitReturn() {
	c.emitOp(chunk.OpNil)
	c.emitOp(chunk.OpReturn)
}

// makeConstant appends v to the current chunk's constant pool,
// reporting the §4.4 cap as a compile error rather than silently
// truncating.
func (c *Compiler) makeConstant(v value.Value) byte {
	idx := c.currentChunk().AddConstant(v)
	if idx == -1 {
		c.p.error("Too many constants in one chunk.")
		return 0
	}
	return byte(idx)
}

func (c *Compiler) emitConstant(v value.Value) {
	c.emitOpByte(chunk.OpConstant, c.makeConstant(v))
}

// emitJump emits op followed by a 2-byte placeholder operand and
// returns the offset of that placeholder for a later PatchJump.
func (c *Compiler) emitJump(op chunk.Op) int {
	c.emitOp(op)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return c.currentChunk().Len() - 2
}

func (c *Compiler) patchJump(offset int) {
	if !c.currentChunk().PatchJump(offset) {
		c.p.error("Too much code to jump over.")
	}
}

// emitLoop emits a LOOP back to loopStart.
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(chunk.OpLoop)
	offset := c.currentChunk().Len() - loopStart + 2
	if offset > chunk.MaxJump {
		c.p.error("Too much code to jump over.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset & 0xff))
}

// endCompiler emits the implicit `nil; return` trailer every function
// body gets (§4.5 funDecl) and returns the finished Function.
func (c *Compiler) endCompiler() *value.Object {
	c.emitReturn()
	return c.function
}

// --- scope -----------------------------------------------------------

func (c *Compiler) beginScope() { c.scopeDepth++ }

func (c *Compiler) endScope() {
	c.scopeDepth--
	for len(c.locals) > 0 && c.locals[len(c.locals)-1].depth > c.scopeDepth {
		c.emitOp(chunk.OpPop)
		c.locals = c.locals[:len(c.locals)-1]
	}
}

// --- declarations ------------------------------------------------------

func (c *Compiler) declaration() {
	switch {
	case c.p.match(token.VAR):
		c.varDeclaration()
	case c.p.match(token.FUN):
		c.funDeclaration()
	case c.p.match(token.CLASS):
		// Reserved but unimplemented (§9): class declarations are a
		// compile-time error rather than a silently accepted no-op.
		c.p.error("class declarations not supported.")
	default:
		c.statement()
	}

	if c.p.panicMode {
		c.p.synchronize()
	}
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")

	if c.p.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(chunk.OpNil)
	}
	c.p.consume(token.SEMICOLON, "Expect ';' after variable declaration.")

	c.defineVariable(global)
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.compileFunctionBody(TypeFunction)
	c.defineVariable(global)
}

// compileFunctionBody compiles a nested function body into a fresh Compiler
// context and emits a CLOSURE instruction into the *enclosing* chunk
// wrapping the result (§4.5 funDecl).
func (c *Compiler) compileFunctionBody(fnType FunctionType) {
	name := c.objs.intern(c.p.previous.Lexeme)
	sub := &Compiler{
		enclosing:  c,
		p:          c.p,
		objs:       c.objs,
		fnType:     fnType,
		scopeDepth: c.scopeDepth + 1,
	}
	sub.function = value.NewFunction(name, 0, chunk.New())
	c.objs.Alloc(sub.function)
	sub.locals = append(sub.locals, local{depth: 0})

	sub.p.consume(token.LEFT_PAREN, "Expect '(' after function name.")
	if !sub.p.check(token.RIGHT_PAREN) {
		for {
			sub.function.Arity++
			if sub.function.Arity > maxParams {
				sub.p.errorAtCurrent("Cannot have more than 255 parameters.")
			}
			paramConst := sub.parseVariable("Expect parameter name.")
			sub.defineVariable(paramConst)
			if !sub.p.match(token.COMMA) {
				break
			}
		}
	}
	sub.p.consume(token.RIGHT_PAREN, "Expect ')' after parameters.")
	sub.p.consume(token.LEFT_BRACE, "Expect '{' before function body.")
	sub.block()

	fn := sub.endCompiler()
	c.emitOpByte(chunk.OpClosure, c.makeConstant(value.ObjectValue(fn)))
}

// --- statements --------------------------------------------------------

func (c *Compiler) statement() {
	switch {
	case c.p.match(token.PRINT):
		c.printStatement()
	case c.p.match(token.IF):
		c.ifStatement()
	case c.p.match(token.WHILE):
		c.whileStatement()
	case c.p.match(token.FOR):
		c.forStatement()
	case c.p.match(token.RETURN):
		c.returnStatement()
	case c.p.match(token.LEFT_BRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.p.check(token.RIGHT_BRACE) && !c.p.check(token.EOF) {
		c.declaration()
	}
	c.p.consume(token.RIGHT_BRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(chunk.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(chunk.OpPop)
}

func (c *Compiler) returnStatement() {
	if c.fnType == TypeScript {
		c.p.error("Cannot return from top-level code.")
	}
	if c.p.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	c.expression()
	c.p.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(chunk.OpReturn)
}

// ifStatement lowers `if (cond) then (else)?` per §4.5's control-flow
// lowering recipe.
func (c *Compiler) ifStatement() {
	c.p.consume(token.LEFT_PAREN, "Expect '(' after 'if'.")
	c.expression()
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()

	elseJump := c.emitJump(chunk.OpJump)
	c.patchJump(thenJump)
	c.emitOp(chunk.OpPop)

	if c.p.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

func (c *Compiler) whileStatement() {
	loopStart := c.currentChunk().Len()
	c.p.consume(token.LEFT_PAREN, "Expect '(' after 'while'.")
	c.expression()
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(chunk.OpPop)
}

// forStatement desugars to a while loop with its own scope, exactly
// following §4.5's recipe for where `loop_start` moves when a step
// clause is present.
func (c *Compiler) forStatement() {
	c.beginScope()
	c.p.consume(token.LEFT_PAREN, "Expect '(' after 'for'.")

	switch {
	case c.p.match(token.SEMICOLON):
		// no initializer
	case c.p.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := c.currentChunk().Len()
	exitJump := -1
	if !c.p.match(token.SEMICOLON) {
		c.expression()
		c.p.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(chunk.OpJumpIfFalse)
		c.emitOp(chunk.OpPop)
	}

	if !c.p.check(token.RIGHT_PAREN) {
		bodyJump := c.emitJump(chunk.OpJump)
		stepStart := c.currentChunk().Len()
		c.expression()
		c.emitOp(chunk.OpPop)
		c.p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = stepStart
		c.patchJump(bodyJump)
	} else {
		c.p.consume(token.RIGHT_PAREN, "Expect ')' after for clauses.")
	}

	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(chunk.OpPop)
	}
	c.endScope()
}

// --- expressions ---------------------------------------------------

func (c *Compiler) expression() {
	c.parsePrecedence(precAssignment)
}

func (c *Compiler) parsePrecedence(prec precedence) {
	c.p.advance()
	prefixRule := getRule(c.p.previous.Kind).prefix
	if prefixRule == nil {
		c.p.error("Expect expression.")
		return
	}

	canAssign := prec <= precAssignment
	prefixRule(c, canAssign)

	for prec <= getRule(c.p.current.Kind).precedence {
		c.p.advance()
		infixRule := getRule(c.p.previous.Kind).infix
		infixRule(c, canAssign)
	}

	if canAssign && c.p.match(token.EQUAL) {
		c.p.error("Invalid assignment target.")
	}
}

func (c *Compiler) number(_ bool) {
	n, _ := strconv.ParseFloat(c.p.previous.Lexeme, 64)
	c.emitConstant(value.NumberValue(n))
}

func (c *Compiler) stringLit(_ bool) {
	lexeme := c.p.previous.Lexeme
	raw := lexeme[1 : len(lexeme)-1] // strip the surrounding quotes
	str := c.objs.intern(raw)
	c.emitConstant(value.ObjectValue(str))
}

func (c *Compiler) literal(_ bool) {
	switch c.p.previous.Kind {
	case token.FALSE:
		c.emitOp(chunk.OpFalse)
	case token.TRUE:
		c.emitOp(chunk.OpTrue)
	case token.NIL:
		c.emitOp(chunk.OpNil)
	}
}

func (c *Compiler) grouping(_ bool) {
	c.expression()
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after expression.")
}

func (c *Compiler) unary(_ bool) {
	opKind := c.p.previous.Kind
	c.parsePrecedence(precUnary)
	switch opKind {
	case token.MINUS:
		c.emitOp(chunk.OpNegate)
	case token.BANG:
		c.emitOp(chunk.OpNot)
	}
}

func (c *Compiler) binary(_ bool) {
	opKind := c.p.previous.Kind
	rule := getRule(opKind)
	c.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BANG_EQUAL:
		c.emitOp(chunk.OpEqual)
		c.emitOp(chunk.OpNot)
	case token.EQUAL_EQUAL:
		c.emitOp(chunk.OpEqual)
	case token.GREATER:
		c.emitOp(chunk.OpGreater)
	case token.GREATER_EQUAL:
		c.emitOp(chunk.OpLess)
		c.emitOp(chunk.OpNot)
	case token.LESS:
		c.emitOp(chunk.OpLess)
	case token.LESS_EQUAL:
		c.emitOp(chunk.OpGreater)
		c.emitOp(chunk.OpNot)
	case token.PLUS:
		c.emitOp(chunk.OpAdd)
	case token.MINUS:
		c.emitOp(chunk.OpSubtract)
	case token.STAR:
		c.emitOp(chunk.OpMultiply)
	case token.SLASH:
		c.emitOp(chunk.OpDivide)
	}
}

func (c *Compiler) and_(_ bool) {
	endJump := c.emitJump(chunk.OpJumpIfFalse)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(precAnd)
	c.patchJump(endJump)
}

func (c *Compiler) or_(_ bool) {
	elseJump := c.emitJump(chunk.OpJumpIfFalse)
	endJump := c.emitJump(chunk.OpJump)
	c.patchJump(elseJump)
	c.emitOp(chunk.OpPop)
	c.parsePrecedence(precOr)
	c.patchJump(endJump)
}

func (c *Compiler) call(_ bool) {
	argc := c.argumentList()
	c.emitOpByte(chunk.OpCall, argc)
}

func (c *Compiler) argumentList() byte {
	var argc int
	if !c.p.check(token.RIGHT_PAREN) {
		for {
			c.expression()
			if argc == maxArgs {
				c.p.error("Cannot have more than 255 arguments.")
			}
			argc++
			if !c.p.match(token.COMMA) {
				break
			}
		}
	}
	c.p.consume(token.RIGHT_PAREN, "Expect ')' after arguments.")
	return byte(argc)
}

func (c *Compiler) variable(canAssign bool) {
	c.namedVariable(c.p.previous, canAssign)
}

func (c *Compiler) namedVariable(name token.Token, canAssign bool) {
	var getOp, setOp chunk.Op
	slot, isLocal := c.resolveLocal(name)

	var arg byte
	if isLocal {
		getOp, setOp = chunk.OpGetLocal, chunk.OpSetLocal
		arg = byte(slot)
	} else {
		getOp, setOp = chunk.OpGetGlobal, chunk.OpSetGlobal
		arg = c.identifierConstant(name)
	}

	if canAssign && c.p.match(token.EQUAL) {
		c.expression()
		c.emitOpByte(setOp, arg)
	} else {
		c.emitOpByte(getOp, arg)
	}
}

// --- variable declaration & resolution -----------------------------

func (c *Compiler) identifierConstant(name token.Token) byte {
	return c.makeConstant(value.ObjectValue(c.objs.intern(name.Lexeme)))
}

// parseVariable consumes an identifier and, for a global, returns its
// interned-name constant index; for a local it declares the local and
// returns 0 (the caller is expected to ignore the return value for
// locals, mirroring the original's "dummy" global index of 0).
func (c *Compiler) parseVariable(errMsg string) byte {
	c.p.consume(token.IDENTIFIER, errMsg)

	c.declareVariable()
	if c.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(c.p.previous)
}

// declareVariable adds the just-consumed identifier as a Local when
// inside a scope; at top level it is a no-op (globals are resolved by
// name at runtime, not by compile-time slot).
func (c *Compiler) declareVariable() {
	if c.scopeDepth == 0 {
		return
	}
	name := c.p.previous

	for i := len(c.locals) - 1; i >= 0; i-- {
		l := c.locals[i]
		if l.depth != -1 && l.depth < c.scopeDepth {
			break
		}
		if l.name.Lexeme == name.Lexeme {
			c.p.error("Variable with this name already declared in this scope.")
		}
	}

	c.addLocal(name)
}

func (c *Compiler) addLocal(name token.Token) {
	if len(c.locals) >= maxLocals {
		c.p.error("Too many local variables in function.")
		return
	}
	c.locals = append(c.locals, local{name: name, depth: -1})
}

// markInitialized flips the most recently declared local's depth from
// -1 to the current scope depth, or — at top level — is a no-op
// (globals have no initialized flag; funDeclaration calls this
// unconditionally for the function's own name).
func (c *Compiler) markInitialized() {
	if c.scopeDepth == 0 {
		return
	}
	c.locals[len(c.locals)-1].depth = c.scopeDepth
}

func (c *Compiler) defineVariable(global byte) {
	if c.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitOpByte(chunk.OpDefineGlobal, global)
}

// resolveLocal scans locals top-down for name, matching the most
// recently declared shadowing binding first (§4.5 "Local resolution").
// A match whose depth is still -1 means the name is being referenced
// inside its own initializer, which is a compile error.
func (c *Compiler) resolveLocal(name token.Token) (slot int, ok bool) {
	for i := len(c.locals) - 1; i >= 0; i-- {
		if c.locals[i].name.Lexeme == name.Lexeme {
			if c.locals[i].depth == -1 {
				c.p.error("Cannot read local variable in its own initializer.")
			}
			return i, true
		}
	}
	return 0, false
}
