// Package querylang parses the node predicate language into a queryir tree.
//
// Grammar:
//
//	predicate  = or_expr ;
//	or_expr    = and_expr { "or" and_expr } ;
//	and_expr   = unary { "and" unary } ;
//	unary      = "not" unary | "(" predicate ")" | comparison ;
//	comparison = field op literal | field "in" list ;
//	field      = "parent" | "name" | "path" | "id" | "ctime" | "mtime"
//	           | "data" "." key { "." key } ;
//	key        = ident | string ;
//	op         = "=" | "!=" | "<" | "<=" | ">" | ">=" | "~" ;
//	literal    = string | number | "true" | "false" | "null" ;
//	list       = "(" literal { "," literal } ")" | literal { "," literal } ;
//
// Keywords are case-insensitive; field names are not. An empty (or all
// whitespace) predicate matches everything.
package querylang

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/queryir"
)

// maxDepth bounds nesting of parentheses and "not" so hostile input cannot
// exhaust the stack.
const maxDepth = 64

const expectedField = "field (parent, name, path, id, ctime, mtime or data.<key>)"

// Parse parses predicate text. Errors are always *ParseError.
func Parse(src string) (queryir.Predicate, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	p := &parser{src: src, toks: toks}
	if p.peek().kind == tokEOF {
		return queryir.True{}, nil
	}

	pred, err := p.parseOr(0)
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokEOF {
		if tok.kind == tokRParen {
			return nil, p.errorf(tok, "end of input (unbalanced parenthesis)")
		}
		return nil, p.errorf(tok, `"and", "or" or end of input`)
	}
	return pred, nil
}

// MustParse is Parse for predicates known to be valid. It panics on error.
func MustParse(src string) queryir.Predicate {
	p, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return p
}

type parser struct {
	src  string
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) advance() token {
	tok := p.toks[p.pos]
	if tok.kind != tokEOF {
		p.pos++
	}
	return tok
}

func (p *parser) errorf(tok token, expected string) *ParseError {
	return &ParseError{Pos: tok.pos, Expected: expected, Found: tok.describe(), Input: p.src}
}

func (p *parser) parseOr(depth int) (queryir.Predicate, error) {
	first, err := p.parseAnd(depth)
	if err != nil {
		return nil, err
	}
	preds := []queryir.Predicate{first}
	for p.peek().keyword("or") {
		p.advance()
		next, err := p.parseAnd(depth)
		if err != nil {
			return nil, err
		}
		preds = append(preds, next)
	}
	if len(preds) == 1 {
		return first, nil
	}
	return queryir.Or{Predicates: preds}, nil
}

func (p *parser) parseAnd(depth int) (queryir.Predicate, error) {
	first, err := p.parseUnary(depth)
	if err != nil {
		return nil, err
	}
	preds := []queryir.Predicate{first}
	for p.peek().keyword("and") {
		p.advance()
		next, err := p.parseUnary(depth)
		if err != nil {
			return nil, err
		}
		preds = append(preds, next)
	}
	if len(preds) == 1 {
		return first, nil
	}
	return queryir.And{Predicates: preds}, nil
}

func (p *parser) parseUnary(depth int) (queryir.Predicate, error) {
	tok := p.peek()
	if depth >= maxDepth {
		return nil, &ParseError{Pos: tok.pos, Expected: "shallower nesting", Found: tok.describe(),
			Reason: fmt.Sprintf("more than %d nested levels", maxDepth), Input: p.src}
	}

	switch {
	case tok.keyword("not"):
		p.advance()
		inner, err := p.parseUnary(depth + 1)
		if err != nil {
			return nil, err
		}
		return queryir.Not{Predicate: inner}, nil
	case tok.kind == tokLParen:
		p.advance()
		inner, err := p.parseOr(depth + 1)
		if err != nil {
			return nil, err
		}
		if closing := p.peek(); closing.kind != tokRParen {
			return nil, p.errorf(closing, `")"`)
		}
		p.advance()
		return inner, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (queryir.Predicate, error) {
	field, err := p.parseField()
	if err != nil {
		return nil, err
	}

	opTok := p.peek()
	if opTok.keyword("in") {
		p.advance()
		values, err := p.parseList(field)
		if err != nil {
			return nil, err
		}
		return queryir.In{Field: field, Values: values}, nil
	}
	if opTok.kind != tokOp {
		return nil, p.errorf(opTok, "operator (=, !=, <, <=, >, >=, ~ or in)")
	}
	p.advance()
	op := queryir.Op(opTok.text)

	litTok := p.peek()
	value, err := p.parseLiteral()
	if err != nil {
		return nil, err
	}
	if err := queryir.CheckComparison(field, op, value); err != nil {
		return nil, &ParseError{
			Pos:      litTok.pos,
			Expected: expectedLiteral(field, op),
			Found:    litTok.describe(),
			Reason:   err.Error(),
			Input:    p.src,
		}
	}
	return queryir.Compare{Field: field, Op: op, Value: value}, nil
}

func (p *parser) parseField() (queryir.Field, error) {
	tok := p.peek()
	if tok.kind != tokIdent {
		return queryir.Field{}, p.errorf(tok, expectedField)
	}
	p.advance()

	if queryir.IsReserved(tok.text) {
		return queryir.Meta(tok.text), nil
	}
	if tok.text != queryir.DataPrefix {
		return queryir.Field{}, p.errorf(tok, expectedField)
	}

	var keys []string
	for {
		dot := p.peek()
		if dot.kind != tokDot {
			if len(keys) == 0 {
				return queryir.Field{}, p.errorf(dot, `"." after data`)
			}
			return queryir.Data(keys...), nil
		}
		p.advance()
		key := p.peek()
		if (key.kind != tokIdent && key.kind != tokString) || key.text == "" {
			return queryir.Field{}, p.errorf(key, "payload key")
		}
		p.advance()
		keys = append(keys, key.text)
	}
}

func (p *parser) parseList(field queryir.Field) ([]ir.Value, error) {
	parenthesized := p.peek().kind == tokLParen
	if parenthesized {
		p.advance()
	}

	var values []ir.Value
	for {
		litTok := p.peek()
		value, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		if err := queryir.CheckIn(field, []ir.Value{value}); err != nil {
			return nil, &ParseError{
				Pos:      litTok.pos,
				Expected: expectedListElement(field),
				Found:    litTok.describe(),
				Reason:   err.Error(),
				Input:    p.src,
			}
		}
		values = append(values, value)
		if p.peek().kind != tokComma {
			break
		}
		p.advance()
	}

	if parenthesized {
		if closing := p.peek(); closing.kind != tokRParen {
			return nil, p.errorf(closing, `"," or ")"`)
		}
		p.advance()
	}
	return values, nil
}

func (p *parser) parseLiteral() (ir.Value, error) {
	tok := p.peek()
	switch {
	case tok.kind == tokString:
		p.advance()
		return ir.String(tok.text), nil
	case tok.kind == tokNumber:
		p.advance()
		return parseNumber(tok, p.src)
	case tok.keyword("true"):
		p.advance()
		return ir.Bool(true), nil
	case tok.keyword("false"):
		p.advance()
		return ir.Bool(false), nil
	case tok.keyword("null"):
		p.advance()
		return ir.Null{}, nil
	}
	return nil, p.errorf(tok, "literal (string, number, true, false or null)")
}

func parseNumber(tok token, src string) (ir.Value, error) {
	if !strings.ContainsAny(tok.text, ".eE") {
		if n, err := strconv.ParseInt(tok.text, 10, 64); err == nil {
			return ir.Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(tok.text, 64)
	if err != nil {
		return nil, &ParseError{Pos: tok.pos, Expected: "number in range", Found: tok.describe(), Input: src}
	}
	return ir.Float(f), nil
}

func expectedLiteral(field queryir.Field, op queryir.Op) string {
	switch {
	case field.Kind == queryir.FieldMeta:
		return fmt.Sprintf("string literal for field %s", field)
	case op == queryir.OpLike:
		return "string pattern for ~"
	case op.IsOrdering():
		return fmt.Sprintf("string or number literal for %s", op)
	}
	return "scalar literal"
}

func expectedListElement(field queryir.Field) string {
	if field.Kind == queryir.FieldMeta {
		return fmt.Sprintf("string literal for field %s", field)
	}
	return "string, number or boolean literal"
}
