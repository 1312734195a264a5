package riaktest

import (
	"fmt"
	"strings"
	"unicode"
)

// The node evaluates the boolean subset of the Solr syntax: field:value
// terms, quoted phrases, trailing-* prefixes, *:*, AND/OR/NOT (and the
// &&, ||, !, +, - spellings) and parentheses. Adjacent clauses are OR-ed.
// Matching is exact on lowercased whitespace tokens; there is no analysis
// or scoring.

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokLParen
	tokRParen
	tokAnd
	tokOr
	tokNot
	tokTerm
)

type token struct {
	kind tokenKind
	text string
}

// matcher reports whether a stored document matches.
type matcher func(doc map[string][]string) bool

const defaultField = "value"

func parseQuery(q string) (matcher, error) {
	toks, err := tokenize(q)
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	m, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.peek().kind != tokEOF {
		return nil, fmt.Errorf("unexpected %q at token %d", p.peek().text, p.pos)
	}
	return m, nil
}

func tokenize(q string) ([]token, error) {
	var toks []token
	rs := []rune(q)
	for i := 0; i < len(rs); {
		r := rs[i]
		switch {
		case unicode.IsSpace(r):
			i++
		case r == '(':
			toks = append(toks, token{tokLParen, "("})
			i++
		case r == ')':
			toks = append(toks, token{tokRParen, ")"})
			i++
		case r == '!' || r == '-':
			toks = append(toks, token{tokNot, string(r)})
			i++
		case r == '+':
			i++
		case r == '&' && i+1 < len(rs) && rs[i+1] == '&':
			toks = append(toks, token{tokAnd, "&&"})
			i += 2
		case r == '|' && i+1 < len(rs) && rs[i+1] == '|':
			toks = append(toks, token{tokOr, "||"})
			i += 2
		default:
			text, next, err := readTerm(rs, i)
			if err != nil {
				return nil, err
			}
			i = next
			switch text {
			case "AND":
				toks = append(toks, token{tokAnd, text})
			case "OR":
				toks = append(toks, token{tokOr, text})
			case "NOT":
				toks = append(toks, token{tokNot, text})
			default:
				toks = append(toks, token{tokTerm, text})
			}
		}
	}
	return append(toks, token{tokEOF, ""}), nil
}

// readTerm reads a term starting at i, honoring backslash escapes and
// double-quoted phrases.
func readTerm(rs []rune, i int) (string, int, error) {
	var b strings.Builder
	inQuote := false
	for i < len(rs) {
		r := rs[i]
		switch {
		case r == '\\' && i+1 < len(rs):
			b.WriteRune('\\')
			b.WriteRune(rs[i+1])
			i += 2
			continue
		case r == '"':
			inQuote = !inQuote
		case !inQuote && (unicode.IsSpace(r) || r == '(' || r == ')'):
			return b.String(), i, nil
		}
		b.WriteRune(r)
		i++
	}
	if inQuote {
		return "", i, fmt.Errorf("unterminated phrase")
	}
	return b.String(), i, nil
}

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseOr() (matcher, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().kind {
		case tokEOF, tokRParen:
			return left, nil
		case tokNot:
			// "a NOT b" prohibits b rather than OR-ing its negation.
			right, err := p.parseAnd()
			if err != nil {
				return nil, err
			}
			l, r := left, right
			left = func(doc map[string][]string) bool { return l(doc) && r(doc) }
			continue
		case tokOr:
			p.next()
		}
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(doc map[string][]string) bool { return l(doc) || r(doc) }
	}
}

func (p *parser) parseAnd() (matcher, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.peek().kind == tokAnd {
		p.next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		l, r := left, right
		left = func(doc map[string][]string) bool { return l(doc) && r(doc) }
	}
	return left, nil
}

func (p *parser) parseUnary() (matcher, error) {
	if p.peek().kind == tokNot {
		p.next()
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return func(doc map[string][]string) bool { return !inner(doc) }, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (matcher, error) {
	t := p.next()
	switch t.kind {
	case tokLParen:
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.next().kind != tokRParen {
			return nil, fmt.Errorf("missing closing parenthesis")
		}
		return inner, nil
	case tokTerm:
		return termMatcher(t.text), nil
	case tokEOF:
		return nil, fmt.Errorf("unexpected end of query")
	default:
		return nil, fmt.Errorf("unexpected %q", t.text)
	}
}

func termMatcher(text string) matcher {
	if text == "*:*" {
		return func(map[string][]string) bool { return true }
	}
	field, raw := defaultField, text
	if i := unescapedColon(text); i >= 0 {
		field, raw = text[:i], text[i+1:]
	}
	value := unescape(raw)

	if strings.HasPrefix(value, `"`) && strings.HasSuffix(value, `"`) && len(value) >= 2 {
		phrase := strings.ToLower(value[1 : len(value)-1])
		return func(doc map[string][]string) bool {
			for _, v := range doc[field] {
				if strings.Contains(strings.ToLower(v), phrase) {
					return true
				}
			}
			return false
		}
	}

	prefix := wildcardSuffix(raw)
	if prefix {
		value = unescape(raw[:len(raw)-1])
	}
	value = strings.ToLower(value)
	return func(doc map[string][]string) bool {
		for _, v := range doc[field] {
			for _, tok := range strings.Fields(strings.ToLower(v)) {
				if tok == value || (prefix && strings.HasPrefix(tok, value)) {
					return true
				}
			}
		}
		return false
	}
}

func unescapedColon(s string) int {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return -1
		case ':':
			return i
		}
	}
	return -1
}

// wildcardSuffix reports whether s ends in a '*' that is not escaped.
func wildcardSuffix(s string) bool {
	if !strings.HasSuffix(s, "*") {
		return false
	}
	slashes := 0
	for i := len(s) - 2; i >= 0 && s[i] == '\\'; i-- {
		slashes++
	}
	return slashes%2 == 0
}

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '\\' && i+1 < len(s) {
			i++
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
