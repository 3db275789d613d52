package repoindex

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a package version: dot-separated non-negative integers.
type Version []int

// ParseVersion parses a version string such as "1.2.3".
func ParseVersion(s string) (Version, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty version", ErrVersionSyntax)
	}
	parts := strings.Split(s, ".")
	v := make(Version, 0, len(parts))
	for _, part := range parts {
		if part == "" || strings.IndexFunc(part, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
			return nil, fmt.Errorf("%w: %q", ErrVersionSyntax, s)
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrVersionSyntax, s)
		}
		v = append(v, n)
	}
	return v, nil
}

// String formats the version as dot-separated components.
func (v Version) String() string {
	parts := make([]string, len(v))
	for i, n := range v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}

// Compare returns -1, 0, or 1 ordering v against o.
// Shorter versions sort before longer ones with equal prefixes,
// so 1.0 < 1.0.0.
func (v Version) Compare(o Version) int {
	for i := 0; i < len(v) && i < len(o); i++ {
		switch {
		case v[i] < o[i]:
			return -1
		case v[i] > o[i]:
			return 1
		}
	}
	switch {
	case len(v) < len(o):
		return -1
	case len(v) > len(o):
		return 1
	}
	return 0
}

// rangeOp identifies one node kind in a VersionRange predicate tree.
type rangeOp int

const (
	rangeAny rangeOp = iota
	rangeEQ
	rangeGT
	rangeGTE
	rangeLT
	rangeLTE
	rangeAnd
	rangeOr
)

// VersionRange is a predicate over versions, built from comparisons against
// pivot versions combined with intersection and union.
//
// Intersection is associative and commutative in outcome, so preference
// records can be folded in any order.
type VersionRange struct {
	op          rangeOp
	pivot       Version
	left, right *VersionRange
}

// AnyVersion matches every version.
func AnyVersion() VersionRange {
	return VersionRange{op: rangeAny}
}

// ThisVersion matches exactly v.
func ThisVersion(v Version) VersionRange {
	return VersionRange{op: rangeEQ, pivot: v}
}

// OrLaterVersion matches v and everything after it.
func OrLaterVersion(v Version) VersionRange {
	return VersionRange{op: rangeGTE, pivot: v}
}

// EarlierVersion matches everything strictly before v.
func EarlierVersion(v Version) VersionRange {
	return VersionRange{op: rangeLT, pivot: v}
}

// Intersect matches versions contained in both r and o.
func (r VersionRange) Intersect(o VersionRange) VersionRange {
	if r.op == rangeAny {
		return o
	}
	if o.op == rangeAny {
		return r
	}
	return VersionRange{op: rangeAnd, left: &r, right: &o}
}

// Union matches versions contained in either r or o.
func (r VersionRange) Union(o VersionRange) VersionRange {
	if r.op == rangeAny || o.op == rangeAny {
		return AnyVersion()
	}
	return VersionRange{op: rangeOr, left: &r, right: &o}
}

// Contains reports whether v satisfies the range.
func (r VersionRange) Contains(v Version) bool {
	switch r.op {
	case rangeAny:
		return true
	case rangeEQ:
		return v.Compare(r.pivot) == 0
	case rangeGT:
		return v.Compare(r.pivot) > 0
	case rangeGTE:
		return v.Compare(r.pivot) >= 0
	case rangeLT:
		return v.Compare(r.pivot) < 0
	case rangeLTE:
		return v.Compare(r.pivot) <= 0
	case rangeAnd:
		return r.left.Contains(v) && r.right.Contains(v)
	case rangeOr:
		return r.left.Contains(v) || r.right.Contains(v)
	default:
		return false
	}
}

// String renders the range in constraint syntax.
func (r VersionRange) String() string {
	switch r.op {
	case rangeAny:
		return "-any"
	case rangeEQ:
		return "== " + r.pivot.String()
	case rangeGT:
		return "> " + r.pivot.String()
	case rangeGTE:
		return ">= " + r.pivot.String()
	case rangeLT:
		return "< " + r.pivot.String()
	case rangeLTE:
		return "<= " + r.pivot.String()
	case rangeAnd:
		return "(" + r.left.String() + " && " + r.right.String() + ")"
	case rangeOr:
		return "(" + r.left.String() + " || " + r.right.String() + ")"
	default:
		return "-none"
	}
}

// Constraint is a named version-range predicate, as found in preference
// records: a package name followed by an optional range expression.
type Constraint struct {
	Name  string
	Range VersionRange
}

// ParseConstraint parses constraint text such as "base >= 4.3 && < 4.16".
// A bare package name constrains nothing (any version).
func ParseConstraint(s string) (Constraint, error) {
	toks, err := tokenize(s)
	if err != nil {
		return Constraint{}, err
	}
	if len(toks) == 0 {
		return Constraint{}, fmt.Errorf("%w: empty constraint", ErrVersionSyntax)
	}
	name := toks[0]
	if !validConstraintName(name) {
		return Constraint{}, fmt.Errorf("%w: bad package name %q", ErrVersionSyntax, name)
	}
	p := &rangeParser{toks: toks[1:]}
	if len(p.toks) == 0 {
		return Constraint{Name: name, Range: AnyVersion()}, nil
	}
	r, err := p.parseOr()
	if err != nil {
		return Constraint{}, err
	}
	if p.pos != len(p.toks) {
		return Constraint{}, fmt.Errorf("%w: trailing tokens in %q", ErrVersionSyntax, s)
	}
	return Constraint{Name: name, Range: r}, nil
}

// tokenize splits constraint text into names, versions, operators, and parens.
func tokenize(s string) ([]string, error) {
	var toks []string
	i := 0
	for i < len(s) {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(' || c == ')':
			toks = append(toks, string(c))
			i++
		case c == '&' || c == '|':
			if i+1 >= len(s) || s[i+1] != c {
				return nil, fmt.Errorf("%w: stray %q", ErrVersionSyntax, string(c))
			}
			toks = append(toks, s[i:i+2])
			i += 2
		case c == '=' || c == '<' || c == '>':
			j := i + 1
			if j < len(s) && s[j] == '=' {
				j++
			}
			toks = append(toks, s[i:j])
			i = j
		default:
			j := i
			for j < len(s) && !strings.ContainsRune(" \t()&|=<>", rune(s[j])) {
				j++
			}
			if j == i {
				return nil, fmt.Errorf("%w: unexpected %q", ErrVersionSyntax, string(c))
			}
			toks = append(toks, s[i:j])
			i = j
		}
	}
	return toks, nil
}

// rangeParser is a recursive-descent parser over constraint tokens.
// Grammar: or := and ("||" and)* ; and := atom ("&&" atom)* ;
// atom := op version | "(" or ")" ; with "&&" binding tighter than "||".
type rangeParser struct {
	toks []string
	pos  int
}

func (p *rangeParser) peek() string {
	if p.pos < len(p.toks) {
		return p.toks[p.pos]
	}
	return ""
}

func (p *rangeParser) parseOr() (VersionRange, error) {
	r, err := p.parseAnd()
	if err != nil {
		return VersionRange{}, err
	}
	for p.peek() == "||" {
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return VersionRange{}, err
		}
		r = r.Union(next)
	}
	return r, nil
}

func (p *rangeParser) parseAnd() (VersionRange, error) {
	r, err := p.parseAtom()
	if err != nil {
		return VersionRange{}, err
	}
	for p.peek() == "&&" {
		p.pos++
		next, err := p.parseAtom()
		if err != nil {
			return VersionRange{}, err
		}
		r = r.Intersect(next)
	}
	return r, nil
}

func (p *rangeParser) parseAtom() (VersionRange, error) {
	tok := p.peek()
	switch tok {
	case "(":
		p.pos++
		r, err := p.parseOr()
		if err != nil {
			return VersionRange{}, err
		}
		if p.peek() != ")" {
			return VersionRange{}, fmt.Errorf("%w: missing )", ErrVersionSyntax)
		}
		p.pos++
		return r, nil
	case "==", ">", ">=", "<", "<=":
		p.pos++
		v, err := ParseVersion(p.peek())
		if err != nil {
			return VersionRange{}, err
		}
		p.pos++
		switch tok {
		case "==":
			return VersionRange{op: rangeEQ, pivot: v}, nil
		case ">":
			return VersionRange{op: rangeGT, pivot: v}, nil
		case ">=":
			return VersionRange{op: rangeGTE, pivot: v}, nil
		case "<":
			return VersionRange{op: rangeLT, pivot: v}, nil
		default:
			return VersionRange{op: rangeLTE, pivot: v}, nil
		}
	case "-any":
		p.pos++
		return AnyVersion(), nil
	default:
		return VersionRange{}, fmt.Errorf("%w: unexpected token %q", ErrVersionSyntax, tok)
	}
}

func validConstraintName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-':
		default:
			return false
		}
	}
	return true
}
