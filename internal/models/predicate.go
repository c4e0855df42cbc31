// Eventlytics - Multi-tenant Event Analytics Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/eventlytics/eventlytics

package models

import (
	"encoding/json"
	"fmt"
	"regexp"
)

// PredicateOp identifies a predicate node's kind. Predicates compose into a
// tree over an event's properties, used by funnel step filters.
type PredicateOp string

// Predicate operators.
const (
	OpEq    PredicateOp = "eq"
	OpRegex PredicateOp = "regex"
	OpRange PredicateOp = "range"
	OpAnd   PredicateOp = "and"
	OpOr    PredicateOp = "or"
)

// Predicate is a node in the filter tree: either a leaf comparison
// (Eq/Regex/Range) or a boolean combinator (And/Or) over child predicates.
//
// JSON shape:
//
//	{"op":"eq","path":"plan","value":"pro"}
//	{"op":"range","path":"amount","lo":10,"hi":100}
//	{"op":"and","children":[...]}
type Predicate struct {
	Op       PredicateOp `json:"op" validate:"required,oneof=eq regex range and or"`
	Path     string      `json:"path,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	Pattern  string      `json:"pattern,omitempty"`
	Lo       interface{} `json:"lo,omitempty"`
	Hi       interface{} `json:"hi,omitempty"`
	Children []Predicate `json:"children,omitempty"`

	compiled *regexp.Regexp
}

// Compile precompiles any regex patterns in the tree, returning an error for
// malformed patterns before the predicate is ever evaluated against events.
func (p *Predicate) Compile() error {
	switch p.Op {
	case OpRegex:
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return fmt.Errorf("predicate: invalid regex %q: %w", p.Pattern, err)
		}
		p.compiled = re
	case OpAnd, OpOr:
		for i := range p.Children {
			if err := p.Children[i].Compile(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Eval evaluates the predicate against an event's property map.
func (p *Predicate) Eval(props map[string]interface{}) bool {
	switch p.Op {
	case OpEq:
		v, ok := props[p.Path]
		if !ok {
			return false
		}
		return fmt.Sprintf("%v", v) == fmt.Sprintf("%v", p.Value)
	case OpRegex:
		v, ok := props[p.Path]
		if !ok {
			return false
		}
		re := p.compiled
		if re == nil {
			var err error
			re, err = regexp.Compile(p.Pattern)
			if err != nil {
				return false
			}
		}
		return re.MatchString(fmt.Sprintf("%v", v))
	case OpRange:
		v, ok := props[p.Path]
		if !ok {
			return false
		}
		n, ok := toFloat64(v)
		if !ok {
			return false
		}
		lo, loOK := toFloat64(p.Lo)
		hi, hiOK := toFloat64(p.Hi)
		if loOK && n < lo {
			return false
		}
		if hiOK && n > hi {
			return false
		}
		return true
	case OpAnd:
		for i := range p.Children {
			if !p.Children[i].Eval(props) {
				return false
			}
		}
		return true
	case OpOr:
		for i := range p.Children {
			if p.Children[i].Eval(props) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
