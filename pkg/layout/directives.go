package layout

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"text/template"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/vm"

	"github.com/vango-dev/docrender/pkg/token"
)

// directives returns the template functions bound to reg:
//
//	{{include "modules" "left" "style" "xhtml"}}
//	{{modules "left" "style" "xhtml"}}
//	{{module "banner"}}
//	{{component}}
//	{{head}}
//	{{if countModules "left or right"}}...{{end}}
func directives(reg Registrar) template.FuncMap {
	include := func(kind, name string, pairs ...string) (string, error) {
		params, err := toParams(pairs)
		if err != nil {
			return "", err
		}
		if reg == nil {
			return "", nil
		}
		return reg.Register(token.Kind(kind), name, params), nil
	}

	return template.FuncMap{
		"include": include,
		"modules": func(position string, pairs ...string) (string, error) {
			return include(string(token.KindModules), position, pairs...)
		},
		"module": func(name string, pairs ...string) (string, error) {
			return include(string(token.KindModule), name, pairs...)
		},
		"component": func(pairs ...string) (string, error) {
			return include(string(token.KindComponent), "", pairs...)
		},
		"head": func() (string, error) {
			return include(string(token.KindHead), "")
		},
		"countModules": func(condition string) (int, error) {
			if reg == nil {
				return 0, nil
			}
			return countModules(reg, condition)
		},
	}
}

func toParams(pairs []string) (map[string]string, error) {
	if len(pairs)%2 != 0 {
		return nil, fmt.Errorf("parameters must be key/value pairs, got %d values", len(pairs))
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	params := make(map[string]string, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		params[pairs[i]] = pairs[i+1]
	}
	return params, nil
}

// countModules evaluates a position condition. A single position returns its
// module count. Anything else is an expression over position counts:
//
//	left + right        both counts added
//	left or right       1 when either position has modules
//	user1 + user2 > 1   1 when more than one module is published
//
// Boolean results become 1 or 0.
func countModules(reg Registrar, condition string) (int, error) {
	fields := strings.Fields(condition)
	switch len(fields) {
	case 0:
		return 0, nil
	case 1:
		return reg.CountModules(fields[0]), nil
	}

	c, err := compileCondition(condition)
	if err != nil {
		return 0, err
	}
	env := make(map[string]any, len(c.positions))
	for _, pos := range c.positions {
		env[pos] = reg.CountModules(pos)
	}
	out, err := expr.Run(c.program, env)
	if err != nil {
		return 0, fmt.Errorf("countModules %q: %w", condition, err)
	}

	switch v := out.(type) {
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case int:
		return v, nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("countModules %q: result %T is not a number", condition, out)
	}
}

type condition struct {
	program   *vm.Program
	positions []string
}

// conditions caches compiled conditions by source text.
var conditions sync.Map

func compileCondition(src string) (*condition, error) {
	if c, ok := conditions.Load(src); ok {
		return c.(*condition), nil
	}

	p := &positionPatcher{}
	program, err := expr.Compile(src, expr.AllowUndefinedVariables(), expr.Patch(p))
	if err != nil {
		return nil, fmt.Errorf("countModules %q: %w", src, err)
	}
	c := &condition{program: program, positions: p.positions}
	conditions.Store(src, c)
	return c, nil
}

// positionPatcher records the positions a condition names and turns counts
// used as logical operands into count > 0.
type positionPatcher struct {
	positions []string
}

func (p *positionPatcher) Visit(node *ast.Node) {
	switch n := (*node).(type) {
	case *ast.IdentifierNode:
		if !slices.Contains(p.positions, n.Value) {
			p.positions = append(p.positions, n.Value)
		}
	case *ast.BinaryNode:
		switch n.Operator {
		case "and", "or", "&&", "||":
			n.Left = truthy(n.Left)
			n.Right = truthy(n.Right)
		}
	case *ast.UnaryNode:
		switch n.Operator {
		case "not", "!":
			n.Node = truthy(n.Node)
		}
	}
}

func truthy(n ast.Node) ast.Node {
	switch n.(type) {
	case *ast.IdentifierNode, *ast.IntegerNode:
		return &ast.BinaryNode{Operator: ">", Left: n, Right: &ast.IntegerNode{Value: 0}}
	}
	return n
}
