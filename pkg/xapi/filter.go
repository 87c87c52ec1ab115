package xapi

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterNone
	FilterCommand
	FilterField
	FilterCustom
	FilterAllOf
	FilterAnyOf
	FilterExpr
)

func (k FilterKind) String() string {
	switch k {
	case FilterAll:
		return "all"
	case FilterNone:
		return "none"
	case FilterCommand:
		return "command"
	case FilterField:
		return "field"
	case FilterCustom:
		return "custom"
	case FilterAllOf:
		return "allOf"
	case FilterAnyOf:
		return "anyOf"
	case FilterExpr:
		return "expr"
	default:
		return fmt.Sprintf("FilterKind(%d)", int(k))
	}
}

// PredicateFunc не должна изменять msg.
type PredicateFunc func(msg *StreamData) bool

// Filter - предикат над кадрами потока. Нулевое значение пропускает всё.
type Filter struct {
	kind     FilterKind
	name     string
	value    any
	pred     PredicateFunc
	program  *vm.Program
	source   string
	children []Filter
}

func All() Filter {
	return Filter{kind: FilterAll}
}

func None() Filter {
	return Filter{kind: FilterNone}
}

func ByCommand(name string) Filter {
	return Filter{kind: FilterCommand, name: name}
}

// ByField пропускает кадры, у которых data - объект с полем name, равным
// expected. Сравнение идёт в JSON-форме: 1 и 1.0 равны, структуры
// сравниваются по закодированным полям.
func ByField(name string, expected any) Filter {
	return Filter{kind: FilterField, name: name, value: normalizeValue(expected)}
}

// Custom: паника внутри fn считается несовпадением.
func Custom(fn PredicateFunc) Filter {
	return Filter{kind: FilterCustom, pred: fn}
}

// AllOf() пропускает всё.
func AllOf(filters ...Filter) Filter {
	return Filter{kind: FilterAllOf, children: filters}
}

// AnyOf() не пропускает ничего.
func AnyOf(filters ...Filter) Filter {
	return Filter{kind: FilterAnyOf, children: filters}
}

// Expr компилирует логическое выражение expr-lang с переменными command и
// data (декодированные данные кадра), например
//
//	command == "tickPrices" && data.symbol == "EURUSD" && data.ask > 1.1
func Expr(code string) (Filter, error) {
	program, err := expr.Compile(code, expr.AsBool())
	if err != nil {
		return Filter{}, fmt.Errorf("failed to compile filter %q: %w", code, err)
	}

	return Filter{kind: FilterExpr, program: program, source: code}, nil
}

func (f Filter) Kind() FilterKind {
	return f.kind
}

// Match: ошибки предикатов и выражений считаются несовпадением.
func (f Filter) Match(msg *StreamData) bool {
	ok, _ := f.match(msg)
	return ok
}

// match возвращает первую ошибку предиката, чтобы её можно было залогировать.
func (f Filter) match(msg *StreamData) (bool, error) {
	switch f.kind {
	case FilterAll:
		return true, nil

	case FilterNone:
		return false, nil

	case FilterCommand:
		return msg.Command == f.name, nil

	case FilterField:
		obj, ok := msg.Value().(map[string]any)
		if !ok {
			return false, nil
		}

		v, ok := obj[f.name]
		if !ok {
			return false, nil
		}

		return reflect.DeepEqual(v, f.value), nil

	case FilterCustom:
		return f.runCustom(msg)

	case FilterExpr:
		return f.runExpr(msg)

	case FilterAllOf:
		var firstErr error
		for _, c := range f.children {
			ok, err := c.match(msg)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if !ok {
				return false, firstErr
			}
		}

		return true, firstErr

	case FilterAnyOf:
		var firstErr error
		for _, c := range f.children {
			ok, err := c.match(msg)
			if err != nil && firstErr == nil {
				firstErr = err
			}
			if ok {
				return true, firstErr
			}
		}

		return false, firstErr

	default:
		return false, fmt.Errorf("unknown filter kind %v", f.kind)
	}
}

func (f Filter) runCustom(msg *StreamData) (ok bool, err error) {
	if f.pred == nil {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("filter predicate panicked: %v", r)
		}
	}()

	return f.pred(msg), nil
}

func (f Filter) runExpr(msg *StreamData) (bool, error) {
	out, err := expr.Run(f.program, exprEnv(msg))
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", f.source, err)
	}

	ok, _ := out.(bool)

	return ok, nil
}

func (f Filter) String() string {
	switch f.kind {
	case FilterCommand:
		return fmt.Sprintf("command(%s)", f.name)
	case FilterField:
		return fmt.Sprintf("field(%s=%v)", f.name, f.value)
	case FilterExpr:
		return fmt.Sprintf("expr(%s)", f.source)
	case FilterAllOf, FilterAnyOf:
		parts := make([]string, len(f.children))
		for i, c := range f.children {
			parts[i] = c.String()
		}

		return fmt.Sprintf("%s(%s)", f.kind, strings.Join(parts, ", "))
	default:
		return f.kind.String()
	}
}

func exprEnv(msg *StreamData) map[string]any {
	env := map[string]any{
		"command": "",
		"data":    nil,
	}

	if msg != nil {
		env["command"] = msg.Command
		env["data"] = msg.Value()
	}

	return env
}

// normalizeValue приводит v к виду, в который encoding/json декодирует any.
func normalizeValue(v any) any {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}

	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return v
	}

	return out
}
