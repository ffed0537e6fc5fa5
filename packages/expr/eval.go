package expr

import (
	"fmt"
	"strconv"
	"strings"
)

// Resolver looks up variable operands. *vars.Store satisfies it.
type Resolver interface {
	Get(name string) (any, bool)
}

// Eval evaluates a condition against vars. Parse errors and unknown
// operators return an error; they never panic.
func Eval(cond string, vars Resolver) (bool, error) {
	tokens, err := tokenize(cond)
	if err != nil {
		return false, err
	}

	switch len(tokens) {
	case 0:
		return false, fmt.Errorf("empty condition")
	case 1:
		// Bare operand: truthiness of its resolved value.
		return truthy(resolve(tokens[0], vars)), nil
	case 2:
		if tokens[1].kind != tokenWord {
			return false, fmt.Errorf("expected operator, got %q", tokens[1].text)
		}
		switch tokens[1].text {
		case "exists":
			if tokens[0].kind != tokenWord {
				return false, fmt.Errorf("exists requires a variable name")
			}
			_, ok := vars.Get(tokens[0].text)
			return ok, nil
		case "missing":
			if tokens[0].kind != tokenWord {
				return false, fmt.Errorf("missing requires a variable name")
			}
			_, ok := vars.Get(tokens[0].text)
			return !ok, nil
		default:
			return false, fmt.Errorf("unknown postfix operator %q", tokens[1].text)
		}
	case 3:
		lhs := resolve(tokens[0], vars)
		rhs := resolve(tokens[2], vars)
		if tokens[1].kind != tokenWord {
			return false, fmt.Errorf("expected operator, got %q", tokens[1].text)
		}
		return compare(lhs, tokens[1].text, rhs)
	default:
		return false, fmt.Errorf("condition %q has too many terms", cond)
	}
}

// resolve turns a token into a value: literals stand for themselves, words
// are variable lookups falling back to the word itself when unbound. The
// fallback keeps conditions like `env == production` readable without
// requiring quotes.
func resolve(tok token, vars Resolver) any {
	if tok.kind == tokenLiteral {
		return tok.value
	}
	if v, ok := vars.Get(tok.text); ok {
		return v
	}
	return tok.text
}

func compare(lhs any, op string, rhs any) (bool, error) {
	switch op {
	case "==":
		return equal(lhs, rhs), nil
	case "!=":
		return !equal(lhs, rhs), nil
	case "<", "<=", ">", ">=":
		ln, lok := toNumber(lhs)
		rn, rok := toNumber(rhs)
		if !lok || !rok {
			return false, fmt.Errorf("operator %s requires numeric operands", op)
		}
		switch op {
		case "<":
			return ln < rn, nil
		case "<=":
			return ln <= rn, nil
		case ">":
			return ln > rn, nil
		default:
			return ln >= rn, nil
		}
	case "contains":
		return contains(lhs, rhs), nil
	default:
		return false, fmt.Errorf("unknown operator %q", op)
	}
}

// equal compares after normalizing numbers, so 200 == 200.0 and a captured
// float64 equals an integer literal.
func equal(lhs, rhs any) bool {
	if ln, ok := toNumber(lhs); ok {
		if rn, rok := toNumber(rhs); rok {
			return ln == rn
		}
	}
	return fmt.Sprintf("%v", lhs) == fmt.Sprintf("%v", rhs)
}

func contains(lhs, rhs any) bool {
	switch v := lhs.(type) {
	case string:
		return strings.Contains(v, fmt.Sprintf("%v", rhs))
	case []any:
		for _, item := range v {
			if equal(item, rhs) {
				return true
			}
		}
		return false
	case map[string]any:
		key, ok := rhs.(string)
		if !ok {
			key = fmt.Sprintf("%v", rhs)
		}
		_, found := v[key]
		return found
	default:
		return false
	}
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != "" && val != "false"
	case float64:
		return val != 0
	case int:
		return val != 0
	default:
		return true
	}
}
