package expr

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenLiteral
)

type token struct {
	kind  tokenKind
	text  string
	value any
}

// tokenize splits a condition on whitespace, keeping quoted strings whole
// and decoding literals (quoted strings, numbers, true/false/null) eagerly.
func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0
	n := len(input)

	for i < n {
		for i < n && (input[i] == ' ' || input[i] == '\t') {
			i++
		}
		if i >= n {
			break
		}

		if input[i] == '"' || input[i] == '\'' {
			quote := input[i]
			end := strings.IndexByte(input[i+1:], quote)
			if end == -1 {
				return nil, fmt.Errorf("unterminated string in condition %q", input)
			}
			tokens = append(tokens, token{
				kind:  tokenLiteral,
				text:  input[i+1 : i+1+end],
				value: input[i+1 : i+1+end],
			})
			i += end + 2
			continue
		}

		start := i
		for i < n && input[i] != ' ' && input[i] != '\t' {
			i++
		}
		tokens = append(tokens, classify(input[start:i]))
	}
	return tokens, nil
}

func classify(word string) token {
	switch word {
	case "true":
		return token{kind: tokenLiteral, text: word, value: true}
	case "false":
		return token{kind: tokenLiteral, text: word, value: false}
	case "null":
		return token{kind: tokenLiteral, text: word, value: nil}
	}
	if f, err := strconv.ParseFloat(word, 64); err == nil {
		return token{kind: tokenLiteral, text: word, value: f}
	}
	return token{kind: tokenWord, text: word}
}
