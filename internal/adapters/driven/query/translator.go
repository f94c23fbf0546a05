package query

import (
	"strings"

	"github.com/google/shlex"

	"github.com/custodia-labs/threadsearch/internal/core/domain"
	"github.com/custodia-labs/threadsearch/internal/core/ports/driven"
)

// Ensure Translator implements the interface.
var _ driven.QueryTranslator = (*Translator)(nil)

// Translator parses mail search syntax.
type Translator struct{}

// NewTranslator creates a new translator.
func NewTranslator() *Translator {
	return &Translator{}
}

// Parse translates text into a filter. Errors are *domain.ParseError.
func (t *Translator) Parse(text string) (*domain.Filter, error) {
	tokens, err := shlex.Split(text)
	if err != nil {
		return nil, &domain.ParseError{Token: text, Pos: 0, Reason: err.Error()}
	}
	if len(tokens) == 0 {
		return nil, &domain.ParseError{Token: text, Pos: 0, Reason: "empty query"}
	}

	f := &domain.Filter{}
	for pos, tok := range tokens {
		if err := apply(f, tok, pos); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func apply(f *domain.Filter, tok string, pos int) error {
	negated := false
	body := tok
	if strings.HasPrefix(body, "-") {
		negated = true
		body = body[1:]
		if body == "" {
			return &domain.ParseError{Token: tok, Pos: pos, Reason: "dangling negation"}
		}
	}

	if key, value, ok := splitOperator(body); ok {
		return applyOperator(f, tok, pos, key, value, negated)
	}

	phrase := strings.ContainsAny(body, " \t")
	switch {
	case negated:
		f.Excluded = append(f.Excluded, body)
	case phrase:
		f.Phrases = append(f.Phrases, body)
	default:
		f.Terms = append(f.Terms, body)
	}
	return nil
}

func applyOperator(f *domain.Filter, tok string, pos int, key, value string, negated bool) error {
	if value == "" {
		return &domain.ParseError{Token: tok, Pos: pos, Reason: "missing value for " + key}
	}

	switch key {
	case domain.FieldFrom, domain.FieldTo, domain.FieldSubject:
		f.Fields = append(f.Fields, domain.FieldMatch{Field: key, Value: value, Negated: negated})
	case "in":
		if negated {
			return &domain.ParseError{Token: tok, Pos: pos, Reason: "in: cannot be negated"}
		}
		f.Accounts = append(f.Accounts, value)
	case "is":
		if negated {
			return &domain.ParseError{Token: tok, Pos: pos, Reason: "is: cannot be negated"}
		}
		var unread bool
		switch strings.ToLower(value) {
		case "unread":
			unread = true
		case "read":
			unread = false
		default:
			return &domain.ParseError{Token: tok, Pos: pos, Reason: "unknown state " + value}
		}
		f.Unread = &unread
	default:
		return &domain.ParseError{Token: tok, Pos: pos, Reason: "unknown operator " + key}
	}
	return nil
}

// splitOperator splits "key:value" when key is a bare word. URLs are
// not operators.
func splitOperator(tok string) (key, value string, ok bool) {
	i := strings.IndexByte(tok, ':')
	if i <= 0 || strings.HasPrefix(tok[i+1:], "//") {
		return "", "", false
	}
	key = tok[:i]
	for _, r := range key {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", "", false
		}
	}
	return strings.ToLower(key), tok[i+1:], true
}
