/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package valuetype

import (
	"fmt"
	"sort"
	"strings"

	errs "github.com/suparena/entitymapper/errors"
)

// PgArray is a list stored as a PostgreSQL array literal, e.g. {a,"b c",NULL}.
type PgArray struct{ Complex }

func (PgArray) Normalize(value any, _ Attribute) (any, error) {
	if s, ok := value.(string); ok {
		return parsePgArray(s)
	}
	v, err := toContainer(value)
	if err != nil {
		return nil, err
	}
	if _, ok := v.([]any); !ok {
		return nil, errs.NewValidationError("", fmt.Sprintf("pg_array expects a list, got %T", value))
	}
	return v, nil
}

func (p PgArray) Store(value any, attr Attribute) (any, error) {
	value = trimValue(value, attr)
	if p.IsNull(value) {
		return nil, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, errs.NewValidationError("", fmt.Sprintf("pg_array expects a list, got %T", value))
	}
	return encodePgArray(list), nil
}

func (p PgArray) Restore(value any, attr Attribute) (any, error) {
	if p.IsNull(value) {
		return []any{}, nil
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	return p.Normalize(value, attr)
}

func (PgArray) DefaultValue(attr Attribute) any {
	if attr.Default != nil {
		return DeepCopy(attr.Default)
	}
	return []any{}
}

func encodePgArray(list []any) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, elem := range list {
		if i > 0 {
			b.WriteByte(',')
		}
		switch v := elem.(type) {
		case nil:
			b.WriteString("NULL")
		case []any:
			b.WriteString(encodePgArray(v))
		case string:
			b.WriteString(quotePgArrayElement(v))
		default:
			b.WriteString(quotePgArrayElement(fmt.Sprint(v)))
		}
	}
	b.WriteByte('}')
	return b.String()
}

func quotePgArrayElement(s string) string {
	if s != "" && !strings.EqualFold(s, "NULL") && !strings.ContainsAny(s, "{},\"\\ \t\n") {
		return s
	}
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func parsePgArray(s string) (any, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return []any{}, nil
	}
	p := &pgArrayParser{input: s}
	list, err := p.parseArray()
	if err != nil {
		return nil, err
	}
	if p.pos != len(p.input) {
		return nil, errs.NewValidationError("", fmt.Sprintf("invalid pg array literal %q", s))
	}
	return list, nil
}

type pgArrayParser struct {
	input string
	pos   int
}

func (p *pgArrayParser) fail() error {
	return errs.NewValidationError("", fmt.Sprintf("invalid pg array literal %q at offset %d", p.input, p.pos))
}

func (p *pgArrayParser) parseArray() ([]any, error) {
	if p.pos >= len(p.input) || p.input[p.pos] != '{' {
		return nil, p.fail()
	}
	p.pos++
	list := []any{}
	if p.pos < len(p.input) && p.input[p.pos] == '}' {
		p.pos++
		return list, nil
	}
	for {
		if p.pos >= len(p.input) {
			return nil, p.fail()
		}
		switch p.input[p.pos] {
		case '{':
			nested, err := p.parseArray()
			if err != nil {
				return nil, err
			}
			list = append(list, nested)
		case '"':
			s, err := p.parseQuoted()
			if err != nil {
				return nil, err
			}
			list = append(list, s)
		default:
			start := p.pos
			for p.pos < len(p.input) && p.input[p.pos] != ',' && p.input[p.pos] != '}' {
				p.pos++
			}
			word := strings.TrimSpace(p.input[start:p.pos])
			if strings.EqualFold(word, "NULL") {
				list = append(list, nil)
			} else {
				list = append(list, word)
			}
		}
		if p.pos >= len(p.input) {
			return nil, p.fail()
		}
		switch p.input[p.pos] {
		case ',':
			p.pos++
		case '}':
			p.pos++
			return list, nil
		default:
			return nil, p.fail()
		}
	}
}

func (p *pgArrayParser) parseQuoted() (string, error) {
	p.pos++
	var b strings.Builder
	for p.pos < len(p.input) {
		c := p.input[p.pos]
		switch c {
		case '\\':
			p.pos++
			if p.pos >= len(p.input) {
				return "", p.fail()
			}
			b.WriteByte(p.input[p.pos])
		case '"':
			p.pos++
			return b.String(), nil
		default:
			b.WriteByte(c)
		}
		p.pos++
	}
	return "", p.fail()
}

// PgHstore is a flat string map stored as an hstore literal,
// e.g. "a"=>"1", "b"=>NULL.
type PgHstore struct{ Complex }

func (PgHstore) Normalize(value any, _ Attribute) (any, error) {
	if s, ok := value.(string); ok {
		return parseHstore(s)
	}
	v, err := toContainer(value)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(map[string]any); !ok {
		return nil, errs.NewValidationError("", fmt.Sprintf("pg_hstore expects a map, got %T", value))
	}
	return v, nil
}

func (h PgHstore) Store(value any, attr Attribute) (any, error) {
	value = trimValue(value, attr)
	if h.IsNull(value) {
		return nil, nil
	}
	m, ok := value.(map[string]any)
	if !ok {
		return nil, errs.NewValidationError("", fmt.Sprintf("pg_hstore expects a map, got %T", value))
	}
	return encodeHstore(m), nil
}

func (h PgHstore) Restore(value any, attr Attribute) (any, error) {
	if h.IsNull(value) {
		return map[string]any{}, nil
	}
	if b, ok := value.([]byte); ok {
		value = string(b)
	}
	return h.Normalize(value, attr)
}

func encodeHstore(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if v == nil {
			pairs = append(pairs, fmt.Sprintf(`"%s"=>NULL`, r.Replace(k)))
			continue
		}
		pairs = append(pairs, fmt.Sprintf(`"%s"=>"%s"`, r.Replace(k), r.Replace(fmt.Sprint(v))))
	}
	return strings.Join(pairs, ", ")
}

func parseHstore(s string) (any, error) {
	out := map[string]any{}
	p := &pgArrayParser{input: strings.TrimSpace(s)}

	for p.pos < len(p.input) {
		key, _, err := p.hstoreToken()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if !strings.HasPrefix(p.input[p.pos:], "=>") {
			return nil, p.fail()
		}
		p.pos += 2
		p.skipSpace()
		value, quoted, err := p.hstoreToken()
		if err != nil {
			return nil, err
		}
		if !quoted && strings.EqualFold(value, "NULL") {
			out[key] = nil
		} else {
			out[key] = value
		}
		p.skipSpace()
		if p.pos < len(p.input) {
			if p.input[p.pos] != ',' {
				return nil, p.fail()
			}
			p.pos++
			p.skipSpace()
		}
	}
	return out, nil
}

func (p *pgArrayParser) skipSpace() {
	for p.pos < len(p.input) && strings.ContainsRune(" \t\n\r", rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *pgArrayParser) hstoreToken() (string, bool, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return "", false, p.fail()
	}
	if p.input[p.pos] == '"' {
		s, err := p.parseQuoted()
		return s, true, err
	}
	start := p.pos
	for p.pos < len(p.input) && !strings.ContainsRune(" ,=", rune(p.input[p.pos])) {
		p.pos++
	}
	if start == p.pos {
		return "", false, p.fail()
	}
	return p.input[start:p.pos], false, nil
}
