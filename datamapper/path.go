/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

var errScalar = errors.New("cannot use a scalar value as a container")

// tagPattern finds anything a browser would start parsing as markup.
var tagPattern = regexp.MustCompile(`<[^\s<>=]`)

func hasTags(s string) bool {
	return len(s) > 2 && tagPattern.MatchString(s)
}

func child(target any, key string) (any, bool) {
	switch t := target.(type) {
	case map[string]any:
		v, ok := t[key]
		return v, ok
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(t) {
			return nil, false
		}
		return t[i], true
	}
	return nil, false
}

func assign(target any, key string, value any) (any, error) {
	switch t := target.(type) {
	case map[string]any:
		t[key] = value
		return t, nil
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i > len(t) {
			return nil, fmt.Errorf("invalid list index %q", key)
		}
		if i == len(t) {
			return append(t, value), nil
		}
		t[i] = value
		return t, nil
	}
	return nil, errScalar
}

func setPath(target any, path []string, value any, push bool) (any, error) {
	if len(path) == 0 {
		return nil, errors.New("empty path")
	}
	key := path[0]

	if len(path) == 1 {
		if push {
			current, _ := child(target, key)
			list, ok := current.([]any)
			if current != nil && !ok {
				return nil, errScalar
			}
			value = append(list, value)
		}
		return assign(target, key, value)
	}

	next, ok := child(target, key)
	if !ok || next == nil {
		next = map[string]any{}
	}
	next, err := setPath(next, path[1:], value, push)
	if err != nil {
		return nil, err
	}
	return assign(target, key, next)
}

func unsetPath(target any, path []string) any {
	if len(path) == 0 {
		return target
	}
	key := path[0]

	if len(path) > 1 {
		next, ok := child(target, key)
		if !ok {
			return target
		}
		switch next.(type) {
		case map[string]any, []any:
		default:
			return target
		}
		updated, _ := assign(target, key, unsetPath(next, path[1:]))
		return updated
	}

	switch t := target.(type) {
	case map[string]any:
		delete(t, key)
	case []any:
		i, err := strconv.Atoi(key)
		if err != nil || i < 0 || i >= len(t) {
			return t
		}
		return append(t[:i], t[i+1:]...)
	}
	return target
}

func getPath(target any, path []string) (any, bool) {
	for _, key := range path {
		next, ok := child(target, key)
		if !ok || next == nil {
			return nil, false
		}
		target = next
	}
	return target, true
}
