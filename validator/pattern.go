/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package validator

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	patternMu    sync.RWMutex
	patternCache = make(map[string]*regexp.Regexp)
)

// CompilePattern compiles a regular expression that may be written with
// delimiters and trailing flags, e.g. "/^[a-z]+$/i". Patterns without
// delimiters are compiled as-is. Compiled patterns are cached.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	patternMu.RLock()
	re, ok := patternCache[pattern]
	patternMu.RUnlock()
	if ok {
		return re, nil
	}

	expr, err := stripDelimiters(pattern)
	if err != nil {
		return nil, err
	}
	re, err = regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", pattern, err)
	}

	patternMu.Lock()
	patternCache[pattern] = re
	patternMu.Unlock()
	return re, nil
}

func stripDelimiters(pattern string) (string, error) {
	if len(pattern) < 2 {
		return pattern, nil
	}
	delim := pattern[0]
	if !strings.ContainsRune("/#~%!@|", rune(delim)) {
		return pattern, nil
	}
	end := strings.LastIndexByte(pattern, delim)
	if end <= 0 {
		return pattern, nil
	}

	expr := pattern[1:end]
	var flags strings.Builder
	for _, f := range pattern[end+1:] {
		switch f {
		case 'i', 'm', 's':
			flags.WriteRune(f)
		case 'u', 'D':
			// utf-8 and dollar-end-only are the defaults in Go
		default:
			return "", fmt.Errorf("unsupported pattern flag %q in %q", f, pattern)
		}
	}
	if flags.Len() > 0 {
		expr = "(?" + flags.String() + ")" + expr
	}
	return expr, nil
}
