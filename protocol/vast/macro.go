// Copyright (C) 2025, ADXYZ Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package vast

import (
	"net/url"
	"regexp"
	"strconv"

	"github.com/luxfi/adxgateway/session"
)

// macroToken matches a bracketed macro name such as [CACHEBUSTING].
var macroToken = regexp.MustCompile(`\[([A-Z0-9_]+)\]`)

// MacroContext supplies the additional caller-provided values
// (CONTENTPLAYHEAD, ASSETURI, ERRORCODE, ...) consulted alongside the
// SessionContext-derived built-ins.
type MacroContext map[string]string

// Substitute replaces every recognized [NAME] token in s with its
// resolved value, URL-escaping the substituted value so it cannot
// introduce new query-string delimiters. Unknown macros are left
// intact. A string with no recognized tokens is returned unchanged
// (idempotent).
func Substitute(s string, sc session.Context, extra MacroContext) string {
	return macroToken.ReplaceAllStringFunc(s, func(token string) string {
		name := token[1 : len(token)-1]

		if v, ok := builtinMacro(name, sc); ok {
			return url.QueryEscape(v)
		}
		if v, ok := extra[name]; ok {
			return url.QueryEscape(v)
		}
		return token
	})
}

func builtinMacro(name string, sc session.Context) (string, bool) {
	switch name {
	case "TIMESTAMP":
		return strconv.FormatInt(sc.TimestampMs, 10), true
	case "CACHEBUSTING":
		return sc.Cachebusting, true
	case "CORRELATOR":
		return sc.Correlator, true
	default:
		return "", false
	}
}

// ErrorCode substitutes the [ERRORCODE] macro only, for firing error
// pixels where the code is determined by the resolver's failure mode
// rather than by SessionContext (303 no-response, 301 wrapper-depth,
// 900 other).
func ErrorCode(urlStr string, code int) string {
	return macroToken.ReplaceAllStringFunc(urlStr, func(token string) string {
		if token == "[ERRORCODE]" {
			return strconv.Itoa(code)
		}
		return token
	})
}
