package router

import (
	"strings"

	"github.com/google/uuid"
)

func newReqID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// tokenizeCommandLine splits command text into tokens while supporting quotes.
//
//	/habit add action="read a book" place=sofa
func tokenizeCommandLine(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var (
		out   []string
		buf   strings.Builder
		inQ   bool
		qChar rune
		esc   bool
		had   bool // current token saw a quote, so "" is a real empty value
	)
	flush := func() {
		if buf.Len() > 0 || had {
			out = append(out, buf.String())
			buf.Reset()
		}
		had = false
	}
	for _, ch := range s {
		switch {
		case esc:
			buf.WriteRune(ch)
			esc = false
		case ch == '\\':
			esc = true
		case inQ:
			if ch == qChar {
				inQ = false
				continue
			}
			buf.WriteRune(ch)
		case ch == '"' || ch == '\'' || ch == '«' || ch == '“':
			inQ, had = true, true
			qChar = closingQuote(ch)
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			flush()
		default:
			buf.WriteRune(ch)
		}
	}
	flush()
	return out
}

func closingQuote(open rune) rune {
	switch open {
	case '«':
		return '»'
	case '“':
		return '”'
	}
	return open
}

// SplitKV separates key=value tokens from positional ones. Keys are
// lower-cased; a repeated key keeps the last value.
func SplitKV(args []string) (kv map[string]string, pos []string) {
	kv = map[string]string{}
	for _, a := range args {
		k, v, ok := strings.Cut(a, "=")
		if !ok || strings.TrimSpace(k) == "" {
			pos = append(pos, a)
			continue
		}
		kv[strings.ToLower(strings.TrimSpace(k))] = v
	}
	return kv, pos
}
