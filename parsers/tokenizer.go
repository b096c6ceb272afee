package parsers

import (
	"regexp"
	"strings"

	"socanalyzer/core"
)

// Pre-compiled token pattern: a key=value token, a bare key= token, or a
// standalone word.
var tokenPattern = regexp.MustCompile(`\S+=\S+|\S+=|\S+`)

// Tokenize transforms a raw QRadar-style payload line into structured
// fields.
//   - Repeated keys accumulate into an ordered list; single keys stay scalar
//   - A key with no value yields nil
//   - Tokens without an equal sign land in "_unparsed"
//   - Multi-word values after = are folded back into the preceding key
//
// This is a greedy, non-backtracking single pass: anything containing an
// equal sign always starts a new key, even inside what a human would read
// as a multi-word value. Known limitation, kept deliberately.
func Tokenize(payload string) core.ParsedFields {
	tokens := tokenPattern.FindAllString(payload, -1)

	order := make([]string, 0, len(tokens))
	values := make(map[string][]interface{})
	unparsed := make([]string, 0)

	i := 0
	for i < len(tokens) {
		token := tokens[i]
		if strings.Contains(token, "=") {
			key, value, _ := strings.Cut(token, "=")
			// Empty value: the next token may be the value if it is not
			// itself a key
			if value == "" && i+1 < len(tokens) && !strings.Contains(tokens[i+1], "=") {
				value = tokens[i+1]
				i++
			}
			// Absorb multi-word continuations until the next key= boundary
			for i+1 < len(tokens) && !strings.Contains(tokens[i+1], "=") {
				value += " " + tokens[i+1]
				i++
			}
			key = strings.TrimSpace(key)
			if _, seen := values[key]; !seen {
				order = append(order, key)
			}
			if value == "" {
				values[key] = append(values[key], nil)
			} else {
				values[key] = append(values[key], strings.TrimSpace(value))
			}
		} else {
			unparsed = append(unparsed, token)
		}
		i++
	}

	// Unwrap single-occurrence keys to scalars, keep lists for repeats
	result := make(core.ParsedFields, len(order)+1)
	for _, key := range order {
		vals := values[key]
		if len(vals) == 1 {
			result[key] = vals[0]
			continue
		}
		list := make([]string, 0, len(vals))
		for _, v := range vals {
			if v == nil {
				list = append(list, "")
			} else {
				list = append(list, v.(string))
			}
		}
		result[key] = list
	}
	if len(unparsed) > 0 {
		result[core.UnparsedKey] = unparsed
	}
	return result
}
