package client

import (
	"encoding/json"

	"github.com/pkg/errors"
)

var ErrNoJSON = errors.New("no JSON value found in text")

// ExtractJSON returns the first balanced JSON object or array embedded in
// free text. Generative providers are asked to reply with bare JSON but
// routinely wrap it in markdown fences or prose, so every provider-backed
// handler goes through here instead of parsing the reply directly.
func ExtractJSON(text string) (json.RawMessage, error) {
	for start := 0; start < len(text); start++ {
		open := text[start]
		if open != '{' && open != '[' {
			continue
		}

		var close byte = '}'
		if open == '[' {
			close = ']'
		}

		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case open:
				depth++
			case close:
				depth--
				if depth == 0 {
					candidate := []byte(text[start : i+1])
					if json.Valid(candidate) {
						return candidate, nil
					}
					// Balanced but invalid, keep scanning past it.
					i = len(text)
				}
			}
		}
	}
	return nil, ErrNoJSON
}
