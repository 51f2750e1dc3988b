package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// normalizeJSONC blanks comments and trailing commas so the result decodes as plain JSON.
// Byte offsets are preserved, so decode errors point at the original line and column.
func normalizeJSONC(content string) (string, error) {
	out := []byte(content)
	pendingComma := -1

	for i := 0; i < len(out); i++ {
		ch := out[i]
		next := byte(0)
		if i+1 < len(out) {
			next = out[i+1]
		}

		switch {
		case ch == '"':
			i = stringEnd(out, i)
			pendingComma = -1
		case ch == '/' && next == '/':
			end := strings.IndexAny(content[i:], "\r\n")
			if end < 0 {
				end = len(out) - i
			}
			blank(out, i, i+end)
			i += end - 1
		case ch == '/' && next == '*':
			end := strings.Index(content[i+2:], "*/")
			if end < 0 {
				return "", errors.New("unterminated block comment in JSONC")
			}
			blank(out, i, i+2+end+2)
			i += 2 + end + 1
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
		case ch == ',':
			pendingComma = i
		case ch == '}' || ch == ']':
			if pendingComma >= 0 {
				out[pendingComma] = ' '
			}
			pendingComma = -1
		default:
			pendingComma = -1
		}
	}
	return string(out), nil
}

// stringEnd returns the index of the quote closing the string opened at start.
func stringEnd(b []byte, start int) int {
	for j := start + 1; j < len(b); j++ {
		switch b[j] {
		case '\\':
			j++
		case '"':
			return j
		}
	}
	return len(b) - 1
}

// blank overwrites b[from:to] with spaces, keeping line breaks.
func blank(b []byte, from int, to int) {
	for k := from; k < to && k < len(b); k++ {
		if b[k] != '\n' && b[k] != '\r' {
			b[k] = ' '
		}
	}
}

// expectEOF fails when the decoder holds anything after the first value.
func expectEOF(decoder *json.Decoder) error {
	var extra json.RawMessage
	err := decoder.Decode(&extra)
	switch {
	case errors.Is(err, io.EOF):
		return nil
	case err == nil:
		return errors.New("multiple JSON values are not allowed")
	default:
		return err
	}
}

// locateDecodeError prefixes syntax and type errors with their line and column.
func locateDecodeError(content string, err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
		offset    int64
	)
	switch {
	case errors.As(err, &syntaxErr):
		offset = syntaxErr.Offset
	case errors.As(err, &typeErr):
		offset = typeErr.Offset
	default:
		return err
	}
	line, col := lineCol(content, offset)
	return fmt.Errorf("line %d column %d: %w", line, col, err)
}

// lineCol converts a decoder offset into a 1-based line and column.
func lineCol(content string, offset int64) (int, int) {
	n := max(min(int(offset), len(content))-1, 0)
	prefix := content[:n]
	return strings.Count(prefix, "\n") + 1, n - strings.LastIndexByte(prefix, '\n')
}
