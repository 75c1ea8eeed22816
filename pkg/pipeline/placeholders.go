package pipeline

import (
	"fmt"
	"strings"
)

// countPlaceholders returns the number of parameters the SQL text expects.
// For PlaceholderDollar that is the highest ordinal used, for PlaceholderQuestion
// the number of markers. String literals, quoted identifiers, dollar-quoted
// bodies and comments are skipped, as is a $N that continues an identifier.
func countPlaceholders(sql string, style PlaceholderStyle) (int, error) {
	maxOrdinal, questions := 0, 0

	for i := 0; i < len(sql); {
		end, err := skipNonCode(sql, i)
		if err != nil {
			return 0, err
		}
		if end != i {
			i = end
			continue
		}

		switch c := sql[i]; {
		case c == '$' && i+1 < len(sql) && isDigit(sql[i+1]):
			j := i + 1
			n := 0
			for j < len(sql) && isDigit(sql[j]) {
				n = n*10 + int(sql[j]-'0')
				j++
			}
			if !continuesIdent(sql, i) {
				if n == 0 {
					return 0, fmt.Errorf("invalid placeholder $0 at offset %d", i)
				}
				maxOrdinal = max(maxOrdinal, n)
			}
			i = j

		case c == '?':
			questions++
			i++

		default:
			i++
		}
	}
	return finish(style, maxOrdinal, questions)
}

// HasKeyword reports whether keyword appears as a whole word in the executable
// part of sql, ignoring case. Literals, quoted identifiers and comments do not
// count.
func HasKeyword(sql, keyword string) bool {
	for i := 0; i < len(sql); {
		end, err := skipNonCode(sql, i)
		if err != nil {
			return false
		}
		if end != i {
			i = end
			continue
		}
		if !isIdentChar(sql[i]) {
			i++
			continue
		}
		j := i
		for j < len(sql) && isIdentChar(sql[j]) {
			j++
		}
		if !continuesIdent(sql, i) && strings.EqualFold(sql[i:j], keyword) {
			return true
		}
		i = j
	}
	return false
}

// skipNonCode returns the offset just past the literal, quoted identifier,
// dollar-quoted body or comment starting at i, or i itself when none starts there.
func skipNonCode(sql string, i int) (int, error) {
	switch c := sql[i]; {
	case c == '\'' || c == '"':
		end := skipQuoted(sql, i, c, c == '\'' && escapePrefixed(sql, i))
		if end < 0 {
			return 0, fmt.Errorf("unterminated quote starting at offset %d", i)
		}
		return end, nil

	case c == '-' && i+1 < len(sql) && sql[i+1] == '-':
		nl := strings.IndexByte(sql[i:], '\n')
		if nl < 0 {
			return len(sql), nil
		}
		return i + nl + 1, nil

	case c == '/' && i+1 < len(sql) && sql[i+1] == '*':
		end := strings.Index(sql[i+2:], "*/")
		if end < 0 {
			return 0, fmt.Errorf("unterminated comment starting at offset %d", i)
		}
		return i + end + 4, nil

	case c == '$' && !continuesIdent(sql, i):
		tag, ok := dollarTag(sql, i)
		if !ok {
			return i, nil
		}
		end := strings.Index(sql[i+len(tag):], tag)
		if end < 0 {
			return 0, fmt.Errorf("unterminated dollar-quoted string starting at offset %d", i)
		}
		return i + len(tag) + end + len(tag), nil
	}
	return i, nil
}

func finish(style PlaceholderStyle, maxOrdinal, questions int) (int, error) {
	switch style {
	case PlaceholderQuestion:
		return questions, nil
	case PlaceholderDollar, "":
		return maxOrdinal, nil
	default:
		return 0, fmt.Errorf("unknown placeholder style %q", style)
	}
}

// skipQuoted returns the offset just past the quoted run starting at i, treating
// a doubled quote character as an escape, and a backslash too when backslash is
// set. It returns -1 if the run is unterminated.
func skipQuoted(sql string, i int, quote byte, backslash bool) int {
	for j := i + 1; j < len(sql); j++ {
		if backslash && sql[j] == '\\' {
			j++
			continue
		}
		if sql[j] != quote {
			continue
		}
		if j+1 < len(sql) && sql[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return -1
}

// escapePrefixed reports whether the quote at i opens an E'...' escape string
func escapePrefixed(sql string, i int) bool {
	if i == 0 || (sql[i-1] != 'E' && sql[i-1] != 'e') {
		return false
	}
	return !continuesIdent(sql, i-1)
}

// continuesIdent reports whether the byte before i belongs to an identifier
func continuesIdent(sql string, i int) bool {
	return i > 0 && isIdentChar(sql[i-1])
}

// dollarTag reports whether a dollar-quote opener such as $$ or $body$ starts at i
func dollarTag(sql string, i int) (string, bool) {
	for j := i + 1; j < len(sql); j++ {
		c := sql[j]
		if c == '$' {
			return sql[i : j+1], true
		}
		if !(c == '_' || isLetter(c) || (j > i+1 && isDigit(c))) {
			return "", false
		}
	}
	return "", false
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }

func isIdentChar(c byte) bool {
	return c == '_' || c == '$' || isLetter(c) || isDigit(c) || c >= 0x80
}
