package bridge

import (
	"strconv"
	"strings"
)

// sqlStatement is one complete statement cut from a SQL string, with the
// number of parameters it binds.
type sqlStatement struct {
	SQL    string
	Params int
}

// splitStatements cuts query into complete statements. A semicolon ends a
// statement unless it sits inside a string, a quoted identifier, a comment or
// the body of a CREATE TRIGGER, which only ends at "END;". Statements made of
// nothing but whitespace and comments are dropped.
func splitStatements(query string) []sqlStatement {
	var (
		statements []sqlStatement
		sc         stmtScanner
	)
	start := 0
	n := len(query)

	emit := func(end int) {
		if sc.hasToken {
			statements = append(statements, sqlStatement{
				SQL:    strings.TrimSpace(query[start:end]),
				Params: sc.maxParam,
			})
		}
		sc = stmtScanner{}
	}

	for i := 0; i < n; {
		ch := query[i]
		switch {
		case ch == '-' && i+1 < n && query[i+1] == '-':
			if j := strings.IndexByte(query[i:], '\n'); j >= 0 {
				i += j + 1
			} else {
				i = n
			}
		case ch == '/' && i+1 < n && query[i+1] == '*':
			if j := strings.Index(query[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = n
			}
		case ch == '\'' || ch == '"' || ch == '`':
			i = skipQuoted(query, i, ch)
			sc.token("")
		case ch == '[':
			if j := strings.IndexByte(query[i:], ']'); j >= 0 {
				i += j + 1
			} else {
				i = n
			}
			sc.token("")
		case ch == ';':
			i++
			if sc.inTrigger() && sc.lastWord != "END" {
				sc.token("")
				continue
			}
			emit(i)
			start = i
		case ch == '?':
			j := i + 1
			for j < n && isDigit(query[j]) {
				j++
			}
			if j == i+1 {
				sc.maxParam++
			} else if idx, err := strconv.Atoi(query[i+1 : j]); err == nil && idx > sc.maxParam {
				sc.maxParam = idx
			}
			sc.token("")
			i = j
		case (ch == ':' || ch == '@' || ch == '$') && i+1 < n && isIdentChar(query[i+1]):
			j := i + 1
			for j < n && isIdentChar(query[j]) {
				j++
			}
			sc.namedParam(query[i:j])
			sc.token("")
			i = j
		case isIdentChar(ch):
			j := i + 1
			for j < n && isIdentChar(query[j]) {
				j++
			}
			sc.token(strings.ToUpper(query[i:j]))
			i = j
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f':
			i++
		default:
			sc.token("")
			i++
		}
	}
	emit(n)
	return statements
}

type stmtScanner struct {
	hasToken bool
	words    []string // first three keywords, upper-cased
	lastWord string
	maxParam int
	names    map[string]bool
}

// token records one token; word is empty for anything but a bare word.
func (s *stmtScanner) token(word string) {
	s.hasToken = true
	s.lastWord = word
	if word != "" && len(s.words) < 3 {
		s.words = append(s.words, word)
	}
}

func (s *stmtScanner) namedParam(name string) {
	if s.names == nil {
		s.names = make(map[string]bool)
	}
	if !s.names[name] {
		s.names[name] = true
		s.maxParam++
	}
}

func (s *stmtScanner) inTrigger() bool {
	w := s.words
	if len(w) < 2 || w[0] != "CREATE" {
		return false
	}
	if w[1] == "TRIGGER" {
		return true
	}
	return len(w) > 2 && (w[1] == "TEMP" || w[1] == "TEMPORARY") && w[2] == "TRIGGER"
}

// skipQuoted returns the index just past the quoted run starting at i. A
// doubled quote character is an escaped quote.
func skipQuoted(query string, i int, quote byte) int {
	for j := i + 1; j < len(query); j++ {
		if query[j] != quote {
			continue
		}
		if j+1 < len(query) && query[j+1] == quote {
			j++
			continue
		}
		return j + 1
	}
	return len(query)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isIdentChar(ch byte) bool {
	return ch == '_' || isDigit(ch) || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || ch >= 0x80
}
