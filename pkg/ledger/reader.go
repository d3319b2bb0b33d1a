package ledger

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	accountPattern = regexp.MustCompile(`^[A-Z][A-Za-z0-9-]*(:[A-Z0-9][A-Za-z0-9-]*)+$`)
	metaKeyPattern = regexp.MustCompile(`^[a-z][A-Za-z0-9_-]*:$`)
)

// ParseError reports a malformed line.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// Load reads a ledger file and every file it includes. Include paths are
// resolved relative to the including file and may be globs.
func Load(path string) (*Ledger, error) {
	l := &Ledger{}
	if err := load(path, l, make(map[string]bool)); err != nil {
		return nil, err
	}
	return l, nil
}

func load(path string, l *Ledger, visited map[string]bool) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path %s: %w", path, err)
	}
	if visited[absPath] {
		return nil
	}
	visited[absPath] = true

	f, err := os.Open(absPath)
	if err != nil {
		return fmt.Errorf("failed to open ledger file: %w", err)
	}
	defer f.Close()

	parsed, includes, err := Parse(f, path)
	if err != nil {
		return err
	}
	l.Merge(parsed)

	for _, include := range includes {
		pattern := include
		if !filepath.IsAbs(pattern) {
			pattern = filepath.Join(filepath.Dir(absPath), pattern)
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("invalid include pattern %q: %w", include, err)
		}
		for _, match := range matches {
			if err := load(match, l, visited); err != nil {
				return err
			}
		}
	}

	return nil
}

// Parse reads Beancount directives from r. It keeps open directives and
// transactions with their metadata and source line numbers, and returns the
// include paths found. Other directives are skipped.
func Parse(r io.Reader, filename string) (*Ledger, []string, error) {
	p := &parser{file: filename, ledger: &Ledger{}}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		p.line++
		if err := p.parseLine(scanner.Text()); err != nil {
			return nil, nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", filename, err)
	}

	return p.ledger, p.includes, nil
}

type parser struct {
	file     string
	line     int
	ledger   *Ledger
	includes []string

	txn  *Transaction
	open *Open
}

func (p *parser) errorf(format string, args ...interface{}) error {
	return &ParseError{File: p.file, Line: p.line, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) reset() {
	p.txn = nil
	p.open = nil
}

func (p *parser) parseLine(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		p.reset()
		return nil
	}
	if strings.HasPrefix(trimmed, ";") || strings.HasPrefix(trimmed, "#") {
		return nil
	}

	tokens, err := tokenize(trimmed)
	if err != nil {
		return p.errorf("%v", err)
	}
	if len(tokens) == 0 {
		return nil
	}

	if raw[0] == ' ' || raw[0] == '\t' {
		return p.parseIndented(tokens)
	}

	p.reset()
	return p.parseDirective(tokens)
}

func (p *parser) parseDirective(tokens []token) error {
	first := tokens[0]
	if !first.quoted && first.text == "include" {
		if len(tokens) < 2 || !tokens[1].quoted {
			return p.errorf("include expects a quoted path")
		}
		p.includes = append(p.includes, tokens[1].text)
		return nil
	}

	if first.quoted || !datePattern.MatchString(first.text) {
		// option, plugin, pushtag and friends.
		return nil
	}
	if len(tokens) < 2 {
		return p.errorf("incomplete directive")
	}

	date := first.text
	keyword := tokens[1]

	switch {
	case !keyword.quoted && keyword.text == "open":
		return p.parseOpen(date, tokens[2:])
	case keyword.quoted || isFlag(keyword.text):
		return p.parseTransaction(date, tokens[1:])
	default:
		// close, balance, price, pad, note and other dated directives.
		return nil
	}
}

func (p *parser) parseOpen(date string, rest []token) error {
	if len(rest) == 0 || !accountPattern.MatchString(rest[0].text) {
		return p.errorf("open expects an account")
	}

	open := &Open{
		Date:    date,
		Account: rest[0].text,
		Meta:    Metadata{},
		File:    p.file,
		Line:    p.line,
	}

	if len(rest) > 1 && !rest[1].quoted {
		for _, currency := range strings.Split(rest[1].text, ",") {
			if currency = strings.TrimSpace(currency); currency != "" {
				open.Currencies = append(open.Currencies, currency)
			}
		}
	}

	p.ledger.Opens = append(p.ledger.Opens, open)
	p.open = open
	return nil
}

func (p *parser) parseTransaction(date string, rest []token) error {
	txn := &Transaction{
		Date: date,
		Flag: "*",
		Meta: Metadata{},
		File: p.file,
		Line: p.line,
	}

	if !rest[0].quoted {
		if rest[0].text != "txn" {
			txn.Flag = rest[0].text
		}
		rest = rest[1:]
	}

	var strs []string
	for _, tok := range rest {
		switch {
		case tok.quoted:
			strs = append(strs, tok.text)
		case strings.HasPrefix(tok.text, "#"):
			txn.Tags = append(txn.Tags, tok.text[1:])
		case strings.HasPrefix(tok.text, "^"):
			txn.Links = append(txn.Links, tok.text[1:])
		default:
			return p.errorf("unexpected token %q in transaction header", tok.text)
		}
	}

	switch len(strs) {
	case 0:
	case 1:
		txn.Narration = strs[0]
	case 2:
		txn.Payee = strs[0]
		txn.Narration = strs[1]
	default:
		return p.errorf("too many strings in transaction header")
	}

	p.ledger.Transactions = append(p.ledger.Transactions, txn)
	p.txn = txn
	return nil
}

func (p *parser) parseIndented(tokens []token) error {
	if metaKeyPattern.MatchString(tokens[0].text) && !tokens[0].quoted {
		key := strings.TrimSuffix(tokens[0].text, ":")
		value := ""
		if len(tokens) > 1 {
			value = tokens[1].text
		}
		p.addMeta(key, value)
		return nil
	}

	if p.txn == nil {
		// Indented lines under directives we skip.
		return nil
	}

	return p.parsePosting(tokens)
}

func (p *parser) addMeta(key, value string) {
	switch {
	case p.open != nil:
		p.open.Meta[key] = value
	case p.txn != nil:
		// Metadata following a posting belongs to that posting.
		n := len(p.txn.Postings)
		if n > 0 {
			posting := p.txn.Postings[n-1]
			if posting.Meta == nil {
				posting.Meta = Metadata{}
			}
			posting.Meta[key] = value
			return
		}
		p.txn.Meta[key] = value
	}
}

func (p *parser) parsePosting(tokens []token) error {
	posting := &Posting{Line: p.line}

	if !tokens[0].quoted && isFlag(tokens[0].text) {
		posting.Flag = tokens[0].text
		tokens = tokens[1:]
	}
	if len(tokens) == 0 || !accountPattern.MatchString(tokens[0].text) {
		return p.errorf("expected posting account")
	}
	posting.Account = tokens[0].text

	if len(tokens) >= 3 && !strings.HasPrefix(tokens[1].text, "{") && !strings.HasPrefix(tokens[1].text, "@") {
		// Arithmetic expressions such as (10.00 / 2) are not evaluated; the
		// posting is kept without an amount.
		if number, err := decimal.NewFromString(strings.ReplaceAll(tokens[1].text, ",", "")); err == nil {
			posting.Amount = NewAmount(number, tokens[2].text)
		}
	}

	p.txn.Postings = append(p.txn.Postings, posting)
	return nil
}

func isFlag(s string) bool {
	if s == "txn" {
		return true
	}
	if len(s) != 1 {
		return false
	}
	return strings.ContainsAny(s, "*!&#?%PSTCURM")
}

type token struct {
	text   string
	quoted bool
}

// tokenize splits a line on whitespace, keeping quoted strings whole and
// dropping a trailing ; comment.
func tokenize(line string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == ';':
			return tokens, nil
		case c == '"':
			var sb strings.Builder
			i++
			closed := false
			for i < len(line) {
				if line[i] == '\\' && i+1 < len(line) {
					sb.WriteByte(line[i+1])
					i += 2
					continue
				}
				if line[i] == '"' {
					closed = true
					i++
					break
				}
				sb.WriteByte(line[i])
				i++
			}
			if !closed {
				return nil, fmt.Errorf("unterminated string")
			}
			tokens = append(tokens, token{text: sb.String(), quoted: true})
		default:
			start := i
			for i < len(line) && line[i] != ' ' && line[i] != '\t' && line[i] != '"' {
				i++
			}
			tokens = append(tokens, token{text: line[start:i]})
		}
	}
	return tokens, nil
}
