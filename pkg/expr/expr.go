// Package expr implements the expression parser: it normalizes
// heterogeneous user tokens (an existing file path, or a delimited
// string) into tagged records that the credential store, host registry,
// and neighbor filter engine each interpret further.
package expr

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Kind tags what an Expression's payload came from.
type Kind string

const (
	KindFile   Kind = "file"
	KindString Kind = "string"
)

// Expression is one parsed token.
type Expression struct {
	Kind Kind

	// File holds the decoded document when Kind == KindFile.
	File interface{}

	// Entries holds the entry-delimiter-then-value-delimiter split when
	// Kind == KindString: one slice of fields per entry.
	Entries [][]string

	Source string // the original token, for diagnostics
}

// Delimiters configures a Parse call. Value and Entry are single bytes;
// Override is the two-character sentinel that must follow the
// caller-chosen override pair for the leading-cue syntax to activate.
type Delimiters struct {
	Value    byte
	Entry    byte
	Override string
}

// DefaultHostDelimiters matches §6's host-token surface: ':' value, '@' entry.
func DefaultHostDelimiters() Delimiters {
	return Delimiters{Value: ':', Entry: '@', Override: "--"}
}

// DefaultFilterDelimiters matches the crawl module's filter-token surface:
// ':' value, '%' entry.
func DefaultFilterDelimiters() Delimiters {
	return Delimiters{Value: ':', Entry: '%', Override: "--"}
}

// Parse scans tokens in order, producing one Expression per token that
// parses successfully. A token that names an existing regular file is
// decoded as YAML, falling back to JSON; a token that fails to decode
// either way is skipped with a warning logged to log (nil is tolerated,
// defaulting to logrus.StandardLogger()).
func Parse(tokens []string, delims Delimiters, log *logrus.Logger) []*Expression {
	if log == nil {
		log = logrus.StandardLogger()
	}
	var out []*Expression
	for _, tok := range tokens {
		if e := parseOne(tok, delims, log); e != nil {
			out = append(out, e)
		}
	}
	return out
}

func parseOne(tok string, delims Delimiters, log *logrus.Logger) *Expression {
	if info, err := os.Stat(tok); err == nil && info.Mode().IsRegular() {
		return parseFile(tok, log)
	}
	return parseString(tok, delims)
}

func parseFile(path string, log *logrus.Logger) *Expression {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("expr: failed to read %q: %v", path, err)
		return nil
	}

	var decoded interface{}
	if err := yaml.Unmarshal(data, &decoded); err == nil {
		return &Expression{Kind: KindFile, File: decoded, Source: path}
	}

	if err := json.Unmarshal(data, &decoded); err == nil {
		return &Expression{Kind: KindFile, File: decoded, Source: path}
	}

	log.Warnf("expr: %q is neither valid YAML nor valid JSON, skipping", path)
	return nil
}

// parseString applies the override-cue check, then splits on entry and
// value delimiters.
func parseString(tok string, delims Delimiters) *Expression {
	valueDelim, entryDelim, payload := resolveCue(tok, delims)

	var entries [][]string
	for _, entry := range strings.Split(payload, string(entryDelim)) {
		entries = append(entries, strings.Split(entry, string(valueDelim)))
	}

	return &Expression{Kind: KindString, Entries: entries, Source: tok}
}

// resolveCue recognizes the leading "VE--REST" override: the token must be
// strictly longer than the four-character prefix and bytes [2:4] must
// equal delims.Override. On a match it returns the overridden delimiters
// and the remaining payload; otherwise it returns the caller's defaults
// and the token unchanged.
func resolveCue(tok string, delims Delimiters) (value, entry byte, payload string) {
	sentinel := delims.Override
	if sentinel == "" {
		sentinel = "--"
	}
	if len(tok) > 4 && tok[2:4] == sentinel {
		return tok[0], tok[1], tok[4:]
	}
	return delims.Value, delims.Entry, tok
}

// Serialize is the inverse of Parse's string branch, used by the
// expression round-trip property: join each entry's fields on the value
// delimiter, then join entries on the entry delimiter.
func Serialize(entries [][]string, delims Delimiters) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = strings.Join(e, string(delims.Value))
	}
	return strings.Join(parts, string(delims.Entry))
}
