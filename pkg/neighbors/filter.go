package neighbors

import (
	"regexp"

	"github.com/sirupsen/logrus"

	"github.com/PackeTsar/autoshell/pkg/expr"
)

// Atom is one attribute:regex test.
type Atom struct {
	Attribute string
	Regex     *regexp.Regexp
}

// FilterSet is a conjunction of Atoms (AND).
type FilterSet []Atom

// Filter is a disjunction of FilterSets (OR). An empty Filter accepts
// every Record.
type Filter []FilterSet

// BuildFilters parses filter tokens into a Filter, dropping (with a
// warning) any filter referencing an attribute outside the ten allowed
// ones or carrying a regex that fails to compile.
func BuildFilters(tokens []string, log *logrus.Logger) Filter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(tokens) == 0 {
		return nil
	}

	exprs := expr.Parse(tokens, expr.DefaultFilterDelimiters(), log)
	var filter Filter
	for _, e := range exprs {
		switch e.Kind {
		case expr.KindString:
			if fs, ok := filterSetFromEntries(e.Entries, log); ok {
				filter = append(filter, fs)
			}
		case expr.KindFile:
			sets, ok := filterSetsFromFile(e.File, log)
			if ok {
				filter = append(filter, sets...)
			}
		}
	}
	return filter
}

// filterSetFromEntries builds one FilterSet (a conjunction) from a
// string expression's entries, each entry being [attribute, regex].
func filterSetFromEntries(entries [][]string, log *logrus.Logger) (FilterSet, bool) {
	var fs FilterSet
	for _, entry := range entries {
		if len(entry) < 2 {
			log.Debugf("neighbors: filter entry %v has no regex, dropping whole filter", entry)
			return nil, false
		}
		atom, ok := newAtom(entry[0], entry[1], log)
		if !ok {
			return nil, false
		}
		fs = append(fs, atom)
	}
	if len(fs) == 0 {
		return nil, false
	}
	return fs, true
}

func filterSetsFromFile(decoded interface{}, log *logrus.Logger) ([]FilterSet, bool) {
	switch v := decoded.(type) {
	case map[string]interface{}:
		fs, ok := filterSetFromMap(v, log)
		if !ok {
			return nil, false
		}
		return []FilterSet{fs}, true
	case []interface{}:
		var sets []FilterSet
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, false
			}
			fs, ok := filterSetFromMap(m, log)
			if !ok {
				return nil, false
			}
			sets = append(sets, fs)
		}
		return sets, true
	default:
		return nil, false
	}
}

func filterSetFromMap(m map[string]interface{}, log *logrus.Logger) (FilterSet, bool) {
	attr, _ := m["attribute"].(string)
	regex, _ := m["regex"].(string)
	if attr == "" || regex == "" {
		log.Warnf("neighbors: filter mapping missing attribute/regex keys, dropping")
		return nil, false
	}
	atom, ok := newAtom(attr, regex, log)
	if !ok {
		return nil, false
	}
	return FilterSet{atom}, true
}

func newAtom(attribute, regex string, log *logrus.Logger) (Atom, bool) {
	if !isAllowed(attribute) {
		log.Warnf("neighbors: illegal filter attribute %q, allowed attributes are %v", attribute, AllowedAttributes())
		return Atom{}, false
	}
	re, err := regexp.Compile(regex)
	if err != nil {
		log.Debugf("neighbors: malformed regex %q, dropping filter: %v", regex, err)
		return Atom{}, false
	}
	return Atom{Attribute: attribute, Regex: re}, true
}

// Match reports whether rec passes filter: an OR across FilterSets, each
// an AND across its Atoms. Within an atom, a match against any value in
// the attribute's list is sufficient. An empty filter accepts everything.
func Match(rec Record, filter Filter) bool {
	if len(filter) == 0 {
		return true
	}
	for _, fs := range filter {
		if matchSet(rec, fs) {
			return true
		}
	}
	return false
}

func matchSet(rec Record, fs FilterSet) bool {
	for _, atom := range fs {
		if !matchAtom(rec, atom) {
			return false
		}
	}
	return true
}

func matchAtom(rec Record, atom Atom) bool {
	for _, v := range rec.Get(atom.Attribute) {
		if atom.Regex.MatchString(v) {
			return true
		}
	}
	return false
}
