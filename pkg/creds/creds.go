// Package creds implements the Credential Store: parsing user-supplied
// credential tokens (literal strings or files) into an ordered list of
// Credential records.
package creds

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/PackeTsar/autoshell/pkg/expr"
)

// Credential is immutable once parsed. The Connector reorders credentials
// per-host; the Store itself preserves insertion order.
type Credential struct {
	Username       string
	Password       string
	Secret         string
	DeviceTypeHint string // "" means no hint
}

// Store holds the ordered credential list produced at startup.
type Store struct {
	Credentials []Credential
}

// Parse turns tokens into an ordered []Credential, using expr.Parse under
// the hood. Malformed tokens are warned about and dropped, matching
// spec.md §7's input-parse error handling — Parse itself never fails.
func Parse(tokens []string, log *logrus.Logger) []Credential {
	if log == nil {
		log = logrus.StandardLogger()
	}
	exprs := expr.Parse(tokens, expr.DefaultHostDelimiters(), log)

	var out []Credential
	for _, e := range exprs {
		switch e.Kind {
		case expr.KindString:
			c, err := fromEntries(e.Entries)
			if err != nil {
				log.Warnf("creds: skipping %q: %v", e.Source, err)
				continue
			}
			out = append(out, c)
		case expr.KindFile:
			recs, err := fromFile(e.File)
			if err != nil {
				log.Warnf("creds: skipping file %q: %v", e.Source, err)
				continue
			}
			out = append(out, recs...)
		}
	}
	return out
}

// fromEntries applies the positional rule: the first entry's field count
// determines username/password/secret; the second entry's first field (if
// present) is the device-type hint.
func fromEntries(entries [][]string) (Credential, error) {
	if len(entries) == 0 || len(entries[0]) == 0 || entries[0][0] == "" {
		return Credential{}, fmt.Errorf("empty credential expression")
	}

	fields := entries[0]
	var c Credential
	switch len(fields) {
	case 1:
		c.Username = fields[0]
		c.Password = fields[0]
		c.Secret = fields[0]
	case 2:
		c.Username = fields[0]
		c.Password = fields[1]
		c.Secret = fields[1]
	default: // 3 or more
		c.Username = fields[0]
		c.Password = fields[1]
		c.Secret = fields[2]
	}

	if len(entries) > 1 && len(entries[1]) > 0 {
		c.DeviceTypeHint = entries[1][0]
	}
	return c, nil
}

// fromFile accepts either a single mapping or a list of mappings.
func fromFile(decoded interface{}) ([]Credential, error) {
	switch v := decoded.(type) {
	case map[string]interface{}:
		c, err := fromMap(v)
		if err != nil {
			return nil, err
		}
		return []Credential{c}, nil
	case []interface{}:
		var out []Credential
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("credential file list entry is not a mapping")
			}
			c, err := fromMap(m)
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("credential file must decode to a mapping or list of mappings")
	}
}

func fromMap(m map[string]interface{}) (Credential, error) {
	username, ok := stringField(m, "username")
	if !ok || username == "" {
		return Credential{}, fmt.Errorf("credential record missing mandatory %q field", "username")
	}

	c := Credential{Username: username}
	if password, ok := stringField(m, "password"); ok {
		c.Password = password
	} else {
		c.Password = username
	}
	if secret, ok := stringField(m, "secret"); ok {
		c.Secret = secret
	} else {
		c.Secret = c.Password
	}
	if typ, ok := stringField(m, "type"); ok {
		c.DeviceTypeHint = typ
	}
	return c, nil
}

func stringField(m map[string]interface{}, key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
