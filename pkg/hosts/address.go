package hosts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/PackeTsar/autoshell/pkg/expr"
)

// AddressRecord is the unit the Host Registry deduplicates on: the
// address (or list of alternates), port, and device type exactly as
// presented by the caller or by a neighbor-discovery injection.
type AddressRecord struct {
	Addresses  []string
	Port       int // 0 = unset
	DeviceType string
}

// Key returns the canonical dedup key: the literal address-record tuple,
// preserving address order (dedup is on the record as presented, not a
// sorted or connected-address form).
func (r AddressRecord) Key() string {
	return strings.Join(r.Addresses, "\x00") + "\x01" + strconv.Itoa(r.Port) + "\x01" + r.DeviceType
}

// ParseAddressRecords converts one parsed expression into zero or more
// AddressRecords. A string expression's first entry is the list of
// alternate addresses; the second entry's first field (if present) is the
// device type. A file expression decodes a single mapping or list of
// mappings, each with an "address" (string or list), optional "port", and
// optional "device_type".
func ParseAddressRecords(e *expr.Expression) ([]AddressRecord, error) {
	switch e.Kind {
	case expr.KindString:
		rec, err := addressFromEntries(e.Entries)
		if err != nil {
			return nil, err
		}
		return []AddressRecord{rec}, nil
	case expr.KindFile:
		return addressesFromFile(e.File)
	default:
		return nil, fmt.Errorf("hosts: unknown expression kind %q", e.Kind)
	}
}

func addressFromEntries(entries [][]string) (AddressRecord, error) {
	if len(entries) == 0 || len(entries[0]) == 0 {
		return AddressRecord{}, fmt.Errorf("empty address expression")
	}
	rec := AddressRecord{Addresses: entries[0]}
	if len(entries) > 1 && len(entries[1]) > 0 {
		rec.DeviceType = entries[1][0]
	}
	if len(entries) > 2 && len(entries[2]) > 0 {
		if port, err := strconv.Atoi(entries[2][0]); err == nil {
			rec.Port = port
		}
	}
	return rec, nil
}

func addressesFromFile(decoded interface{}) ([]AddressRecord, error) {
	switch v := decoded.(type) {
	case map[string]interface{}:
		rec, err := addressFromMap(v)
		if err != nil {
			return nil, err
		}
		return []AddressRecord{rec}, nil
	case []interface{}:
		var out []AddressRecord
		for _, item := range v {
			m, ok := item.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("address file list entry is not a mapping")
			}
			rec, err := addressFromMap(m)
			if err != nil {
				return nil, err
			}
			out = append(out, rec)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("address file must decode to a mapping or list of mappings")
	}
}

func addressFromMap(m map[string]interface{}) (AddressRecord, error) {
	raw, ok := m["address"]
	if !ok {
		return AddressRecord{}, fmt.Errorf("address record missing mandatory %q field", "address")
	}

	var rec AddressRecord
	switch a := raw.(type) {
	case string:
		rec.Addresses = []string{a}
	case []interface{}:
		for _, item := range a {
			s, ok := item.(string)
			if !ok {
				return AddressRecord{}, fmt.Errorf("address list entries must be strings")
			}
			rec.Addresses = append(rec.Addresses, s)
		}
	default:
		return AddressRecord{}, fmt.Errorf("address field must be a string or list of strings")
	}
	if len(rec.Addresses) == 0 {
		return AddressRecord{}, fmt.Errorf("address record has no addresses")
	}

	if dt, ok := m["device_type"].(string); ok {
		rec.DeviceType = dt
	}
	if port, ok := m["port"]; ok {
		switch p := port.(type) {
		case int:
			rec.Port = p
		case float64: // json numbers decode as float64
			rec.Port = int(p)
		}
	}
	return rec, nil
}
