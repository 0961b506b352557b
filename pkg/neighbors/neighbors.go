// Package neighbors defines the canonical ten-attribute neighbor record
// and the filter engine that selects a subset of discovered neighbors
// during a crawl (spec.md §4.7).
package neighbors

// AttributeMeta carries the static LLDP/CDP TLV metadata for one
// neighbor attribute. It is descriptive only and never participates in
// equality or filtering, matching the Python class attribute split
// between neighbor_attribute.Value and its TLV fields.
type AttributeMeta struct {
	Name        string
	LLDPTLVType int // 0 = not carried by LLDP
	LLDPTLVName string
	CDPTLVType  int // 0 = not carried by CDP
	CDPTLVName  string
	Description string
}

// Attributes is the ordered list of the ten allowed neighbor attributes,
// carrying their TLV provenance. Order is registration order and has no
// semantic significance beyond matching AllowedAttributes() and
// Record.Get()'s field layout.
var Attributes = []AttributeMeta{
	{Name: "sysid", LLDPTLVType: 1, LLDPTLVName: "Chassis ID",
		Description: "Chassis MAC Address"},
	{Name: "remoteif", LLDPTLVType: 2, LLDPTLVName: "Port ID",
		CDPTLVType: 3, CDPTLVName: "Port ID", Description: "Remote Interface Name"},
	{Name: "ttl", LLDPTLVType: 3, LLDPTLVName: "Time To Live",
		Description: "LLDP Time To Live"},
	{Name: "remoteifdesc", LLDPTLVType: 4, LLDPTLVName: "Port Description",
		Description: "LLDP Description on Remote Interface"},
	{Name: "sysname", LLDPTLVType: 5, LLDPTLVName: "System Name",
		CDPTLVType: 1, CDPTLVName: "Device ID", Description: "System Hostname"},
	{Name: "sysdesc", LLDPTLVType: 6, LLDPTLVName: "System Description",
		CDPTLVType: 5, CDPTLVName: "Software Version", Description: "System/Software Description"},
	{Name: "syscap", LLDPTLVType: 7, LLDPTLVName: "System Capabilities",
		CDPTLVType: 4, CDPTLVName: "Capabilities", Description: "LLDP System Capability Codes"},
	{Name: "addresses", LLDPTLVType: 8, LLDPTLVName: "Management Address",
		CDPTLVType: 2, CDPTLVName: "Addresses", Description: "Management Hostname/IP Address"},
	{Name: "localif", Description: "Local Interface Name"},
	{Name: "platform", CDPTLVType: 6, CDPTLVName: "Platform",
		Description: "CDP Specific System Part Number"},
}

// AllowedAttributes returns the ten legal attribute names, in
// registration order.
func AllowedAttributes() []string {
	names := make([]string, len(Attributes))
	for i, a := range Attributes {
		names[i] = a.Name
	}
	return names
}

func isAllowed(name string) bool {
	for _, a := range Attributes {
		if a.Name == name {
			return true
		}
	}
	return false
}

// Record is one discovered neighbor, carrying the ten attributes each as
// a string list (an attribute may legitimately carry more than one value
// across merged handler calls).
type Record struct {
	SysID        []string
	RemoteIf     []string
	TTL          []string
	RemoteIfDesc []string
	SysName      []string
	SysDesc      []string
	SysCap       []string
	Addresses    []string
	LocalIf      []string
	Platform     []string
}

// Get returns the value list for a named attribute, or nil if name is
// not one of the ten allowed attributes.
func (r Record) Get(attribute string) []string {
	switch attribute {
	case "sysid":
		return r.SysID
	case "remoteif":
		return r.RemoteIf
	case "ttl":
		return r.TTL
	case "remoteifdesc":
		return r.RemoteIfDesc
	case "sysname":
		return r.SysName
	case "sysdesc":
		return r.SysDesc
	case "syscap":
		return r.SysCap
	case "addresses":
		return r.Addresses
	case "localif":
		return r.LocalIf
	case "platform":
		return r.Platform
	default:
		return nil
	}
}

// set is Get's write counterpart, used by FromMap and Merge.
func (r *Record) set(attribute string, v []string) {
	switch attribute {
	case "sysid":
		r.SysID = v
	case "remoteif":
		r.RemoteIf = v
	case "ttl":
		r.TTL = v
	case "remoteifdesc":
		r.RemoteIfDesc = v
	case "sysname":
		r.SysName = v
	case "sysdesc":
		r.SysDesc = v
	case "syscap":
		r.SysCap = v
	case "addresses":
		r.Addresses = v
	case "localif":
		r.LocalIf = v
	case "platform":
		r.Platform = v
	}
}

// FromMap builds a Record from a handler's raw neighbor-dict (attribute
// name -> string list). Unrecognized keys are ignored.
func FromMap(m map[string]interface{}) Record {
	var rec Record
	for _, attr := range Attributes {
		raw, ok := m[attr.Name]
		if !ok {
			continue
		}
		rec.set(attr.Name, toStringSlice(raw))
	}
	return rec
}

func toStringSlice(raw interface{}) []string {
	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		return []string{v}
	default:
		return nil
	}
}

// Merge folds secondary's attribute values into primary whenever
// primary's own value is empty, implementing spec.md §4.6's LLDP
// detail+brief merge: the primary's non-empty values always win.
func Merge(primary, secondary Record) Record {
	out := primary
	for _, attr := range Attributes {
		if len(out.Get(attr.Name)) == 0 {
			if v := secondary.Get(attr.Name); len(v) > 0 {
				out.set(attr.Name, v)
			}
		}
	}
	return out
}

// MergeBySysName merges each primary record with the secondary record
// that shares its sysname, the typical shared-attribute match spec.md
// §4.6 describes for combining LLDP detail and brief output. Primary
// records with no secondary match pass through unchanged.
func MergeBySysName(primary, secondary []Record) []Record {
	bySysName := make(map[string]Record, len(secondary))
	for _, s := range secondary {
		for _, name := range s.SysName {
			bySysName[name] = s
		}
	}
	out := make([]Record, len(primary))
	for i, p := range primary {
		merged := p
		for _, name := range p.SysName {
			if s, ok := bySysName[name]; ok {
				merged = Merge(p, s)
				break
			}
		}
		out[i] = merged
	}
	return out
}
