package enrich

import "fmt"

// Record merges the rDNS, ASN, and GeoIP results for one IP into the single
// descriptor shape the output layer renders, matching the text formatter's
// "<city>, <country> · AS<asn> <as_name>" contract.
type Record struct {
	Hostname string
	City     string
	Country  string
	Lat      float64
	Lon      float64
	ISP      string
	Org      string
	ASN      int
	ASName   string
}

// ASText renders the AS number with its conventional "AS" prefix, or the
// empty string if no ASN was resolved.
func (r Record) ASText() string {
	if r.ASN == 0 {
		return ""
	}
	return fmt.Sprintf("AS%d", r.ASN)
}

// Descriptor builds the "<city>, <country> · AS<asn> <as_name>" hop
// description, omitting any part whose underlying data is missing and
// falling back to the empty string when nothing was resolved at all.
func (r Record) Descriptor() string {
	var loc string
	switch {
	case r.City != "" && r.Country != "":
		loc = r.City + ", " + r.Country
	case r.City != "":
		loc = r.City
	case r.Country != "":
		loc = r.Country
	}

	var as string
	if r.ASN != 0 {
		as = r.ASText()
		if r.ASName != "" {
			as += " " + r.ASName
		}
	}

	switch {
	case loc != "" && as != "":
		return loc + " · " + as
	case loc != "":
		return loc
	case as != "":
		return as
	default:
		return ""
	}
}

// ToRecord merges an EnrichmentResult into the unified Record shape.
func ToRecord(result *EnrichmentResult) Record {
	var rec Record
	if result == nil {
		return rec
	}
	rec.Hostname = result.Hostname
	if result.Geo != nil {
		rec.City = result.Geo.City
		rec.Country = result.Geo.Country
		rec.Lat = result.Geo.Latitude
		rec.Lon = result.Geo.Longitude
		rec.ISP = result.Geo.ISP
		if rec.Org == "" {
			rec.Org = result.Geo.Org
		}
	}
	if result.ASN != nil {
		rec.ASN = result.ASN.Number
		rec.ASName = result.ASN.Org
		if rec.Org == "" {
			rec.Org = result.ASN.Org
		}
	}
	return rec
}
