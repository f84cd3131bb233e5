// Package extract turns recognized card text into a structured record.
//
// Text is first cleaned by Normalize. The Extractor then runs a fixed,
// ordered list of rules per field; the first rule that matches decides the
// value and later rules are never consulted. Fields with no matching rule
// are left empty. The rules describe one issuing region's card layout and
// are deliberately static.
//
// Front text supplies name, date of birth, gender and identity number.
// Back text supplies address and postal code.
package extract

// Field names as they appear in the JSON record.
type Field string

const (
	FieldName           Field = "name"
	FieldDOB            Field = "dob"
	FieldGender         Field = "gender"
	FieldIdentityNumber Field = "identityNumber"
	FieldAddress        Field = "address"
	FieldPostalCode     Field = "postalCode"
)

// DefaultRegionAnchor closes the address on the supported card layout.
const DefaultRegionAnchor = "Kerala"

// Record is the structured content of one identity card.
type Record struct {
	Name           string `json:"name"`
	DOB            string `json:"dob"`
	Gender         string `json:"gender"`
	IdentityNumber string `json:"identityNumber"`
	Address        string `json:"address"`
	PostalCode     string `json:"postalCode"`
}

// MandatoryFields lists, in reporting order, the fields a record needs
// before it can be validated.
var MandatoryFields = []Field{FieldIdentityNumber, FieldName, FieldDOB}

// Value returns the record's value for f.
func (r Record) Value(f Field) string {
	switch f {
	case FieldName:
		return r.Name
	case FieldDOB:
		return r.DOB
	case FieldGender:
		return r.Gender
	case FieldIdentityNumber:
		return r.IdentityNumber
	case FieldAddress:
		return r.Address
	case FieldPostalCode:
		return r.PostalCode
	default:
		return ""
	}
}

// Missing returns the mandatory fields that are empty, in MandatoryFields order.
func (r Record) Missing() []Field {
	var missing []Field
	for _, f := range MandatoryFields {
		if r.Value(f) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// Trace records which rule produced each field. Fields with no match are absent.
type Trace map[Field]string

// Extractor applies the field rules. It is immutable and safe for concurrent use.
type Extractor struct {
	front []fieldRules
	back  []fieldRules
}

type fieldRules struct {
	field Field
	rules []Rule
	set   func(*Record, string)
}

// NewExtractor builds an extractor whose address rule ends at regionAnchor.
// An empty anchor uses DefaultRegionAnchor.
func NewExtractor(regionAnchor string) *Extractor {
	if regionAnchor == "" {
		regionAnchor = DefaultRegionAnchor
	}
	return &Extractor{
		front: []fieldRules{
			{FieldName, nameRules(), func(r *Record, v string) { r.Name = v }},
			{FieldDOB, dobRules(), func(r *Record, v string) { r.DOB = v }},
			{FieldGender, genderRules(), func(r *Record, v string) { r.Gender = v }},
			{FieldIdentityNumber, identityNumberRules(), func(r *Record, v string) { r.IdentityNumber = v }},
		},
		back: []fieldRules{
			{FieldAddress, addressRules(regionAnchor), func(r *Record, v string) { r.Address = v }},
			{FieldPostalCode, postalCodeRules(), func(r *Record, v string) { r.PostalCode = v }},
		},
	}
}

// Extract builds a best-effort record from normalized front and back text.
func (e *Extractor) Extract(front, back string) Record {
	rec, _ := e.ExtractWithTrace(front, back)
	return rec
}

// ExtractWithTrace is Extract, also reporting the winning rule per field.
func (e *Extractor) ExtractWithTrace(front, back string) (Record, Trace) {
	var rec Record
	trace := Trace{}

	apply := func(set []fieldRules, text string) {
		for _, fr := range set {
			if v, rule := firstMatch(fr.rules, text); rule != "" {
				fr.set(&rec, v)
				trace[fr.field] = rule
			}
		}
	}
	apply(e.front, front)
	apply(e.back, back)

	return rec, trace
}
