package legacysync

// The legacy chapter database keeps one Address table per member with the
// member's phone numbers and emails overloaded onto columns of the Home
// row. These types describe the mirrored values; json tags line up with
// the primary models so outbox payloads unmarshal directly.

type AddressRecord struct {
	Kind    string `json:"kind"`
	Line1   string `json:"line1"`
	Line2   string `json:"line2"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`
	Country string `json:"country"`
}

type PhoneRecord struct {
	Kind        string `json:"kind"`
	CountryCode string `json:"country_code"`
	Number      string `json:"number"`
}

type EmailRecord struct {
	Email    string `json:"email"`
	AltEmail string `json:"alt_email"`
}

// ExternalKey identifies one row of the legacy Address table. The table
// has no usable surrogate key exposed to us, so rows are addressed by
// member number, type spelling and first address line.
type ExternalKey struct {
	MemberNumber int
	TypeSpelling string
	Line1        string
}

// typeSpellings maps our address kinds to the legacy system's spellings.
// Unmapped values pass through unchanged.
var typeSpellings = map[string]string{
	"Work":   "Business",
	"Home":   "Home",
	"School": "School",
}

func LegacyTypeSpelling(kind string) string {
	if spelled, ok := typeSpellings[kind]; ok {
		return spelled
	}
	return kind
}

// phoneColumns maps phone kinds to the legacy Address columns holding them.
var phoneColumns = map[string]string{
	"Mobile": "add_CellPhone",
	"Home":   "add_phone",
	"Work":   "add_business_phone",
}

func phoneColumn(kind string) (string, bool) {
	col, ok := phoneColumns[kind]
	return col, ok
}

func (r AddressRecord) Key(memberNumber int) ExternalKey {
	return ExternalKey{
		MemberNumber: memberNumber,
		TypeSpelling: LegacyTypeSpelling(r.Kind),
		Line1:        r.Line1,
	}
}
