package phone

import (
	"strings"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

// DefaultISO2 is reported for calling codes missing from the lookup table.
const DefaultISO2 = "EG"

var iso2ByCallingCode = map[string]string{
	"1":   "US",
	"20":  "EG",
	"33":  "FR",
	"44":  "GB",
	"49":  "DE",
	"90":  "TR",
	"212": "MA",
	"213": "DZ",
	"216": "TN",
	"218": "LY",
	"249": "SD",
	"961": "LB",
	"962": "JO",
	"963": "SY",
	"964": "IQ",
	"965": "KW",
	"966": "SA",
	"968": "OM",
	"970": "PS",
	"971": "AE",
	"973": "BH",
	"974": "QA",
}

// Number is a normalized phone number ready for the backend.
type Number struct {
	CallingCode string `json:"calling_code"`
	National    string `json:"national"`
	E164        string `json:"e164"`
	ISO2        string `json:"iso2"`
}

// Normalize builds +<calling_code><national_number>. One leading national
// trunk "0" is dropped from number. A number typed with a leading "+" is
// taken as already international and only cleaned of separators.
func Normalize(callingCode, number string) (Number, error) {
	code := digits(callingCode)
	trimmed := strings.TrimSpace(number)
	national := digits(trimmed)

	if national == "" {
		return Number{}, pkgerrors.New(pkgerrors.CodeValidation, "phone number is required").
			WithDetails(map[string]string{"phone": "is required"})
	}

	if strings.HasPrefix(trimmed, "+") {
		cc := matchCallingCode(national)
		if cc == "" {
			cc = code
		}
		return Number{
			CallingCode: cc,
			National:    strings.TrimPrefix(national, cc),
			E164:        "+" + national,
			ISO2:        ISO2ForCallingCode(cc),
		}, nil
	}

	if code == "" {
		return Number{}, pkgerrors.New(pkgerrors.CodeValidation, "phone country code is required").
			WithDetails(map[string]string{"phone_country": "is required"})
	}
	national = strings.TrimPrefix(national, "0")
	return Number{
		CallingCode: code,
		National:    national,
		E164:        "+" + code + national,
		ISO2:        ISO2ForCallingCode(code),
	}, nil
}

// ISO2ForCallingCode maps a calling code such as "+966" to its ISO 3166 alpha-2
// country. Unmapped codes fall back to DefaultISO2, which is wrong for any
// market outside the table.
func ISO2ForCallingCode(callingCode string) string {
	if iso, ok := iso2ByCallingCode[digits(callingCode)]; ok {
		return iso
	}
	return DefaultISO2
}

// matchCallingCode finds the longest table prefix of an international number.
func matchCallingCode(international string) string {
	for n := 3; n >= 1; n-- {
		if len(international) <= n {
			continue
		}
		if _, ok := iso2ByCallingCode[international[:n]]; ok {
			return international[:n]
		}
	}
	return ""
}

func digits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
