package query

import "strings"

// regionCodes maps lower-case US state and territory names to their postal codes.
var regionCodes = map[string]string{
	"alabama":                  "AL",
	"alaska":                   "AK",
	"arizona":                  "AZ",
	"arkansas":                 "AR",
	"california":               "CA",
	"colorado":                 "CO",
	"connecticut":              "CT",
	"delaware":                 "DE",
	"district of columbia":     "DC",
	"florida":                  "FL",
	"georgia":                  "GA",
	"hawaii":                   "HI",
	"idaho":                    "ID",
	"illinois":                 "IL",
	"indiana":                  "IN",
	"iowa":                     "IA",
	"kansas":                   "KS",
	"kentucky":                 "KY",
	"louisiana":                "LA",
	"maine":                    "ME",
	"maryland":                 "MD",
	"massachusetts":            "MA",
	"michigan":                 "MI",
	"minnesota":                "MN",
	"mississippi":              "MS",
	"missouri":                 "MO",
	"montana":                  "MT",
	"nebraska":                 "NE",
	"nevada":                   "NV",
	"new hampshire":            "NH",
	"new jersey":               "NJ",
	"new mexico":               "NM",
	"new york":                 "NY",
	"north carolina":           "NC",
	"north dakota":             "ND",
	"ohio":                     "OH",
	"oklahoma":                 "OK",
	"oregon":                   "OR",
	"pennsylvania":             "PA",
	"rhode island":             "RI",
	"south carolina":           "SC",
	"south dakota":             "SD",
	"tennessee":                "TN",
	"texas":                    "TX",
	"utah":                     "UT",
	"vermont":                  "VT",
	"virginia":                 "VA",
	"washington":               "WA",
	"west virginia":            "WV",
	"wisconsin":                "WI",
	"wyoming":                  "WY",
	"puerto rico":              "PR",
	"guam":                     "GU",
	"u.s. virgin islands":      "VI",
	"american samoa":           "AS",
	"northern mariana islands": "MP",
}

// RegionCode returns the postal code for a region name (exact match,
// case-insensitive, inner whitespace collapsed).
func RegionCode(name string) (string, bool) {
	code, ok := regionCodes[strings.ToLower(normaliseText(name))]
	return code, ok
}

// NormalizeState accepts a region name or a postal code and returns the
// upper-case code. Anything else comes back trimmed and upper-cased.
func NormalizeState(s string) string {
	if code, ok := RegionCode(s); ok {
		return code
	}
	return strings.ToUpper(strings.TrimSpace(s))
}
