package extract

import (
	"regexp"
	"strings"
)

// Rule is one pattern for one field. Match returns the field value and
// true when the rule applies to the text.
type Rule struct {
	Name  string
	Match func(text string) (string, bool)
}

// firstMatch runs rules in order and returns the first success.
func firstMatch(rules []Rule, text string) (value, rule string) {
	for _, r := range rules {
		if v, ok := r.Match(text); ok {
			return v, r.Name
		}
	}
	return "", ""
}

// submatchRule matches re and returns capture group 1 passed through clean.
// A match whose cleaned value is empty does not count.
func submatchRule(name string, re *regexp.Regexp, clean func(string) string) Rule {
	return Rule{
		Name: name,
		Match: func(text string) (string, bool) {
			m := re.FindStringSubmatch(text)
			if m == nil {
				return "", false
			}
			v := clean(m[1])
			return v, v != ""
		},
	}
}

// dobLabels are the printed date of birth labels and their common misreads.
// The date rule and both name rules share them.
const dobLabels = `(?:DOB|Date of Birth|DoB|D0B|Date)`

// Front side patterns
var (
	reDOB = regexp.MustCompile(`(?i)` + dobLabels + `\s*[:\-]?\s*(\d{2}/\d{2}/\d{4})`)

	reGender = regexp.MustCompile(`(?i)\b(Male|Female|MALE|FEMALE|Femal|M|F)\b`)

	reIdentityNumber = regexp.MustCompile(`\b(\d{4}\s\d{4}\s\d{4})\b`)

	// "RRR" is how the recognizer consistently reads the emblem printed
	// left of the holder's name.
	reNameAnchored = regexp.MustCompile(`(?i)RRR\s*([A-Za-z\s]+?)\s` + dobLabels + `\b`)

	// No trailing boundary: the recognizer often drops the separator
	// between the label and the date.
	reDOBLabel = regexp.MustCompile(`(?i)\b` + dobLabels)
)

// nameArtifact is the emblem misread that may lead the name.
const nameArtifact = "RRR"

// Back side patterns
var (
	rePostalCode = regexp.MustCompile(`\b(\d{6})\b`)
)

func dobRules() []Rule {
	return []Rule{
		submatchRule("labeled-date", reDOB, strings.TrimSpace),
	}
}

func genderRules() []Rule {
	return []Rule{
		submatchRule("gender-token", reGender, classifyGender),
	}
}

// classifyGender maps any matched token to Male or Female by its first letter.
func classifyGender(token string) string {
	if strings.HasPrefix(strings.ToLower(token), "f") {
		return "Female"
	}
	return "Male"
}

func identityNumberRules() []Rule {
	return []Rule{
		submatchRule("grouped-4-4-4", reIdentityNumber, stripSpaces),
	}
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}

// nameRules tries the artifact-anchored pattern first. The fallback only
// looks at the line holding the DOB label, which keeps card boilerplate on
// earlier lines out of the name.
func nameRules() []Rule {
	return []Rule{
		submatchRule("anchored", reNameAnchored, cleanName),
		{Name: "before-dob", Match: nameBeforeDOB},
	}
}

// nameBeforeDOB returns the run of letters and spaces directly before the
// first date of birth label, on the same line. The run may still start with the
// emblem artifact when the anchored rule missed, so that token is dropped.
func nameBeforeDOB(text string) (string, bool) {
	loc := reDOBLabel.FindStringIndex(text)
	if loc == nil {
		return "", false
	}

	before := text[:loc[0]]
	if i := strings.LastIndexByte(before, '\n'); i >= 0 {
		before = before[i+1:]
	}

	start := len(before)
	for start > 0 && isNameByte(before[start-1]) {
		start--
	}

	words := strings.Fields(before[start:])
	if len(words) > 0 && strings.EqualFold(words[0], nameArtifact) {
		words = words[1:]
	}
	name := strings.Join(words, " ")
	return name, name != ""
}

// cleanName single-spaces a name that may wrap across lines.
func cleanName(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func isNameByte(c byte) bool {
	return c == ' ' || c == '\t' || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

func postalCodeRules() []Rule {
	return []Rule{
		submatchRule("six-digits", rePostalCode, strings.TrimSpace),
	}
}

// addressRules extracts the text between an address label and the region
// name that closes every address on the supported card layout.
func addressRules(regionAnchor string) []Rule {
	re := regexp.MustCompile(`(?i)(?:Address[:\s]+|S/O:)([\s\S]+?)` + regexp.QuoteMeta(regionAnchor))
	return []Rule{
		submatchRule("label-to-region", re, Normalize),
	}
}
