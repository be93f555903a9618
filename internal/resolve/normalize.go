package resolve

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// legalSuffixes lists common legal entity suffixes stripped during name
// normalization.
var legalSuffixes = []string{
	" LLC", " L.L.C.", " L.L.C",
	" INC", " INC.", " INCORPORATED",
	" CORP", " CORP.", " CORPORATION",
	" LTD", " LTD.", " LIMITED",
	" PLC", " P.L.C.",
	" NA", " N.A.", " N.A",
	" SA", " S.A.", " S.A",
	" AG", " A.G.",
	" NV", " N.V.",
	" GMBH",
	" CO", " CO.",
	" LP", " L.P.", " L.P",
	" LLP", " L.L.P.", " L.L.P",
}

var multiSpaceRe = regexp.MustCompile(`\s{2,}`)

var foldTransformer = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// NormalizeName standardizes an institution name for matching by:
//  1. Trimming whitespace and folding diacritics (Société → Societe)
//  2. Converting to uppercase
//  3. Removing common legal suffixes (LLC, Inc, PLC, SA, AG, etc.)
//  4. Stripping punctuation
//  5. Collapsing multiple spaces
func NormalizeName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}

	if folded, _, err := transform.String(foldTransformer, name); err == nil {
		name = folded
	}

	name = strings.ToUpper(name)

	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(name, suffix) {
			name = strings.TrimSuffix(name, suffix)
			break
		}
	}

	name = strings.NewReplacer(
		",", "",
		".", "",
		"'", "",
		"\"", "",
		"&", "AND",
		"-", " ",
		"(", "",
		")", "",
	).Replace(name)

	name = multiSpaceRe.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// branchIndicators flag names describing a branch or representative
// office rather than the underlying legal entity.
var branchIndicators = []string{
	"BRANCH",
	"REPRESENTATIVE OFFICE",
	"REP OFFICE",
	"AGENCY OFFICE",
}

// looksLikeBranch reports whether a candidate name or category indicates
// a branch/representative office.
func looksLikeBranch(rec RegistryRecord) bool {
	if rec.Category == CategoryBranch {
		return true
	}
	upper := strings.ToUpper(rec.LegalName)
	for _, ind := range branchIndicators {
		if strings.Contains(upper, ind) {
			return true
		}
	}
	return false
}

// hasForeignBranchSuffix reports whether the name carries a
// jurisdiction-qualified branch suffix ("..., New York Branch") tied to a
// country other than the expected jurisdiction.
func hasForeignBranchSuffix(rec RegistryRecord, expectedCountry string) bool {
	upper := strings.ToUpper(rec.LegalName)
	if !strings.Contains(upper, "BRANCH") {
		return false
	}
	return expectedCountry != "" && !strings.EqualFold(rec.Country, expectedCountry)
}
