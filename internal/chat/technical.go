package chat

import "regexp"

// technicalRes decides whether an answer deserves document cards. Short
// social messages ("hi", "thanks") match nothing here and get none.
var technicalRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\binstall(ation)?\b|\bmount(ing)?\b|\bassembl`),
	regexp.MustCompile(`(?i)\bspecification(s)?\b|\bspec(s)?\b|\bdimension(s)?\b|\bsize\b`),
	regexp.MustCompile(`(?i)\bmanual\b|\bguide\b|\bdocumentation\b|\bdatasheet\b`),
	regexp.MustCompile(`(?i)\bwarranty\b|\breturn policy\b`),
	regexp.MustCompile(`(?i)\bconfigur|\bsetup\b|\bset up\b|\bcalibrat`),
	regexp.MustCompile(`(?i)\bproduct\b|\bmodel\b|\bpart number\b|\bsku\b`),
	regexp.MustCompile(`(?i)\bprice\b|\bcost\b|\bavailab`),
	regexp.MustCompile(`(?i)\bcompatib|\bsupport(s|ed)?\b|\bworks with\b`),
	regexp.MustCompile(`(?i)\bvoltage\b|\bwattage\b|\btorque\b|\bweight\b|\bcapacity\b`),
	regexp.MustCompile(`(?i)\bfirmware\b|\btroubleshoot|\berror code\b|\brepair\b|\bmaintenance\b`),
	regexp.MustCompile(`(?i)\bscrew(s)?\b|\bbracket(s)?\b|\bhole(s)?\b|\bcable(s)?\b|\bconnector\b`),
	regexp.MustCompile(`\b[A-Z]{2,5}-\d{1,4}\b`),
}

// IsTechnicalQuery reports whether the query concerns products or
// documentation. The gate runs on sanitized text.
func IsTechnicalQuery(query string) bool {
	for _, re := range technicalRes {
		if re.MatchString(query) {
			return true
		}
	}
	return false
}
