package blacklist

import (
	"regexp"

	"github.com/jsj9346/screener/internal/domain"
)

// tickerPatterns validates add/deactivate operations per spec §4.3. No
// validation-schema library appears in the pack for this shape of
// constraint (a handful of fixed per-region regexes), so stdlib regexp is
// used directly rather than reaching for an unlisted dependency.
var tickerPatterns = map[domain.Region]*regexp.Regexp{
	domain.RegionKR: regexp.MustCompile(`^\d{6}$`),
	domain.RegionUS: regexp.MustCompile(`^[A-Z]{1,5}(\.[A-Z])?$`),
	domain.RegionCN: regexp.MustCompile(`^\d{6}\.(SS|SZ)$`),
	domain.RegionHK: regexp.MustCompile(`^\d{4,5}(\.HK)?$`),
	domain.RegionJP: regexp.MustCompile(`^\d{4}$`),
	domain.RegionVN: regexp.MustCompile(`^[A-Z]{3}$`),
}

// validFormat reports whether ticker matches its region's format. An
// unrecognized region is treated as valid (nothing to check against), but
// every domain.Region constant has an entry here.
func validFormat(ticker string, region domain.Region) bool {
	pattern, ok := tickerPatterns[region]
	if !ok {
		return true
	}
	return pattern.MatchString(ticker)
}
