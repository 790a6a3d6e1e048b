package attribution

import (
	"regexp"
	"strings"

	"github.com/kart-io/lexrag/internal/pkg/legal/textutil"
)

// maxSourceLen bounds the fallback form of an unrecognized source string,
// ellipsis included.
const maxSourceLen = 50

var (
	blockIDPattern    = regexp.MustCompile(`^[A-Z][A-Z0-9]*-\d+[A-Za-z]?$`)
	sectionRefPattern = regexp.MustCompile(`(?i)\bsection\s+(\d+[A-Za-z]?)\b`)
	lawCodePattern    = regexp.MustCompile(`(?i)\b(bns|bnss|bsa|pocso|ipc|crpc)\s*-?\s*(\d+[A-Za-z]?)\b`)
	plainNumPattern   = regexp.MustCompile(`^\d+[A-Za-z]?$`)
)

// canonicalLawCodes maps a lowercased code mention to its display form.
var canonicalLawCodes = map[string]string{
	"bns":   "BNS",
	"bnss":  "BNSS",
	"bsa":   "BSA",
	"pocso": "POCSO",
	"ipc":   "IPC",
	"crpc":  "CrPC",
}

// CleanSupportingSources normalizes free-form model-provided source strings
// to canonical ids. Patterns apply in priority order: a block-id token, a
// "Section N" reference, a law-code-prefixed number, a bare number, and
// finally a bounded truncation. Duplicates are removed preserving first-seen
// order. Cleaning its own output is a no-op.
func CleanSupportingSources(sources []string) []string {
	if len(sources) == 0 {
		return nil
	}
	var out []string
	for _, src := range sources {
		cleaned := cleanSource(strings.TrimSpace(src))
		if cleaned == "" || textutil.ContainsString(out, cleaned) {
			continue
		}
		out = append(out, cleaned)
	}
	return out
}

func cleanSource(src string) string {
	if src == "" {
		return ""
	}
	if blockIDPattern.MatchString(src) {
		return src
	}
	if m := sectionRefPattern.FindStringSubmatch(src); m != nil {
		return "Section " + m[1]
	}
	if m := lawCodePattern.FindStringSubmatch(src); m != nil {
		return canonicalLawCodes[strings.ToLower(m[1])] + " " + m[2]
	}
	if plainNumPattern.MatchString(src) {
		return "Section " + src
	}
	if len([]rune(src)) > maxSourceLen {
		return textutil.TruncateString(src, maxSourceLen-3) + "..."
	}
	return src
}
