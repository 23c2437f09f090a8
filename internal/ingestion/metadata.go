package ingestion

import (
	"net/url"
	"path"
	"strings"
	"unicode"
)

// Document types recognised by InferDocumentType.
const (
	TypeResume         = "resume"
	TypeJobDescription = "job-description"
	TypeCoverLetter    = "cover-letter"
)

// typeKeywords maps single name tokens to a document type.
var typeKeywords = map[string]string{
	"resume":         TypeResume,
	"résumé":         TypeResume,
	"cv":             TypeResume,
	"curriculum":     TypeResume,
	"jd":             TypeJobDescription,
	"jobdescription": TypeJobDescription,
	"posting":        TypeJobDescription,
	"vacancy":        TypeJobDescription,
	"requisition":    TypeJobDescription,
	"coverletter":    TypeCoverLetter,
}

// typePhrases maps adjacent token pairs to a document type.
var typePhrases = map[[2]string]string{
	{"job", "description"}: TypeJobDescription,
	{"job", "posting"}:     TypeJobDescription,
	{"job", "ad"}:          TypeJobDescription,
	{"cover", "letter"}:    TypeCoverLetter,
}

// InferDocumentType guesses a document type from a file path or URL, e.g.
// "jane-doe-resume.txt" is a resume and ".../jobs/backend-jd.md" is a job
// description. It returns "" when nothing matches so the engine default
// applies. An explicit --type flag always takes precedence.
func InferDocumentType(source string) string {
	name := source
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Host != "" {
		name = u.Path
	}
	name = strings.ToLower(path.Base(strings.ReplaceAll(name, "\\", "/")))
	name = strings.TrimSuffix(name, path.Ext(name))

	tokens := strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	for i, tok := range tokens {
		if i+1 < len(tokens) {
			if t, ok := typePhrases[[2]string{tok, tokens[i+1]}]; ok {
				return t
			}
		}
		if t, ok := typeKeywords[tok]; ok {
			return t
		}
	}
	return ""
}
