// Package personalize renders campaign templates. A campaign whose template
// carries a {{first_name}} or {{last_name}} placeholder is personalized;
// anything else is a broadcast and every contact receives identical text.
package personalize

import "regexp"

var (
	placeholderRe = regexp.MustCompile(`\{\{(first_name|last_name)\}\}`)
	firstNameRe   = regexp.MustCompile(`\{\{first_name\}\}`)
	lastNameRe    = regexp.MustCompile(`\{\{last_name\}\}`)
)

// fallbackName stands in when a customer record has an empty name field.
const fallbackName = "Customer"

// HasPlaceholders reports whether template contains at least one
// personalization placeholder.
func HasPlaceholders(template string) bool {
	return placeholderRe.MatchString(template)
}

// Render substitutes every placeholder occurrence. Empty name fields fall
// back to a literal "Customer". Templates without placeholders are returned
// unchanged.
func Render(template, firstName, lastName string) string {
	if firstName == "" {
		firstName = fallbackName
	}
	if lastName == "" {
		lastName = fallbackName
	}
	out := firstNameRe.ReplaceAllLiteralString(template, firstName)
	out = lastNameRe.ReplaceAllLiteralString(out, lastName)
	return out
}
