package prompt

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"github.com/arturoeanton/go-kb-answers/internal/port"
)

type languageEntry struct {
	name    string
	regions map[string]string
}

// languageNames maps base language codes to the name used in answer
// instructions. Region overrides win over the language default.
var languageNames = map[string]languageEntry{
	"en": {name: "English", regions: map[string]string{
		"us": "American English",
		"gb": "British English",
	}},
	"pt": {name: "Portuguese", regions: map[string]string{
		"br": "Brazilian Portuguese",
		"pt": "European Portuguese",
	}},
	"es": {name: "Spanish", regions: map[string]string{
		"es": "European Spanish",
		"mx": "Mexican Spanish",
	}},
	"fr": {name: "French", regions: map[string]string{
		"ca": "Canadian French",
	}},
	"de": {name: "German"},
	"it": {name: "Italian"},
	"nl": {name: "Dutch"},
	"ja": {name: "Japanese"},
	"zh": {name: "Chinese", regions: map[string]string{
		"cn": "Simplified Chinese",
		"tw": "Traditional Chinese",
	}},
}

// LanguageName resolves a locale tag such as "pt-BR" or "pt_br" to a
// human-readable language name.
func LanguageName(localeTag string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(localeTag))
	if err != nil {
		return "", fmt.Errorf("%w: %q", port.ErrUnknownLocale, localeTag)
	}

	base, _, region := tag.Raw()
	entry, ok := languageNames[base.String()]
	if !ok {
		return "", fmt.Errorf("%w: %q", port.ErrUnknownLocale, localeTag)
	}

	if r := strings.ToLower(region.String()); r != "zz" {
		if name, ok := entry.regions[r]; ok {
			return name, nil
		}
	}
	return entry.name, nil
}
