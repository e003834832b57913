package voice

// DefaultLocale is used for unknown language codes.
const DefaultLocale = "en-ZA"

// Language is a selectable conversation language.
type Language struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Locale string `json:"locale"`
}

var languages = []Language{
	{Code: "en", Name: "English", Locale: "en-ZA"},
	{Code: "af", Name: "Afrikaans", Locale: "af-ZA"},
	{Code: "zu", Name: "isiZulu", Locale: "zu-ZA"},
	{Code: "xh", Name: "isiXhosa", Locale: "xh-ZA"},
	{Code: "st", Name: "Sesotho", Locale: "st-ZA"},
	{Code: "tn", Name: "Setswana", Locale: "tn-ZA"},
	{Code: "nso", Name: "Sepedi", Locale: "nso-ZA"},
	{Code: "ts", Name: "Xitsonga", Locale: "ts-ZA"},
	{Code: "ve", Name: "Tshivenda", Locale: "ve-ZA"},
	{Code: "ss", Name: "siSwati", Locale: "ss-ZA"},
	{Code: "nr", Name: "isiNdebele", Locale: "nr-ZA"},
}

// Languages returns the supported languages in display order.
func Languages() []Language {
	out := make([]Language, len(languages))
	copy(out, languages)
	return out
}

// LocaleFor maps a language code to its speech locale.
func LocaleFor(code string) string {
	for _, l := range languages {
		if l.Code == code {
			return l.Locale
		}
	}
	return DefaultLocale
}
