package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
	"golang.org/x/text/language"
)

// Supported lists the languages shipped under locales/.
var Supported = []language.Tag{language.English, language.Indonesian}

var matcher = language.NewMatcher(Supported)

// Configure loads the catalog for lang from dir, falling back to English.
func Configure(dir, lang string) string {
	code := Normalize(lang)
	gotext.Configure(dir, code, "default")
	return code
}

// Normalize maps values such as "id_ID.UTF-8" or "EN-us" to a supported
// base language code.
func Normalize(lang string) string {
	lang = strings.TrimSpace(lang)
	if i := strings.IndexAny(lang, ".@"); i >= 0 {
		lang = lang[:i]
	}
	tag, err := language.Parse(strings.ReplaceAll(lang, "_", "-"))
	if err != nil {
		return "en"
	}
	_, i, _ := matcher.Match(tag)
	base, _ := Supported[i].Base()
	return base.String()
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}
