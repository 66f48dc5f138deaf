package slug

import (
	"regexp"
	"strconv"
	"strings"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// latin folds the accented letters that show up in product titles.
var latin = strings.NewReplacer(
	"à", "a", "á", "a", "â", "a", "ä", "a", "ã", "a", "å", "a",
	"ç", "c", "è", "e", "é", "e", "ê", "e", "ë", "e",
	"ğ", "g", "ì", "i", "í", "i", "î", "i", "ï", "i", "ı", "i",
	"ñ", "n", "ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o", "ø", "o",
	"ş", "s", "ß", "ss", "ù", "u", "ú", "u", "û", "u", "ü", "u", "ý", "y", "ÿ", "y",
	"&", " and ",
)

// Generate turns a title into a lowercase, hyphen-separated URL slug.
//
//	"Apple iPhone 15 Pro" -> "apple-iphone-15-pro"
//	"Crème Brûlée & Co."  -> "creme-brulee-and-co"
func Generate(title string) string {
	s := strings.ToLower(strings.TrimSpace(title))
	s = latin.Replace(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// WithSuffix returns base with a numeric suffix, used when base is taken.
// n <= 1 returns base unchanged.
func WithSuffix(base string, n int) string {
	if n <= 1 {
		return base
	}
	return base + "-" + strconv.Itoa(n)
}
