package bot

import (
	"strings"
	"unicode"
)

// Detection vocabulary for the extraction engine. Kept as data so the
// policy stays declarative and testable on its own.

var cityGazetteer = []string{
	"casablanca", "rabat", "marrakech", "tanger", "fes", "agadir", "meknes",
	"tetouan", "oujda", "kenitra", "temara", "safi", "mohammedia", "el jadida",
	"beni mellal", "nador", "errachidia", "essaouira", "khenifra", "khouribga",
	"larache", "berrechid", "settat", "sale",
}

var addressKeywords = []string{
	"adresse", "address", "rue", "bd", "boulevard", "avenue", "av ", "lot",
	"immeuble", "appartement", "appt", "etage", "residence", "quartier",
	"hay", "cite", "bloc", "numero", "n°",
}

// Affirmative tokens: french, darija, english. Matched against the whole
// normalized message, by equality or substring.
var affirmativeWords = []string{
	"oui", "ok", "daccord", "d'accord", "safi", "na3am", "ah", "iwa", "yes",
	"parfait", "cest bon", "c'est bon", "top", "tres bien",
}

var deliveryExpressWords = []string{"express"}
var deliveryStandardWords = []string{"normal", "standard"}

var accentFolder = strings.NewReplacer(
	"à", "a", "â", "a", "ä", "a", "á", "a", "ã", "a", "å", "a",
	"è", "e", "é", "e", "ê", "e", "ë", "e",
	"ì", "i", "í", "i", "î", "i", "ï", "i",
	"ò", "o", "ó", "o", "ô", "o", "ö", "o", "õ", "o",
	"ù", "u", "ú", "u", "û", "u", "ü", "u",
	"ç", "c", "ñ", "n", "ÿ", "y",
	"œ", "oe", "æ", "ae",
)

// normalize lowercases, folds accents and trims, the shared form for
// all case/accent-insensitive matching.
func normalize(text string) string {
	return strings.TrimSpace(accentFolder.Replace(strings.ToLower(text)))
}

// capitalizeWords title-cases each word, for names and cities.
func capitalizeWords(text string) string {
	words := strings.Fields(text)
	for i, w := range words {
		r := []rune(strings.ToLower(w))
		if len(r) > 0 {
			r[0] = unicode.ToUpper(r[0])
		}
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
