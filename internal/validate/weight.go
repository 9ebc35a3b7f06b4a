package validate

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// Cargo weight bounds in tonnes, inclusive.
const (
	MinWeight = 0.0
	MaxWeight = 25.0
)

// weightRe admits plain decimal notation only; ParseFloat alone would also
// take hex floats, digit underscores and infinities.
var weightRe = regexp.MustCompile(`^[+-]?([0-9]+\.?[0-9]*|\.[0-9]+)([eE][+-]?[0-9]+)?$`)

const (
	weightRetry     = " Bitte geben Sie das Gewicht erneut ein:"
	msgWeightFormat = "❌ Fehler: Das Gewicht darf nur Ziffern enthalten (Komma als Dezimaltrennzeichen ist erlaubt)." + weightRetry
)

// Weight parses cargo weight in tonnes. A comma is accepted as decimal separator.
func Weight(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return 0, reject(CodeWeightWhitespace,
			"❌ Fehler: Das Gewicht darf keine Leerzeichen enthalten."+weightRetry)
	}

	norm := strings.ReplaceAll(raw, ",", ".")
	if !weightRe.MatchString(norm) {
		return 0, reject(CodeWeightFormat, msgWeightFormat)
	}
	w, err := strconv.ParseFloat(norm, 64)
	if err != nil || math.IsNaN(w) || math.IsInf(w, 0) {
		return 0, reject(CodeWeightFormat, msgWeightFormat)
	}

	if w < MinWeight || w > MaxWeight {
		return 0, reject(CodeWeightRange,
			"❌ Fehler: Das Gewicht muss zwischen 0 und 25 Tonnen liegen."+weightRetry)
	}
	return w, nil
}
