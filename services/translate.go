package services

// Translator rewrites Japanese display names for alert text. Lookups fall
// through to the input, so an incomplete dictionary degrades to the site's
// own names rather than failing.
type Translator struct {
	names map[string]string
}

// NewTranslator creates a Translator over the given dictionary.
func NewTranslator(names map[string]string) *Translator {
	copied := make(map[string]string, len(names))
	for k, v := range names {
		copied[k] = v
	}
	return &Translator{names: copied}
}

// Lookup returns the translated name, or the input unchanged when no entry
// exists. Safe on a nil Translator.
func (t *Translator) Lookup(name string) string {
	if t == nil {
		return name
	}
	if v, ok := t.names[name]; ok {
		return v
	}
	return name
}

// DefaultTranslator covers the major terminals the tracked routes serve.
func DefaultTranslator() *Translator {
	return NewTranslator(map[string]string{
		"東京駅":      "Tokyo Station",
		"新宿":       "Shinjuku",
		"バスタ新宿":    "Busta Shinjuku",
		"大阪駅":      "Osaka Station",
		"なんば":      "Namba",
		"名古屋駅":     "Nagoya Station",
		"京都駅":      "Kyoto Station",
		"仙台駅":      "Sendai Station",
		"金沢駅":      "Kanazawa Station",
		"広島駅":      "Hiroshima Station",
		"河口湖駅":     "Kawaguchiko Station",
		"富士山五合目":   "Mt. Fuji 5th Station",
		"ディズニーランド": "Tokyo Disneyland",
		"成田空港":     "Narita Airport",
		"羽田空港":     "Haneda Airport",
	})
}
