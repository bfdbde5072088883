package importer

import (
	"fmt"
	"os"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

var lower = cases.Lower(language.Und)

// builtinAliases folds header spellings seen in HR exports onto the keys the
// importer reads.
var builtinAliases = map[string]string{
	"termination/resignationDate":   KeyTerminationDate,
	"termination/resignationReason": KeyTerminationReason,
	"terminationDate":               KeyTerminationDate,
	"terminationReason":             KeyTerminationReason,
	"registerName":                  KeyRegisterName,
	"sourceId":                      KeySourceID,
	"idPlaceOfIssue":                KeyIDPlaceOfIssue,
	"placeOfBirth":                  KeyPlaceOfBirth,
	"emailAddress":                  KeyEmail,
	"code":                          KeyEmployeeCode,
}

// CamelCase converts a sheet header: words are split on single spaces, empty
// words are dropped, the first word is lower-cased and every later word gets
// an upper-case first letter with the rest lower-cased.
func CamelCase(header string) string {
	words := strings.Split(header, " ")
	var b strings.Builder
	for _, word := range words {
		if word == "" {
			continue
		}
		if b.Len() == 0 {
			b.WriteString(lower.String(word))
			continue
		}
		first, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(first))
		b.WriteString(lower.String(word[size:]))
	}
	return b.String()
}

// LoadAliases reads a YAML mapping of camelCased header → importer key.
func LoadAliases(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read header aliases: %w", err)
	}
	aliases := map[string]string{}
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("parse header aliases %s: %w", path, err)
	}
	return aliases, nil
}

// canonicalKey camelCases header and applies custom then built-in aliases.
func canonicalKey(header string, aliases map[string]string) string {
	key := CamelCase(strings.TrimSpace(header))
	if alias, ok := aliases[key]; ok {
		return alias
	}
	if alias, ok := builtinAliases[key]; ok {
		return alias
	}
	return key
}
