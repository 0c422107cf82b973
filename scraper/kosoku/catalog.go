package kosoku

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"kosoku-tracker/models"
)

// ParseCatalog streams a pulldown XML response into ordered catalog entries.
// The format is flat repeating <id>/<name>/<switchChangeableFlg> elements: a
// new <id> flushes the tuple being accumulated, and the trailing tuple is
// flushed at end of document. A well-formed but empty document yields an
// empty list.
func ParseCatalog(xmlText string) ([]models.CatalogEntry, error) {
	dec := xml.NewDecoder(strings.NewReader(xmlText))

	var entries []models.CatalogEntry
	var current *models.CatalogEntry
	var field string

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: catalog xml: %v", ErrParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "id":
				if current != nil {
					entries = append(entries, *current)
				}
				current = &models.CatalogEntry{}
				field = "id"
			case "name":
				field = "name"
			case "switchChangeableFlg":
				field = "flag"
			default:
				field = ""
			}
		case xml.CharData:
			if current == nil || field == "" {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			switch field {
			case "id":
				current.ID += text
			case "name":
				current.Name += text
			case "flag":
				current.SwitchChangeable = text == "1"
			}
		case xml.EndElement:
			field = ""
		}
	}

	if current != nil {
		entries = append(entries, *current)
	}
	return entries, nil
}
