package services

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"

	"book-trends/models"
)

// Option fields searchable through SearchOptions.
const (
	FieldDate        = "date"
	FieldGender      = "gender"
	FieldNationality = "nationality"
)

// SearchOptions ranks the values of one selection control against a typed
// query, best match first. It only narrows what the control offers;
// filtering itself stays exact. A blank query returns every value.
func SearchOptions(opts models.FilterOptions, field, query string, limit int) ([]string, error) {
	var values []string
	switch field {
	case FieldDate:
		values = opts.Dates
	case FieldGender:
		values = opts.Genders
	case FieldNationality:
		values = opts.Nationalities
	default:
		return nil, fmt.Errorf("services: unknown option field %q", field)
	}

	query = strings.TrimSpace(query)
	var out []string
	if query == "" {
		out = append(out, values...)
	} else {
		for _, m := range fuzzy.Find(query, values) {
			out = append(out, m.Str)
		}
	}

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
