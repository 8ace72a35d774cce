package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"book-trends/models"
	"book-trends/utils"
)

func raw(row int, values map[string]any) models.RawRecord {
	base := map[string]any{
		models.ColDate:        "2024-03-01",
		models.ColPosition:    int64(1),
		models.ColTitle:       "Dom Casmurro",
		models.ColAuthor:      "Machado de Assis",
		models.ColPrice:       39.9,
		models.ColNationality: "Brasil",
		models.ColGender:      "Masculino",
		models.ColGenre:       "Romance",
		models.ColPages:       int64(256),
		models.ColYear:        int64(1899),
	}
	for k, v := range values {
		base[k] = v
	}
	return models.RawRecord{Row: row, Values: base}
}

func TestCleanerParsePrice(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		raw    any
		want   string
		wantOK bool
	}{
		{"R$ 39,90", "39.9", true},
		{"39.90", "39.9", true},
		{"1.234,56", "1234.56", true},
		{"1,234.56", "1234.56", true},
		{int64(42), "42", true},
		{12.5, "12.5", true},
		{"", "0", false},
		{"grátis", "0", false},
		{nil, "0", false},
	}

	for _, tt := range tests {
		got, ok := c.parsePrice(tt.raw)
		if ok != tt.wantOK {
			t.Errorf("parsePrice(%v) ok = %v; want %v", tt.raw, ok, tt.wantOK)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("parsePrice(%v) = %s; want %s", tt.raw, got, tt.want)
		}
	}
}

func TestParseDate(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []any{
		"2024-03-01",
		"2024-03-01 13:45:00",
		"2024-03-01T13:45:00Z",
		"01/03/2024",
		time.Date(2024, 3, 1, 18, 0, 0, 0, time.UTC),
		[]byte("2024-03-01"),
	}
	for _, in := range tests {
		got, ok := parseDate(in)
		if !ok || !got.Equal(want) {
			t.Errorf("parseDate(%v) = %v, %v; want %v", in, got, ok, want)
		}
	}

	if _, ok := parseDate("ontem"); ok {
		t.Error("parseDate(ontem) should fail")
	}
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		raw    any
		want   int
		wantOK bool
	}{
		{int64(7), 7, true},
		{7.0, 7, true},
		{"12", 12, true},
		{"12.0", 12, true},
		{7.5, 0, false},
		{"abc", 0, false},
		{nil, 0, false},
	}
	for _, tt := range tests {
		got, ok := parseInt(tt.raw)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseInt(%v) = %d, %v; want %d, %v", tt.raw, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestNormaliseCategory(t *testing.T) {
	tests := map[string]string{
		"  Reino   Unido ": "Reino Unido",
		"nan":              "",
		"None":             "",
		"<NA>":             "",
		"":                 "",
		"Brasil":           "Brasil",
	}
	for in, want := range tests {
		if got := normaliseCategory(in); got != want {
			t.Errorf("normaliseCategory(%q) = %q; want %q", in, got, want)
		}
	}
}

func TestCleanerBuildsRecord(t *testing.T) {
	c := NewCleaner(newTestLogger())

	got := c.Clean([]models.RawRecord{raw(1, map[string]any{
		models.ColTitle:       "  Dom   Casmurro ",
		models.ColNationality: nil,
	})})
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}

	r := got[0]
	if r.Title != "Dom Casmurro" {
		t.Errorf("Title = %q; want %q", r.Title, "Dom Casmurro")
	}
	if r.AuthorNationality != "" {
		t.Errorf("AuthorNationality = %q; want absent", r.AuthorNationality)
	}
	if r.RankPosition != 1 || r.PageCount != 256 || r.PublicationYear != 1899 {
		t.Errorf("unexpected numeric fields: %+v", r)
	}
	if r.Price.StringFixed(2) != "39.90" {
		t.Errorf("Price = %s; want 39.90", r.Price.StringFixed(2))
	}
}

func TestCleanerDropsInvalidRows(t *testing.T) {
	c := NewCleaner(newTestLogger())

	tests := []struct {
		name   string
		values map[string]any
	}{
		{"rank zero", map[string]any{models.ColPosition: int64(0)}},
		{"rank above 100", map[string]any{models.ColPosition: int64(101)}},
		{"negative price", map[string]any{models.ColPrice: -1.0}},
		{"missing price", map[string]any{models.ColPrice: nil}},
		{"bad date", map[string]any{models.ColDate: "sem data"}},
	}

	for _, tt := range tests {
		got := c.Clean([]models.RawRecord{raw(1, tt.values)})
		if len(got) != 0 {
			t.Errorf("%s: expected row to be dropped, got %+v", tt.name, got)
		}
	}
}

func TestCleanerDropsDuplicateRank(t *testing.T) {
	c := NewCleaner(newTestLogger())

	got := c.Clean([]models.RawRecord{
		raw(1, map[string]any{models.ColTitle: "A"}),
		raw(2, map[string]any{models.ColTitle: "B"}),
		raw(3, map[string]any{models.ColTitle: "C", models.ColDate: "2024-03-02"}),
	})
	if len(got) != 2 {
		t.Fatalf("expected 2 records after dropping duplicate rank, got %d", len(got))
	}
	if got[0].Title != "A" || got[1].Title != "C" {
		t.Errorf("kept %q and %q; want A and C", got[0].Title, got[1].Title)
	}
}

func TestCleanerUnknownPagesAndYear(t *testing.T) {
	c := NewCleaner(newTestLogger())

	got := c.Clean([]models.RawRecord{raw(1, map[string]any{
		models.ColPages: nil,
		models.ColYear:  "desconhecido",
	})})
	if len(got) != 1 {
		t.Fatalf("expected 1 record, got %d", len(got))
	}
	if got[0].PageCount != 0 || got[0].PublicationYear != 0 {
		t.Errorf("expected unknown pages/year as 0, got %d/%d", got[0].PageCount, got[0].PublicationYear)
	}
}

func TestCleanerReportsOnlyFirstLoadAtInfo(t *testing.T) {
	var buf bytes.Buffer
	c := NewCleaner(utils.NewWriterLogger(&buf, utils.LevelInfo))
	rows := []models.RawRecord{
		raw(1, nil),
		raw(2, map[string]any{models.ColPosition: int64(0)}),
	}

	c.Clean(rows)
	first := buf.String()
	if !strings.Contains(first, "Cleaned 2 → 1 records") {
		t.Errorf("first load should log the summary at INFO, got %q", first)
	}
	if !strings.Contains(first, "Dropping row 2") {
		t.Errorf("first load should warn about dropped rows, got %q", first)
	}

	buf.Reset()
	if got := c.Clean(rows); len(got) != 1 {
		t.Fatalf("reload cleaned %d records; want 1", len(got))
	}
	if buf.Len() != 0 {
		t.Errorf("reload should only log at DEBUG, got %q", buf.String())
	}
}
