package services

import (
	"reflect"
	"testing"

	"book-trends/models"
)

func filterFixture() *models.RecordSet {
	return models.NewRecordSet([]models.Record{
		book(day1, 1, "10", withNationality("Brasil"), withGender("Feminino")),
		book(day2, 1, "10", withNationality("Estados Unidos"), withGender("Masculino")),
		book(day2, 2, "10", withNationality("Brasil"), withGender("Feminino")),
		book(day2, 3, "10", withNationality(""), withGender("")),
		book(day3, 1, "10", withNationality("Japão"), withGender("Masculino")),
	})
}

func TestOptions(t *testing.T) {
	got := Options(filterFixture())

	want := models.FilterOptions{
		Dates:         []string{"2024-03-03", "2024-03-02", "2024-03-01"},
		Genders:       []string{"Feminino", "Masculino"},
		Nationalities: []string{"Brasil", "Estados Unidos", "Japão"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Options = %+v; want %+v", got, want)
	}
}

func TestOptionsEmptySet(t *testing.T) {
	got := Options(models.NewRecordSet(nil))
	if got.Dates == nil || len(got.Dates) != 0 || len(got.Genders) != 0 || len(got.Nationalities) != 0 {
		t.Errorf("expected empty non-nil options, got %+v", got)
	}
}

func TestDefaultDate(t *testing.T) {
	if got := DefaultDate(filterFixture()); got == nil || !got.Equal(day2) {
		t.Errorf("DefaultDate = %v; want second most recent %v", got, day2)
	}

	single := models.NewRecordSet([]models.Record{book(day1, 1, "10")})
	if got := DefaultDate(single); got == nil || !got.Equal(day1) {
		t.Errorf("DefaultDate(single) = %v; want %v", got, day1)
	}

	if got := DefaultDate(models.NewRecordSet(nil)); got != nil {
		t.Errorf("DefaultDate(empty) = %v; want nil", got)
	}
}

func TestResolveKeepsExplicitDate(t *testing.T) {
	c := Resolve(filterFixture(), models.Criteria{Date: ptr(day3)})
	if c.Date == nil || !c.Date.Equal(day3) {
		t.Errorf("Resolve changed an explicit date: %v", c.Date)
	}
}

func TestApply(t *testing.T) {
	set := filterFixture()

	tests := []struct {
		name  string
		c     models.Criteria
		ranks []int
	}{
		{"date only", models.Criteria{Date: ptr(day2)}, []int{1, 2, 3}},
		{"gender", models.Criteria{Date: ptr(day2), Gender: ptr("Feminino")}, []int{2}},
		{"nationality", models.Criteria{Date: ptr(day2), Nationality: ptr("Estados Unidos")}, []int{1}},
		{"no match", models.Criteria{Date: ptr(day2), Gender: ptr("Outro")}, []int{}},
		{"unset date", models.Criteria{}, []int{}},
	}

	for _, tt := range tests {
		got := Apply(set, tt.c)
		ranks := make([]int, 0, len(got))
		for _, r := range got {
			ranks = append(ranks, r.RankPosition)
		}
		if !reflect.DeepEqual(ranks, tt.ranks) {
			t.Errorf("%s: ranks = %v; want %v", tt.name, ranks, tt.ranks)
		}
	}
}

func TestApplySubsetProperty(t *testing.T) {
	set := filterFixture()
	c := models.Criteria{Date: ptr(day2), Gender: ptr("Masculino")}

	for _, r := range Apply(set, c) {
		if !r.CollectionDate.Equal(day2) || r.AuthorGender != "Masculino" {
			t.Errorf("record outside the selection: %+v", r)
		}
	}
}
