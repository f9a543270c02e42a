package graph

import (
	"reflect"
	"testing"

	"github.com/OFFIS-RIT/threatmap/pkg/common"
)

func TestAcronym(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"Ministry of Foreign Affairs", "MFA"},
		{"United Nations", "UN"},
		{"Monetary Authority of Singapore", "MAS"},
		{"Interpol", "I"},
		{"the agency", ""},
		{"\u00c9lys\u00e9e Palace", "\u00c9P"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			if got := Acronym(tt.text); got != tt.want {
				t.Errorf("Acronym(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func entitiesOf(doc string, names ...string) []common.Entity {
	out := make([]common.Entity, 0, len(names))
	for _, n := range names {
		out = append(out, common.Entity{Text: n, Label: common.LabelOrganization, Score: 0.9, DocumentID: doc})
	}
	return out
}

func TestCollapseAcronyms(t *testing.T) {
	tests := []struct {
		name        string
		entities    []common.Entity
		wantTexts   []string
		wantRemoved map[string]struct{}
	}{
		{
			name:        "acronym of co-resident full form is dropped",
			entities:    entitiesOf("d1", "Ministry of Foreign Affairs", "MFA"),
			wantTexts:   []string{"Ministry of Foreign Affairs"},
			wantRemoved: map[string]struct{}{"MFA": {}},
		},
		{
			name:        "acronym before full form",
			entities:    entitiesOf("d1", "UN", "Reuters", "United Nations"),
			wantTexts:   []string{"Reuters", "United Nations"},
			wantRemoved: map[string]struct{}{"UN": {}},
		},
		{
			name:        "comparison is case-sensitive",
			entities:    entitiesOf("d1", "Ministry of Foreign Affairs", "Mfa"),
			wantTexts:   []string{"Ministry of Foreign Affairs", "Mfa"},
			wantRemoved: map[string]struct{}{},
		},
		{
			name:        "acronym of several full forms is dropped once",
			entities:    entitiesOf("d1", "Monetary Authority of Singapore", "Maritime Authority of Singapore", "MAS"),
			wantTexts:   []string{"Monetary Authority of Singapore", "Maritime Authority of Singapore"},
			wantRemoved: map[string]struct{}{"MAS": {}},
		},
		{
			name: "full form in another document does not count",
			entities: append(
				entitiesOf("d1", "United Nations"),
				entitiesOf("d2", "UN")...,
			),
			wantTexts:   []string{"United Nations", "UN"},
			wantRemoved: map[string]struct{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, removed := CollapseAcronyms(tt.entities)
			if !reflect.DeepEqual(texts(got), tt.wantTexts) {
				t.Errorf("CollapseAcronyms() = %#v, want %#v", texts(got), tt.wantTexts)
			}
			if !reflect.DeepEqual(removed, tt.wantRemoved) {
				t.Errorf("removed = %#v, want %#v", removed, tt.wantRemoved)
			}
		})
	}
}
