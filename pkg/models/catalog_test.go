package models

import "testing"

func TestLoadCatalog(t *testing.T) {
	c, err := LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog() failed: %v", err)
	}

	if len(c.ScentFamilies) != 5 {
		t.Errorf("expected 5 scent families, got %d", len(c.ScentFamilies))
	}
	if !Contains(c.ScentFamilies, "Woody") {
		t.Error("expected Woody in scent families")
	}
	if len(c.ProjectionPreferences) != 3 {
		t.Errorf("expected 3 projection preferences, got %d", len(c.ProjectionPreferences))
	}
	if !Contains(c.BudgetRanges, "££ (Designer)") {
		t.Error("expected designer tier in budget ranges")
	}
	if len(c.PreferredNotes) != 16 {
		t.Errorf("expected 16 preferred notes, got %d", len(c.PreferredNotes))
	}
}

func TestUserPreferences_Clone(t *testing.T) {
	p := UserPreferences{
		ScentFamily: []string{"Woody", "Fresh"},
		LovedNotes:  []string{"Oud"},
	}
	c := p.Clone()
	c.ScentFamily[0] = "Floral"
	c.LovedNotes = append(c.LovedNotes, "Rose")

	if p.ScentFamily[0] != "Woody" {
		t.Error("clone shares backing array with original")
	}
	if len(p.LovedNotes) != 1 {
		t.Error("clone mutated original loved notes")
	}
}
