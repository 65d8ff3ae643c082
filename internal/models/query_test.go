package models

import (
	"testing"
)

func TestParseSearchMode(t *testing.T) {
	tests := []struct {
		in      string
		want    SearchMode
		wantErr bool
	}{
		{"", ModeHybrid, false},
		{"keyword", ModeKeyword, false},
		{"semantic", ModeSemantic, false},
		{"hybrid", ModeHybrid, false},
		{"fuzzy", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSearchMode(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseSearchMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseSearchMode(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSearchOptions_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   SearchOptions
		want SearchOptions
	}{
		{
			"defaults",
			SearchOptions{UserID: "u"},
			SearchOptions{UserID: "u", Limit: 10, Mode: ModeHybrid, Collection: CollectionMessages, Threshold: 0.5},
		},
		{
			"caps limit",
			SearchOptions{Limit: 500, Mode: ModeKeyword, Collection: CollectionFacts, Threshold: 0.7},
			SearchOptions{Limit: 100, Mode: ModeKeyword, Collection: CollectionFacts, Threshold: 0.7},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.in
			got.Normalize(10, 100, 0.5)
			if got != tt.want {
				t.Errorf("Normalize() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestConsent_Allows(t *testing.T) {
	c := &Consent{Prompts: true, Screenshots: false, Tools: true}
	if !c.Allows(ScopePrompts) || !c.Allows(ScopeTools) {
		t.Error("expected granted scopes to be allowed")
	}
	if c.Allows(ScopeOutputs) || c.Allows(ScopeScreenshots) {
		t.Error("expected missing scopes to be denied")
	}
	if c.Allows("camera") {
		t.Error("unknown scope must be denied")
	}
	var nilConsent *Consent
	if nilConsent.Allows(ScopePrompts) {
		t.Error("nil consent must deny")
	}
}

func TestScopeForRole(t *testing.T) {
	tests := []struct {
		role  Role
		scope ConsentScope
		gated bool
	}{
		{RoleUser, ScopePrompts, true},
		{RoleAssistant, ScopeOutputs, true},
		{RoleTool, ScopeTools, true},
		{RoleSystem, "", false},
	}
	for _, tt := range tests {
		scope, gated := ScopeForRole(tt.role)
		if scope != tt.scope || gated != tt.gated {
			t.Errorf("ScopeForRole(%q) = %q,%v want %q,%v", tt.role, scope, gated, tt.scope, tt.gated)
		}
	}
}

func TestFactDocument(t *testing.T) {
	f := &Fact{ID: "f1", UserID: "u1", Category: "work", Key: "employer", Value: "Acme"}
	doc := FactDocument(f)
	if doc.Content != "work employer Acme" {
		t.Errorf("Content = %q", doc.Content)
	}
	if doc.Collection != CollectionFacts || doc.UserID != "u1" || doc.ID != "f1" {
		t.Errorf("unexpected doc %+v", doc)
	}
}
