package langsys

import (
	"encoding/json"
	"testing"
)

const sampleMap = `{
	"nav": {
		"aa52fb7a75961b07cbebad01e461fc67": {"Home": "Inicio", "About": "Acerca de"},
		"Contact": "Contacto",
		"Blog": "",
		"Shop": null
	},
	"__uncategorized__": {"Welcome": "Bienvenido"},
	"empty": []
}`

func decodeSample(t *testing.T) TranslationMap {
	t.Helper()
	var m TranslationMap
	if err := json.Unmarshal([]byte(sampleMap), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	return m
}

func TestTranslationMap_Unmarshal(t *testing.T) {
	m := decodeSample(t)

	block := m["nav"]["aa52fb7a75961b07cbebad01e461fc67"]
	if block.Kind != EntryBlock {
		t.Fatalf("expected block entry, got %v", block.Kind)
	}
	if block.Block["About"] != "Acerca de" {
		t.Errorf("unexpected block translation: %q", block.Block["About"])
	}

	if e := m["nav"]["Contact"]; e.Kind != EntryPhrase || e.Text != "Contacto" {
		t.Errorf("unexpected phrase entry: %+v", e)
	}

	if e := m["nav"]["Shop"]; e.Kind != EntryPhrase || e.Text != "" {
		t.Errorf("null should decode to an empty phrase, got %+v", e)
	}

	if len(m["empty"]) != 0 {
		t.Errorf("empty list category should decode to an empty category")
	}
}

func TestTranslationMap_UnmarshalEmptyList(t *testing.T) {
	var m TranslationMap
	if err := json.Unmarshal([]byte(`[]`), &m); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if m == nil || len(m) != 0 {
		t.Errorf("expected empty map, got %v", m)
	}
}

func TestTranslationMap_Lookup(t *testing.T) {
	m := decodeSample(t)

	tests := []struct {
		category string
		text     string
		expected string
	}{
		{"nav", "Contact", "Contacto"},
		{"nav", "Blog", "Blog"},   // empty translation
		{"nav", "Shop", "Shop"},   // null translation
		{"nav", "Missing", "Missing"},
		{"nav", "aa52fb7a75961b07cbebad01e461fc67", "aa52fb7a75961b07cbebad01e461fc67"}, // block, not phrase
		{"other", "Contact", "Contact"},
		{UncategorizedCategory, "Welcome", "Bienvenido"},
	}

	for _, tt := range tests {
		if got := m.Lookup(tt.category, tt.text); got != tt.expected {
			t.Errorf("Lookup(%q, %q) = %q, want %q", tt.category, tt.text, got, tt.expected)
		}
	}
}

func TestTranslationMap_Block(t *testing.T) {
	m := decodeSample(t)

	block, ok := m.Block("nav", "aa52fb7a75961b07cbebad01e461fc67")
	if !ok {
		t.Fatal("expected block")
	}
	if block.Lookup("Home") != "Inicio" {
		t.Errorf("unexpected block lookup: %q", block.Lookup("Home"))
	}
	if block.Lookup("Unknown") != "Unknown" {
		t.Errorf("block lookup miss should fall back to original")
	}

	if _, ok := m.Block("nav", "Contact"); ok {
		t.Error("a phrase leaf must not be returned as a block")
	}

	m.SetBlock("nav", "empty-block", BlockTranslations{})
	if _, ok := m.Block("nav", "empty-block"); ok {
		t.Error("an empty block must not be returned")
	}
	if !m.HasBlock("nav", "empty-block") {
		t.Error("an empty block is still known")
	}
}

func TestTranslationMap_Has(t *testing.T) {
	m := decodeSample(t)

	if !m.HasPhrase("nav", "Shop") {
		t.Error("untranslated phrase should be known")
	}
	if m.HasPhrase("nav", "aa52fb7a75961b07cbebad01e461fc67") {
		t.Error("block id is not a phrase")
	}
	if m.HasBlock("nav", "Contact") {
		t.Error("phrase is not a block")
	}
}

func TestTranslationMap_MarshalRoundTrip(t *testing.T) {
	m := TranslationMap{}
	m.SetPhrase("nav", "Home", "Inicio")
	m.SetBlock("nav", "id1", BlockTranslations{"A": "B"})

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	expected := `{"nav":{"Home":"Inicio","id1":{"A":"B"}}}`
	if string(data) != expected {
		t.Errorf("marshal = %s, want %s", data, expected)
	}
}

func TestTranslationMap_Merge(t *testing.T) {
	m := TranslationMap{}
	m.SetPhrase("a", "x", "1")

	other := TranslationMap{}
	other.SetPhrase("a", "x", "2")
	other.SetPhrase("b", "y", "3")

	m.Merge(other)

	if m.Lookup("a", "x") != "2" || m.Lookup("b", "y") != "3" {
		t.Errorf("unexpected merge result: %v", m)
	}
	if cats := m.Categories(); len(cats) != 2 || cats[0] != "a" || cats[1] != "b" {
		t.Errorf("unexpected categories: %v", cats)
	}
}

func TestRegisteredItems(t *testing.T) {
	var r RegisteredItems
	r.Add([]string{"Hello", "Hello"}, []string{"id1"})
	r.Add([]string{"World", "Hello"}, []string{"id1", "id2"})

	if len(r.Phrases) != 2 || len(r.ContentBlocks) != 2 {
		t.Errorf("unexpected registered items: %+v", r)
	}
	if !r.HasPhrase("World") || r.HasPhrase("Missing") {
		t.Error("HasPhrase mismatch")
	}
	if !r.HasBlock("id2") || r.HasBlock("id3") {
		t.Error("HasBlock mismatch")
	}
}

func TestCategoryOr(t *testing.T) {
	if CategoryOr("nav", "page") != "nav" {
		t.Error("explicit category should win")
	}
	if CategoryOr("", "page") != "page" {
		t.Error("fallback should be used")
	}
	if CategoryOr("", "") != UncategorizedCategory {
		t.Error("uncategorized should be the last resort")
	}
}
