package wire

import "testing"

func TestMultiLingualString_EqualIsStructural(t *testing.T) {
	a := MultiLingualString{"en": "Hello", "de": "Hallo"}
	b := MultiLingualString{"de": "Hallo", "en": "Hello"}
	c := MultiLingualString{"en": "Hello"}

	if !a.Equal(b) {
		t.Fatalf("expected structurally equal maps with different insertion order to be equal")
	}
	if a.Equal(c) {
		t.Fatalf("expected maps of different size to be unequal")
	}
	if a.En() != "Hello" {
		t.Fatalf("expected En() to return the en entry, got %q", a.En())
	}

	var nilMap MultiLingualString
	if nilMap.En() != "" {
		t.Fatalf("expected En() on a nil map to return empty string")
	}
}

func TestRef_Resolved(t *testing.T) {
	unresolved := Ref{ID: 7}
	if unresolved.Resolved() {
		t.Fatalf("expected a Ref with no Name to report unresolved")
	}

	resolved := Ref{ID: 7, Name: MultiLingualString{"en": "Track"}}
	if !resolved.Resolved() {
		t.Fatalf("expected a Ref with a Name to report resolved")
	}
}
