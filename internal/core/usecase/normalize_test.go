package usecase

import "testing"

func TestNormalizeTextFoldsCaseAndDiacritics(t *testing.T) {
	a, ok := NormalizeText("INTIMAÇÃO   eletrônica")
	if !ok {
		t.Fatalf("expected key")
	}
	b, _ := NormalizeText("intimacao eletronica")
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
}

func TestNormalizeTextIsIdempotent(t *testing.T) {
	for _, input := range []string{"Sentença Publicada", " DECISÃO  interlocutória ", "Citação"} {
		once, ok := NormalizeText(input)
		if !ok {
			t.Fatalf("expected key for %q", input)
		}
		twice, _ := NormalizeText(once)
		if once != twice {
			t.Fatalf("normalize not idempotent for %q: %q vs %q", input, once, twice)
		}
	}
}

func TestNormalizeTextRejectsBlank(t *testing.T) {
	for _, input := range []string{"", "   ", "\t\n"} {
		if key, ok := NormalizeText(input); ok {
			t.Fatalf("expected no key for %q, got %q", input, key)
		}
	}
}
