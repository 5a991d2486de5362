package severity_test

import (
	"testing"

	"github.com/jonesrussell/feedback-insight/internal/severity"
)

func TestBooster_Boost(t *testing.T) {
	b := severity.NewBooster()

	testCases := []struct {
		name string
		text string
		want int
	}{
		{"no keywords", "everything works great, love the new design", 0},
		{"empty text", "", 0},
		{"single weak keyword", "there is a small issue with the margins", 5},
		{"single strong keyword", "the app crash happens on login", 40},
		{"mid tier keyword", "requests keep hitting a timeout", 20},
		{"case insensitive", "CRITICAL regression in the exporter", 30},
		{"substring match", "the page is unbearably slower now", 15},
		{"diacritics stripped", "la aplicación entra en pánico al abrir", 40},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := b.Boost(tc.text); got != tc.want {
				t.Errorf("Boost(%q) = %d, want %d", tc.text, got, tc.want)
			}
		})
	}
}

// Only the strongest match counts: stacking keywords must not sum.
func TestBooster_SingleStrongestMatch(t *testing.T) {
	b := severity.NewBooster()

	both := b.Boost("app crash, plus a minor issue with fonts")
	crashOnly := b.Boost("app crash on startup")

	if both != crashOnly {
		t.Errorf("combined text boosted %d, crash-only boosted %d; want equal", both, crashOnly)
	}
	if both != 40 {
		t.Errorf("got %d, want 40", both)
	}
}
