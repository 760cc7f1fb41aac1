package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHeight(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"170", "170 cm"},
		{"95", "95 cm"},
		{"5'8", "5'8"},
		{"170 cm", "170 cm"},
		{"1700", "1700"},
		{"", ""},
		{"tall", "tall"},
	}
	for _, tc := range cases {
		if got := Height(tc.in); got != tc.want {
			t.Errorf("Height(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestPhone(t *testing.T) {
	got, ok := Phone("(555) 123-4567")
	if !ok || got != "+5551234567" {
		t.Fatalf("Phone formatted input: got %q ok=%v", got, ok)
	}

	got, ok = Phone("+44 20 7946 0958")
	if !ok || got != "+442079460958" {
		t.Fatalf("Phone international input: got %q ok=%v", got, ok)
	}

	if _, ok := Phone("123"); ok {
		t.Fatal("expected short number to be invalid")
	}

	if _, ok := Phone("12345678901234567890"); ok {
		t.Fatal("expected overlong number to be invalid")
	}
}

func TestCityList(t *testing.T) {
	got := CityList("Kabul, Herat , ,Mazar-i-Sharif,")
	want := []string{"Kabul", "Herat", "Mazar-i-Sharif"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("CityList mismatch (-want +got):\n%s", diff)
	}

	if got := CityList(""); len(got) != 0 {
		t.Fatalf("expected empty result, got %v", got)
	}
}

func TestPruneEmpty(t *testing.T) {
	draft := map[string]any{
		"a": "",
		"b": "x",
		"c": []string{},
		"d": nil,
		"e": "   ",
		"f": []any{},
		"g": []string{"one"},
		"h": 0,
	}
	want := map[string]any{
		"b": "x",
		"g": []string{"one"},
		"h": 0,
	}
	if diff := cmp.Diff(want, PruneEmpty(draft)); diff != "" {
		t.Fatalf("PruneEmpty mismatch (-want +got):\n%s", diff)
	}
}
