package mode

import "testing"

func TestParse(t *testing.T) {
	cases := map[string]Mode{
		"engineering": Engineering,
		"research":    Research,
		"":            Engineering,
		"Research":    Engineering,
		"design":      Engineering,
	}
	for in, want := range cases {
		if got := Parse(in); got != want {
			t.Errorf("Parse(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestToggle(t *testing.T) {
	if Engineering.Toggle() != Research {
		t.Error("engineering should toggle to research")
	}
	if Research.Toggle() != Engineering {
		t.Error("research should toggle to engineering")
	}
	if Mode("bogus").Toggle() != Engineering {
		t.Error("unknown mode should toggle to engineering")
	}
	if Mode("bogus").Valid() {
		t.Error("unknown mode must not be valid")
	}
}
