package entity

import "testing"

func TestParseRegulation(t *testing.T) {
	t.Run("CanonicalNames", func(t *testing.T) {
		cases := map[string]Regulation{
			"GDPR":    GDPR,
			"HIPAA":   HIPAA,
			"PCI DSS": PCIDSS,
		}
		for input, want := range cases {
			got, ok := ParseRegulation(input)
			if !ok {
				t.Fatalf("ParseRegulation(%q) not recognized", input)
			}
			if got != want {
				t.Errorf("ParseRegulation(%q) = %q, want %q", input, got, want)
			}
		}
	})

	t.Run("LooseNames", func(t *testing.T) {
		cases := map[string]Regulation{
			"pci-dss":               PCIDSS,
			"PCI DSS Req 3.4":       PCIDSS,
			"GDPR Art. 4(5)":        GDPR,
			"HIPAA Privacy Rule":    HIPAA,
			"gdpr and related laws": GDPR,
		}
		for input, want := range cases {
			got, ok := ParseRegulation(input)
			if !ok || got != want {
				t.Errorf("ParseRegulation(%q) = (%q, %t), want %q", input, got, ok, want)
			}
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		if _, ok := ParseRegulation("CCPA"); ok {
			t.Error("CCPA should not be recognized")
		}
		if _, ok := ParseRegulation(""); ok {
			t.Error("Empty string should not be recognized")
		}
	})
}

func TestParseSensitivity(t *testing.T) {
	cases := map[string]SensitivityLevel{
		"low":      SensitivityLow,
		"MEDIUM":   SensitivityMedium,
		" high ":   SensitivityHigh,
		"critical": SensitivityCritical,
		"unknown":  SensitivityHigh,
		"":         SensitivityHigh,
	}
	for input, want := range cases {
		if got := ParseSensitivity(input); got != want {
			t.Errorf("ParseSensitivity(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestDetectedOverlaps(t *testing.T) {
	a := Detected{Start: 0, End: 10}

	cases := []struct {
		name string
		b    Detected
		want bool
	}{
		{"Contained", Detected{Start: 2, End: 8}, true},
		{"PartialLeft", Detected{Start: 8, End: 15}, true},
		{"Adjacent", Detected{Start: 10, End: 20}, false},
		{"Disjoint", Detected{Start: 15, End: 20}, false},
		{"Identical", Detected{Start: 0, End: 10}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := a.Overlaps(tc.b); got != tc.want {
				t.Errorf("Overlaps(%+v) = %t, want %t", tc.b, got, tc.want)
			}
			if got := tc.b.Overlaps(a); got != tc.want {
				t.Errorf("Overlaps is not symmetric for %+v", tc.b)
			}
		})
	}
}

func TestClassifiedHasRegulation(t *testing.T) {
	c := Classified{Regulations: []Regulation{GDPR, HIPAA}}
	if !c.HasRegulation(GDPR) {
		t.Error("GDPR should be present")
	}
	if c.HasRegulation(PCIDSS) {
		t.Error("PCI DSS should not be present")
	}
}
