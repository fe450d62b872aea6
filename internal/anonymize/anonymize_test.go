package anonymize

import (
	"regexp"
	"strings"
	"testing"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/strategy"
)

func TestMaskEmail(t *testing.T) {
	cases := map[string]string{
		"jsmith@example.com": "j***h@example.com",
		"ab@example.com":     "a*@example.com",
		"a@example.com":      "a*@example.com",
		"not-an-email":       "not-an-email",
	}
	for input, want := range cases {
		if got := MaskEmail(input); got != want {
			t.Errorf("MaskEmail(%q) = %q, want %q", input, got, want)
		}
	}

	t.Run("DomainPreserved", func(t *testing.T) {
		masked := MaskEmail("maria.gonzalez@hospital.cl")
		if !strings.HasSuffix(masked, "@hospital.cl") {
			t.Errorf("Domain not preserved: %q", masked)
		}
		if !regexp.MustCompile(`^m\*+z@hospital\.cl$`).MatchString(masked) {
			t.Errorf("Unexpected mask shape: %q", masked)
		}
	})
}

func TestMaskPhone(t *testing.T) {
	masked := MaskPhone("+56 9 1234 5555")
	if !strings.HasSuffix(masked, "5555") {
		t.Errorf("Last 4 digits not preserved: %q", masked)
	}
	if !strings.HasPrefix(masked, "+") {
		t.Errorf("Prefix marker missing: %q", masked)
	}
	if strings.Contains(masked, "1234") {
		t.Errorf("Middle digits leaked: %q", masked)
	}

	if got := MaskPhone("123"); got != "****123" {
		t.Errorf("Short phone = %q, want ****123", got)
	}
}

func TestTruncatePAN(t *testing.T) {
	got := TruncatePAN("4111 1111 1111 1111")
	if got != "************1111" {
		t.Errorf("TruncatePAN = %q", got)
	}
	if strings.Contains(got, "4111 ") {
		t.Errorf("Leading digits leaked: %q", got)
	}
}

func TestTokenize(t *testing.T) {
	a := Tokenize("12.345.678-5", "rut_chile")
	b := Tokenize("12.345.678-5", "rut_chile")
	if a != b {
		t.Errorf("Tokenize not deterministic: %q vs %q", a, b)
	}
	if !strings.HasPrefix(a, "TOKEN_RUT_CHILE_") {
		t.Errorf("Token shape = %q", a)
	}
	if len(a) != len("TOKEN_RUT_CHILE_")+8 {
		t.Errorf("Token hash not 8 hex chars: %q", a)
	}
	if Tokenize("12.345.678-5", "rut_chile") == Tokenize("9.876.543-2", "rut_chile") {
		t.Error("Different values produced the same token")
	}
}

func TestPseudonymizer(t *testing.T) {
	t.Run("StablePerValue", func(t *testing.T) {
		p := NewPseudonymizer("Subject")
		first := p.Label("Juan Perez")
		if first != "Subject-001" {
			t.Errorf("First label = %q, want Subject-001", first)
		}
		if p.Label("Maria Silva") != "Subject-002" {
			t.Error("Second distinct value should get Subject-002")
		}
		if p.Label("Juan Perez") != first {
			t.Error("Repeated value should reuse its label")
		}
	})

	t.Run("CaseAndSpaceInsensitiveKey", func(t *testing.T) {
		p := NewPseudonymizer("Subject")
		a := p.Label("Juan Perez")
		b := p.Label("  JUAN PEREZ ")
		if a != b {
			t.Errorf("Case variants got different labels: %q vs %q", a, b)
		}
	})

	t.Run("FreshTablePerInstance", func(t *testing.T) {
		a := NewPseudonymizer("Subject").Label("Juan Perez")
		b := NewPseudonymizer("Subject").Label("Maria Silva")
		if a != "Subject-001" || b != "Subject-001" {
			t.Errorf("Counters leaked across instances: %q, %q", a, b)
		}
	})

	t.Run("EmptyPrefixDefaults", func(t *testing.T) {
		if got := NewPseudonymizer("").Label("x"); got != "Subject-001" {
			t.Errorf("Default prefix label = %q", got)
		}
	})
}

func TestGeneralize(t *testing.T) {
	t.Run("Dates", func(t *testing.T) {
		if got := GeneralizeDate("15/03/2024"); got != "2024" {
			t.Errorf("DMY date = %q, want 2024", got)
		}
		if got := GeneralizeDate("2024-03-15"); got != "2024" {
			t.Errorf("YMD date = %q, want 2024", got)
		}
		if got := GeneralizeDate("March 15th"); got != "March 15th" {
			t.Errorf("Unrecognized date changed: %q", got)
		}
	})

	t.Run("Addresses", func(t *testing.T) {
		if got := GeneralizeAddress("Avenida Las Condes 1234, Santiago, Chile"); got != "Santiago, Chile" {
			t.Errorf("Chile address = %q", got)
		}
		if got := GeneralizeAddress("Calle 72 #10-34, Bogotá, Colombia"); got != "Bogotá, Colombia" {
			t.Errorf("Colombia address = %q", got)
		}
		if got := GeneralizeAddress("221B Baker Street, London"); got != "[LOCATION REDACTED]" {
			t.Errorf("Unknown address = %q", got)
		}
	})
}

func classified(value, entityType string, start int) entity.Classified {
	return entity.Classified{
		Value: value,
		Type:  entityType,
		Start: start,
		End:   start + len(value),
	}
}

func TestFilterOverlaps(t *testing.T) {
	t.Run("LargestSpanWins", func(t *testing.T) {
		entities := []entity.Classified{
			classified("1234 5555", "phone", 5),
			classified("4111 1234 5555 9999", "credit_card", 0),
		}
		out := FilterOverlaps(entities)
		if len(out) != 1 {
			t.Fatalf("Expected 1 survivor, got %d", len(out))
		}
		if out[0].Type != "credit_card" {
			t.Errorf("Survivor = %q, want credit_card", out[0].Type)
		}
	})

	t.Run("NoOverlapAfterFilter", func(t *testing.T) {
		entities := []entity.Classified{
			classified("aaaa", "a", 0),
			classified("bbbbbb", "b", 2),
			classified("cc", "c", 6),
			classified("dddd", "d", 20),
		}
		out := FilterOverlaps(entities)
		for i := 0; i < len(out); i++ {
			for k := i + 1; k < len(out); k++ {
				if out[i].Overlaps(out[k]) {
					t.Fatalf("Overlap survived filtering: %+v and %+v", out[i], out[k])
				}
			}
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if out := FilterOverlaps(nil); out != nil {
			t.Errorf("Expected nil for empty input, got %v", out)
		}
	})
}

func TestRun(t *testing.T) {
	log := logger.Nop()

	t.Run("BackToFrontSplicing", func(t *testing.T) {
		text := "Mail a@b.com then call +56 9 1234 5555 today"
		entities := []entity.Classified{
			classified("a@b.com", "email", 5),
			classified("+56 9 1234 5555", "phone", 23),
		}
		strategies := map[string]entity.Strategy{
			"a@b.com":         {Technique: strategy.TechniqueMasking},
			"+56 9 1234 5555": {Technique: strategy.TechniqueMasking},
		}

		a := New("Subject", log)
		out, transformations := a.Run(text, entities, strategies)

		if strings.Contains(out, "a@b.com") {
			t.Errorf("Email leaked: %q", out)
		}
		if strings.Contains(out, "1234") {
			t.Errorf("Phone digits leaked: %q", out)
		}
		if !strings.HasPrefix(out, "Mail ") || !strings.HasSuffix(out, " today") {
			t.Errorf("Surrounding text damaged: %q", out)
		}
		if len(transformations) != 2 {
			t.Fatalf("Expected 2 transformations, got %d", len(transformations))
		}
	})

	t.Run("MissingStrategyDefaultsToPseudonym", func(t *testing.T) {
		text := "Juan Perez visited"
		a := New("Subject", log)
		out, _ := a.Run(text, []entity.Classified{classified("Juan Perez", "person_name", 0)}, nil)
		if out != "Subject-001 visited" {
			t.Errorf("Output = %q", out)
		}
	})

	t.Run("KeepLeavesTextUntouched", func(t *testing.T) {
		text := "Diagnosis: type 2 diabetes"
		entities := []entity.Classified{classified("type 2 diabetes", "medical_diagnosis", 11)}
		strategies := map[string]entity.Strategy{
			"type 2 diabetes": {Technique: strategy.TechniqueKeep},
		}

		a := New("Subject", log)
		out, transformations := a.Run(text, entities, strategies)
		if out != text {
			t.Errorf("Kept entity modified the text: %q", out)
		}
		if len(transformations) != 1 {
			t.Fatalf("Keep should still be logged, got %d entries", len(transformations))
		}
		if transformations[0].KeptReason == "" {
			t.Error("Kept transformation missing its reason")
		}
	})

	t.Run("PseudonymsStableAcrossOneRun", func(t *testing.T) {
		text := "Juan Perez met Ana Ruiz. Later Juan Perez left."
		entities := []entity.Classified{
			classified("Juan Perez", "person_name", 0),
			classified("Ana Ruiz", "person_name", 15),
			classified("Juan Perez", "person_name", 31),
		}
		strategies := map[string]entity.Strategy{
			"Juan Perez": {Technique: strategy.TechniquePseudonymization},
			"Ana Ruiz":   {Technique: strategy.TechniquePseudonymization},
		}

		a := New("Subject", log)
		out, _ := a.Run(text, entities, strategies)

		if strings.Count(out, "Subject-") != 3 {
			t.Fatalf("Expected 3 pseudonyms: %q", out)
		}
		// Both mentions of the same person must share one label.
		labels := regexp.MustCompile(`Subject-\d{3}`).FindAllString(out, -1)
		if len(labels) != 3 || labels[0] != labels[2] {
			t.Errorf("Same value got different labels: %v", labels)
		}
		if labels[0] == labels[1] {
			t.Errorf("Distinct values share a label: %v", labels)
		}
	})

	t.Run("HIPAARemovalPlaceholders", func(t *testing.T) {
		text := "Patient Ana Ruiz, contact a@b.com"
		entities := []entity.Classified{
			classified("Ana Ruiz", "patient_name", 8),
			classified("a@b.com", "email", 26),
		}
		strategies := map[string]entity.Strategy{
			"Ana Ruiz": {Technique: strategy.TechniqueRemoval},
			"a@b.com":  {Technique: strategy.TechniqueRemoval},
		}

		a := New("Subject", log)
		out, _ := a.Run(text, entities, strategies)
		if !strings.Contains(out, "[PATIENT]") {
			t.Errorf("Patient placeholder missing: %q", out)
		}
		if !strings.Contains(out, "[EMAIL_REMOVED]") {
			t.Errorf("Email placeholder missing: %q", out)
		}
	})
}

func TestApplyUnknownTechnique(t *testing.T) {
	got := Apply("secret", "api_key", "quantum_blur", NewPseudonymizer(""))
	if got != "[API_KEY_ANONYMIZED]" {
		t.Errorf("Unknown technique placeholder = %q", got)
	}
}
