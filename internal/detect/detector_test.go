package detect

import (
	"context"
	"errors"
	"testing"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/oracle"
)

// fakeOracle returns a canned completion or error.
type fakeOracle struct {
	response string
	err      error
}

func (f *fakeOracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	return f.response, f.err
}

func newTestDetector(t *testing.T, oc oracle.Client) *Detector {
	t.Helper()
	d, err := New([]string{"all"}, oc, logger.Nop())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}
	return d
}

func hitsOfType(hits []entity.Detected, entityType string) []entity.Detected {
	var out []entity.Detected
	for _, h := range hits {
		if h.Type == entityType {
			out = append(out, h)
		}
	}
	return out
}

func TestPatternScan(t *testing.T) {
	d := newTestDetector(t, nil)

	t.Run("Email", func(t *testing.T) {
		hits := hitsOfType(d.PatternScan("Contact jsmith@example.com for details"), "email")
		if len(hits) != 1 {
			t.Fatalf("Expected 1 email hit, got %d", len(hits))
		}
		if hits[0].Value != "jsmith@example.com" {
			t.Errorf("Wrong value: %q", hits[0].Value)
		}
		if hits[0].Method != entity.MethodPattern {
			t.Errorf("Wrong method: %q", hits[0].Method)
		}
	})

	t.Run("OffsetsMatchValue", func(t *testing.T) {
		text := "Card 4111 1111 1111 1111 and RUT 12.345.678-5 on 2024-03-15"
		for _, h := range d.PatternScan(text) {
			if text[h.Start:h.End] != h.Value {
				t.Errorf("Offset mismatch for %s: text[%d:%d]=%q, value=%q",
					h.Type, h.Start, h.End, text[h.Start:h.End], h.Value)
			}
		}
	})

	t.Run("CreditCard", func(t *testing.T) {
		hits := hitsOfType(d.PatternScan("PAN: 4111-1111-1111-1111"), "credit_card")
		if len(hits) != 1 {
			t.Fatalf("Expected 1 credit card hit, got %d", len(hits))
		}
	})

	t.Run("CVVRequiresKeywordContext", func(t *testing.T) {
		// Bare digit groups are not CVVs.
		if hits := hitsOfType(d.PatternScan("The answer is 123 again"), "cvv"); len(hits) != 0 {
			t.Errorf("Bare digits flagged as CVV: %v", hits)
		}

		hits := hitsOfType(d.PatternScan("cvv: 123"), "cvv")
		if len(hits) != 1 {
			t.Fatalf("Expected 1 CVV hit, got %d", len(hits))
		}
		if hits[0].Value != "123" {
			t.Errorf("Wrong CVV value: %q", hits[0].Value)
		}
		if hits[0].Confidence != 0.95 {
			t.Errorf("Wrong CVV confidence: %f", hits[0].Confidence)
		}
	})

	t.Run("CVVWindowBound", func(t *testing.T) {
		// Digits past the keyword window are ignored.
		text := "cvv is mentioned here but the digits are way way way past the window 123"
		if hits := hitsOfType(d.PatternScan(text), "cvv"); len(hits) != 0 {
			t.Errorf("Out-of-window digits flagged as CVV: %v", hits)
		}
	})

	t.Run("ExpiryDateNotInsideLongerDate", func(t *testing.T) {
		// Standalone MM/YY is an expiry.
		if hits := hitsOfType(d.PatternScan("expires 12/25 soon"), "expiry_date"); len(hits) != 1 {
			t.Fatalf("Expected 1 expiry hit, got %d", len(hits))
		}
		// The tail of 15/12/2024 must not be flagged.
		for _, h := range hitsOfType(d.PatternScan("visited on 15/12/2024 at noon"), "expiry_date") {
			if h.Value == "12/2024" {
				t.Errorf("Date tail flagged as expiry: %q", h.Value)
			}
		}
	})

	t.Run("ChileanRUT", func(t *testing.T) {
		hits := hitsOfType(d.PatternScan("RUT: 12.345.678-5"), "rut_chile")
		if len(hits) != 1 || hits[0].Value != "12.345.678-5" {
			t.Fatalf("RUT not detected: %v", hits)
		}
	})
}

func TestConfigureRules(t *testing.T) {
	t.Run("NamedSubset", func(t *testing.T) {
		d, err := New([]string{"email", "phone"}, nil, logger.Nop())
		if err != nil {
			t.Fatalf("Failed to create detector: %v", err)
		}
		names := d.EnabledRules()
		if len(names) != 2 {
			t.Fatalf("Expected 2 enabled rules, got %v", names)
		}
		if hits := d.PatternScan("card 4111 1111 1111 1111"); len(hitsOfType(hits, "credit_card")) != 0 {
			t.Error("Disabled credit_card rule still firing")
		}
	})

	t.Run("UnknownDetector", func(t *testing.T) {
		if _, err := New([]string{"telepathy"}, nil, logger.Nop()); err == nil {
			t.Fatal("Expected error for unknown detector")
		}
	})
}

func TestDetectDegradesWithoutOracle(t *testing.T) {
	t.Run("NilOracle", func(t *testing.T) {
		d := newTestDetector(t, nil)
		hits := d.Detect(context.Background(), "mail to a@b.com")
		if len(hitsOfType(hits, "email")) != 1 {
			t.Error("Pattern results missing with nil oracle")
		}
	})

	t.Run("FailingOracle", func(t *testing.T) {
		d := newTestDetector(t, &fakeOracle{err: errors.New("connection refused")})
		hits := d.Detect(context.Background(), "mail to a@b.com")
		if len(hitsOfType(hits, "email")) != 1 {
			t.Error("Pattern results missing when oracle fails")
		}
	})
}

func TestModelExtraction(t *testing.T) {
	text := "Dr. Maria Gonzalez treated the patient at Clinica Santa Maria"

	t.Run("LocatesValues", func(t *testing.T) {
		d := newTestDetector(t, &fakeOracle{
			response: `[{"value": "Maria Gonzalez", "type": "physician_name"},
			            {"value": "Clinica Santa Maria", "type": "organization"},
			            {"value": "Not In The Text", "type": "person_name"}]`,
		})

		hits := d.Detect(context.Background(), text)
		model := 0
		for _, h := range hits {
			if h.Method != entity.MethodModel {
				continue
			}
			model++
			if text[h.Start:h.End] != h.Value {
				t.Errorf("Model hit offset mismatch: %q vs %q", text[h.Start:h.End], h.Value)
			}
			if h.Confidence != 0.85 {
				t.Errorf("Wrong model confidence: %f", h.Confidence)
			}
		}
		if model != 2 {
			t.Errorf("Expected 2 locatable model hits, got %d", model)
		}
	})

	t.Run("FencedResponse", func(t *testing.T) {
		d := newTestDetector(t, &fakeOracle{
			response: "```json\n[{\"value\": \"Maria Gonzalez\", \"type\": \"person_name\"}]\n```",
		})
		hits := d.Detect(context.Background(), text)
		found := false
		for _, h := range hits {
			if h.Method == entity.MethodModel && h.Value == "Maria Gonzalez" {
				found = true
			}
		}
		if !found {
			t.Error("Fenced JSON response not parsed")
		}
	})
}

func TestMerge(t *testing.T) {
	pattern := []entity.Detected{
		{Value: "a@b.com", Type: "email", Start: 10, End: 17, Method: entity.MethodPattern},
	}
	model := []entity.Detected{
		{Value: "a@b.com extra", Type: "contact", Start: 10, End: 23, Method: entity.MethodModel},
		{Value: "John", Type: "person_name", Start: 0, End: 4, Method: entity.MethodModel},
	}

	merged := Merge(pattern, model)
	if len(merged) != 2 {
		t.Fatalf("Expected 2 merged entities, got %d", len(merged))
	}
	for _, m := range merged {
		if m.Type == "contact" {
			t.Error("Overlapping model entity should have been dropped")
		}
	}
}

func TestConsolidate(t *testing.T) {
	t.Run("SpecificTypeWinsOnPartialOverlap", func(t *testing.T) {
		entities := []entity.Detected{
			{Value: "Dr. Maria", Type: "person_name", Start: 0, End: 9},
			{Value: "Maria Gonzalez MD", Type: "physician_name", Start: 4, End: 21},
		}
		out := Consolidate(entities)
		if len(out) != 1 {
			t.Fatalf("Expected 1 consolidated entity, got %d", len(out))
		}
		if out[0].Type != "physician_name" {
			t.Errorf("Higher-priority type should win, got %q", out[0].Type)
		}
	})

	t.Run("ContainedSpanDropped", func(t *testing.T) {
		entities := []entity.Detected{
			{Value: "Avenida Las Condes 1234, Santiago", Type: "address", Start: 0, End: 33},
			{Value: "Santiago", Type: "address", Start: 25, End: 33},
		}
		out := Consolidate(entities)
		if len(out) != 1 || out[0].Span() != 33 {
			t.Fatalf("Contained span should be dropped: %v", out)
		}
	})

	t.Run("DisjointKept", func(t *testing.T) {
		entities := []entity.Detected{
			{Value: "John", Type: "person_name", Start: 0, End: 4},
			{Value: "Acme", Type: "organization", Start: 10, End: 14},
		}
		if out := Consolidate(entities); len(out) != 2 {
			t.Fatalf("Disjoint entities should both survive: %v", out)
		}
	})
}
