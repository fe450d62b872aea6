package strategy

import (
	"context"
	"errors"
	"testing"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/oracle"
)

type fakeOracle struct {
	response string
	err      error
	calls    int
}

func (f *fakeOracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	f.calls++
	return f.response, f.err
}

type fakeExcerpts struct {
	excerpts []string
}

func (f *fakeExcerpts) Excerpts(ctx context.Context, query string, n int) ([]string, error) {
	return f.excerpts, nil
}

func TestResolve(t *testing.T) {
	t.Run("TableHit", func(t *testing.T) {
		s := Resolve("credit_card", entity.PCIDSS)
		if s.Technique != TechniqueTruncation {
			t.Errorf("PCI credit_card technique = %q, want truncation", s.Technique)
		}
		if s.Article != "PCI DSS Req. 3.4" {
			t.Errorf("Citation = %q", s.Article)
		}
	})

	t.Run("SameTypeDiffersPerRegulation", func(t *testing.T) {
		gdpr := Resolve("email", entity.GDPR)
		hipaa := Resolve("email", entity.HIPAA)
		if gdpr.Technique != TechniqueMasking {
			t.Errorf("GDPR email = %q, want masking", gdpr.Technique)
		}
		if hipaa.Technique != TechniqueRemoval {
			t.Errorf("HIPAA email = %q, want removal", hipaa.Technique)
		}
	})

	t.Run("RegulationDefaults", func(t *testing.T) {
		cases := map[entity.Regulation]string{
			entity.GDPR:   TechniquePseudonymization,
			entity.HIPAA:  TechniqueRemoval,
			entity.PCIDSS: TechniqueTokenization,
		}
		for reg, want := range cases {
			if s := Resolve("never_heard_of_it", reg); s.Technique != want {
				t.Errorf("Default for %s = %q, want %q", reg, s.Technique, want)
			}
		}
	})

	t.Run("UnknownRegulationFallsBackToGDPR", func(t *testing.T) {
		s := Resolve("email", entity.Regulation("LGPD"))
		if s.Technique != TechniqueMasking {
			t.Errorf("Unknown regulation should use the GDPR table, got %q", s.Technique)
		}
	})

	t.Run("KeepForClinicalDataUnderHIPAA", func(t *testing.T) {
		if s := Resolve("medical_diagnosis", entity.HIPAA); s.Technique != TechniqueKeep {
			t.Errorf("HIPAA medical_diagnosis = %q, want keep", s.Technique)
		}
	})
}

func TestJustify(t *testing.T) {
	entities := []entity.Classified{
		{Value: "jsmith@example.com", Type: "email", Sensitivity: entity.SensitivityHigh, Start: 0, End: 18},
		{Value: "jsmith@example.com", Type: "email", Sensitivity: entity.SensitivityHigh, Start: 40, End: 58},
		{Value: "Juan Perez", Type: "person_name", Sensitivity: entity.SensitivityHigh, Start: 70, End: 80},
	}

	t.Run("OneStrategyPerValue", func(t *testing.T) {
		j := NewJustifier(nil, nil, logger.Nop())
		strategies, justifications := j.Justify(context.Background(), entities, entity.GDPR)

		if len(strategies) != 2 {
			t.Fatalf("Expected 2 distinct strategies, got %d", len(strategies))
		}
		if len(justifications) != 3 {
			t.Fatalf("Expected 3 justification records, got %d", len(justifications))
		}
		if strategies["jsmith@example.com"].Technique != TechniqueMasking {
			t.Errorf("Email strategy = %q", strategies["jsmith@example.com"].Technique)
		}
	})

	t.Run("TableTextWithoutOracle", func(t *testing.T) {
		j := NewJustifier(nil, nil, logger.Nop())
		_, justifications := j.Justify(context.Background(), entities[:1], entity.GDPR)
		if justifications[0].Text == "" {
			t.Error("Justification text empty without oracle")
		}
		if justifications[0].Citation != "GDPR Art. 32(1)(a)" {
			t.Errorf("Citation = %q", justifications[0].Citation)
		}
	})

	t.Run("OracleFailureFallsBackToTable", func(t *testing.T) {
		oc := &fakeOracle{err: errors.New("rate limited")}
		j := NewJustifier(oc, nil, logger.Nop())
		_, justifications := j.Justify(context.Background(), entities[:1], entity.GDPR)
		if justifications[0].Text != Resolve("email", entity.GDPR).Justification {
			t.Errorf("Expected table fallback text, got %q", justifications[0].Text)
		}
	})

	t.Run("OracleTextUsed", func(t *testing.T) {
		oc := &fakeOracle{response: "  Masking preserves the domain for analysis.  "}
		j := NewJustifier(oc, &fakeExcerpts{excerpts: []string{"Art. 32 excerpt"}}, logger.Nop())
		_, justifications := j.Justify(context.Background(), entities[:1], entity.GDPR)
		if justifications[0].Text != "Masking preserves the domain for analysis." {
			t.Errorf("Oracle text not used: %q", justifications[0].Text)
		}
	})

	t.Run("KeptEntitiesSkipOracle", func(t *testing.T) {
		oc := &fakeOracle{response: "should never be used"}
		j := NewJustifier(oc, nil, logger.Nop())
		clinical := []entity.Classified{
			{Value: "type 2 diabetes", Type: "medical_diagnosis", Start: 0, End: 15},
		}
		_, justifications := j.Justify(context.Background(), clinical, entity.HIPAA)
		if oc.calls != 0 {
			t.Errorf("Oracle called %d times for kept entity", oc.calls)
		}
		if justifications[0].Technique != TechniqueKeep {
			t.Errorf("Technique = %q, want keep", justifications[0].Technique)
		}
	})
}
