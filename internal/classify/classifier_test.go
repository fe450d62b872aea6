package classify

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
}

func (f *fakeOracle) Complete(ctx context.Context, req oracle.Request) (string, error) {
	return f.response, f.err
}

func detected(value, entityType string, start int) entity.Detected {
	return entity.Detected{
		Value:      value,
		Type:       entityType,
		Start:      start,
		End:        start + len(value),
		Method:     entity.MethodPattern,
		Confidence: 1.0,
	}
}

func TestClassifyKnownTypes(t *testing.T) {
	c := New(nil, logger.Nop())

	result := c.Classify(context.Background(), []entity.Detected{
		detected("jsmith@example.com", "email", 0),
		detected("4111 1111 1111 1111", "credit_card", 30),
	})

	if len(result.Entities) != 2 {
		t.Fatalf("Expected 2 classified entities, got %d", len(result.Entities))
	}

	email := result.Entities[0]
	if email.Sensitivity != entity.SensitivityHigh {
		t.Errorf("Email sensitivity = %q, want high", email.Sensitivity)
	}
	if !email.HasRegulation(entity.GDPR) || !email.HasRegulation(entity.HIPAA) {
		t.Errorf("Email regulations = %v", email.Regulations)
	}

	card := result.Entities[1]
	if card.Sensitivity != entity.SensitivityCritical {
		t.Errorf("Card sensitivity = %q, want critical", card.Sensitivity)
	}
	if !card.HasRegulation(entity.PCIDSS) {
		t.Errorf("Card regulations = %v", card.Regulations)
	}

	// Offsets must survive classification untouched.
	if card.Start != 30 || card.End != 30+len("4111 1111 1111 1111") {
		t.Errorf("Card offsets changed: [%d, %d)", card.Start, card.End)
	}

	if !result.Flags[entity.PCIDSS] || !result.Flags[entity.GDPR] || !result.Flags[entity.HIPAA] {
		t.Errorf("Flags = %v", result.Flags)
	}
}

func TestClassifyUnknownTypeFallback(t *testing.T) {
	t.Run("NilOracle", func(t *testing.T) {
		c := New(nil, logger.Nop())
		result := c.Classify(context.Background(), []entity.Detected{
			detected("something odd", "mystery_type", 0),
		})

		e := result.Entities[0]
		if e.Sensitivity != entity.SensitivityHigh {
			t.Errorf("Fallback sensitivity = %q, want high", e.Sensitivity)
		}
		if len(e.Regulations) != 1 || e.Regulations[0] != entity.GDPR {
			t.Errorf("Fallback regulations = %v, want [GDPR]", e.Regulations)
		}
		if e.Confidence != 0.5 {
			t.Errorf("Fallback confidence = %f, want 0.5", e.Confidence)
		}
	})

	t.Run("FailingOracle", func(t *testing.T) {
		c := New(&fakeOracle{err: errors.New("timeout")}, logger.Nop())
		result := c.Classify(context.Background(), []entity.Detected{
			detected("something odd", "mystery_type", 0),
		})
		if result.Entities[0].Confidence != 0.5 {
			t.Error("Oracle failure should yield conservative fallback")
		}
	})

	t.Run("OracleResponse", func(t *testing.T) {
		c := New(&fakeOracle{
			response: `{"entity_type_refined": "insurance_id", "sensitivity_level": "critical",
			            "applicable_regulations": ["HIPAA"], "justification": "Health plan identifier"}`,
		}, logger.Nop())
		result := c.Classify(context.Background(), []entity.Detected{
			detected("INS-99812", "mystery_type", 0),
		})

		e := result.Entities[0]
		if e.Type != "insurance_id" {
			t.Errorf("Refined type = %q", e.Type)
		}
		if e.Sensitivity != entity.SensitivityCritical {
			t.Errorf("Sensitivity = %q", e.Sensitivity)
		}
		if len(e.Regulations) != 1 || e.Regulations[0] != entity.HIPAA {
			t.Errorf("Regulations = %v", e.Regulations)
		}
		if e.Confidence != 0.85 {
			t.Errorf("Confidence = %f", e.Confidence)
		}
	})
}

func TestPrimaryRegulation(t *testing.T) {
	c := New(nil, logger.Nop())

	t.Run("CreditCardMakesPCIPrimary", func(t *testing.T) {
		result := c.Classify(context.Background(), []entity.Detected{
			detected("4111 1111 1111 1111", "credit_card", 0),
			detected("a@b.com", "email", 30),
		})
		if result.Primary != entity.PCIDSS {
			t.Errorf("Primary = %q, want PCI DSS", result.Primary)
		}
	})

	t.Run("ExpiryAloneIsNotPCI", func(t *testing.T) {
		// An expiry date flags PCI DSS, but without a PAN or CVV the
		// document is governed by GDPR.
		result := c.Classify(context.Background(), []entity.Detected{
			detected("12/25", "expiry_date", 0),
			detected("a@b.com", "email", 10),
		})
		if !result.Flags[entity.PCIDSS] {
			t.Error("Expiry date should flag PCI DSS")
		}
		if result.Primary != entity.GDPR {
			t.Errorf("Primary = %q, want GDPR", result.Primary)
		}
	})

	t.Run("ClinicalTypeMakesHIPAAPrimary", func(t *testing.T) {
		result := c.Classify(context.Background(), []entity.Detected{
			detected("type 2 diabetes", "medical_diagnosis", 0),
			detected("a@b.com", "email", 20),
		})
		if result.Primary != entity.HIPAA {
			t.Errorf("Primary = %q, want HIPAA", result.Primary)
		}
	})

	t.Run("SharedTypesDefaultToGDPR", func(t *testing.T) {
		// Email flags HIPAA but is not a characteristic clinical type.
		result := c.Classify(context.Background(), []entity.Detected{
			detected("a@b.com", "email", 0),
		})
		if result.Primary != entity.GDPR {
			t.Errorf("Primary = %q, want GDPR", result.Primary)
		}
	})

	t.Run("EmptyDocument", func(t *testing.T) {
		result := c.Classify(context.Background(), nil)
		if result.Primary != entity.GDPR {
			t.Errorf("Primary = %q, want GDPR", result.Primary)
		}
	})
}
