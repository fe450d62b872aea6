package verify

import (
	"context"
	"testing"

	"github.com/veilhq/veil/internal/detect"
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

// leakyScanner reports the same leak on every pass. Drives the retry
// loop to exhaustion.
type leakyScanner struct{}

func (leakyScanner) PatternScan(text string) []entity.Detected {
	return []entity.Detected{
		{Value: "123-45-6789", Type: "ssn_us", Start: 0, End: 11, Method: entity.MethodPattern},
	}
}

func newScanner(t *testing.T) PatternScanner {
	t.Helper()
	d, err := detect.New([]string{"all"}, nil, logger.Nop())
	if err != nil {
		t.Fatalf("Failed to create detector: %v", err)
	}
	return d
}

func TestVerifyCleanOutput(t *testing.T) {
	v := New(newScanner(t), nil, "Subject", DefaultMaxRetries, logger.Nop())

	outcome := v.Verify(context.Background(),
		"Subject-001 visited on 2024 and was discharged",
		[]entity.Classified{
			{Value: "Juan Perez", Type: "person_name"},
			{Value: "15/03/2024", Type: "date_dmy"},
		},
		[]entity.Transformation{
			{Original: "Juan Perez", Anonymized: "Subject-001", Technique: "pseudonymization"},
			{Original: "15/03/2024", Anonymized: "2024", Technique: "generalization"},
		},
		0)

	if !outcome.Passed {
		t.Fatalf("Clean output failed verification: %v", outcome.Issues)
	}
	if outcome.RetryCount != 0 {
		t.Errorf("RetryCount = %d on a passing run", outcome.RetryCount)
	}
}

func TestVerifyDetectsLeaks(t *testing.T) {
	v := New(newScanner(t), nil, "Subject", DefaultMaxRetries, logger.Nop())

	t.Run("PatternLeak", func(t *testing.T) {
		outcome := v.Verify(context.Background(),
			"Forgot to anonymize jsmith@example.com here", nil, nil, 0)
		if outcome.Passed {
			t.Fatal("Leaked email passed verification")
		}
	})

	t.Run("OriginalValuePresent", func(t *testing.T) {
		outcome := v.Verify(context.Background(),
			"Juan Perez is still here",
			[]entity.Classified{{Value: "Juan Perez", Type: "person_name"}},
			nil, 0)
		if outcome.Passed {
			t.Fatal("Residual original value passed verification")
		}
	})

	t.Run("KeptValuesExempt", func(t *testing.T) {
		outcome := v.Verify(context.Background(),
			"Diagnosis: type 2 diabetes",
			[]entity.Classified{{Value: "type 2 diabetes", Type: "medical_diagnosis"}},
			[]entity.Transformation{{
				Original:   "type 2 diabetes",
				Anonymized: "type 2 diabetes",
				Technique:  "keep",
				KeptReason: "Clinical data, not a direct identifier",
			}},
			0)
		if !outcome.Passed {
			t.Fatalf("Kept value flagged as leak: %v", outcome.Issues)
		}
	})
}

func TestFalsePositiveRules(t *testing.T) {
	v := New(newScanner(t), nil, "Subject", DefaultMaxRetries, logger.Nop())

	t.Run("GeneralizedYear", func(t *testing.T) {
		// A bare year from date generalization may re-match zip/date
		// patterns but must not fail verification.
		outcome := v.Verify(context.Background(), "Admitted in 2024", nil, nil, 0)
		if !outcome.Passed {
			t.Fatalf("Generalized year flagged: %v", outcome.Issues)
		}
	})

	t.Run("MaskedEmailRemnant", func(t *testing.T) {
		outcome := v.Verify(context.Background(), "Contact j***h@example.com", nil, nil, 0)
		if !outcome.Passed {
			t.Fatalf("Masked email flagged: %v", outcome.Issues)
		}
	})

	t.Run("CustomRuleSet", func(t *testing.T) {
		custom := New(newScanner(t), nil, "Subject", DefaultMaxRetries, logger.Nop()).
			WithRules([]FalsePositiveRule{{
				Name:  "everything_is_fine",
				Match: func(entity.Detected, RuleContext) bool { return true },
			}})
		outcome := custom.Verify(context.Background(),
			"jsmith@example.com still visible", nil, nil, 0)
		if !outcome.Passed {
			t.Fatal("Custom allow-all rule set did not suppress the hit")
		}
	})
}

func TestRetryLoopBounded(t *testing.T) {
	v := New(leakyScanner{}, nil, "Subject", DefaultMaxRetries, logger.Nop())

	attempts := 0
	retries := 0
	var outcome Outcome
	for {
		attempts++
		outcome = v.Verify(context.Background(), "still leaking", nil, nil, retries)
		if !v.ShouldRetry(outcome, retries) {
			break
		}
		retries = outcome.RetryCount
	}

	if attempts != 3 {
		t.Errorf("Expected 3 total attempts with 2 retries, got %d", attempts)
	}
	if outcome.Passed {
		t.Error("Persistent leak should not pass")
	}
	if outcome.RetryCount != DefaultMaxRetries {
		t.Errorf("Final retry count = %d, want %d", outcome.RetryCount, DefaultMaxRetries)
	}
}

func TestShouldRetry(t *testing.T) {
	v := New(leakyScanner{}, nil, "Subject", 2, logger.Nop())

	if v.ShouldRetry(Outcome{Passed: true}, 0) {
		t.Error("Passing outcome should never retry")
	}
	if !v.ShouldRetry(Outcome{Passed: false, RetryCount: 1}, 0) {
		t.Error("First failure should retry")
	}
	if v.ShouldRetry(Outcome{Passed: false, RetryCount: 2}, 2) {
		t.Error("Exhausted budget should not retry")
	}
}

func TestModelReview(t *testing.T) {
	t.Run("FlagsResidualPII", func(t *testing.T) {
		oc := &fakeOracle{response: `{"contains_pii": true, "issues": ["nickname 'El Tigre' identifies the patient"], "confidence": 0.9}`}
		v := New(newScanner(t), oc, "Subject", DefaultMaxRetries, logger.Nop())
		outcome := v.Verify(context.Background(), "El Tigre was discharged", nil, nil, 0)
		if outcome.Passed {
			t.Fatal("Model-flagged residual PII passed")
		}
	})

	t.Run("ParseFailureIsSilent", func(t *testing.T) {
		oc := &fakeOracle{response: "I am not JSON"}
		v := New(newScanner(t), oc, "Subject", DefaultMaxRetries, logger.Nop())
		outcome := v.Verify(context.Background(), "Nothing sensitive here", nil, nil, 0)
		if !outcome.Passed {
			t.Fatalf("Unparseable review failed the document: %v", outcome.Issues)
		}
	})

	t.Run("SkippedWhenDeterministicChecksFail", func(t *testing.T) {
		oc := &fakeOracle{response: `{"contains_pii": true, "issues": ["extra"], "confidence": 0.9}`}
		v := New(leakyScanner{}, oc, "Subject", DefaultMaxRetries, logger.Nop())
		outcome := v.Verify(context.Background(), "still leaking", nil, nil, 0)
		if len(outcome.Issues) != 1 {
			t.Errorf("Model review should be skipped on deterministic failure: %v", outcome.Issues)
		}
	})
}
