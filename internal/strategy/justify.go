package strategy

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/veilhq/veil/internal/entity"
	"github.com/veilhq/veil/internal/logger"
	"github.com/veilhq/veil/internal/oracle"
)

// ContextProvider supplies advisory regulation-text excerpts for a
// query. Purely informative: justification generation works without it.
type ContextProvider interface {
	Excerpts(ctx context.Context, query string, n int) ([]string, error)
}

// Justifier resolves one strategy per distinct entity value and
// generates the free-text justification records for the final report.
type Justifier struct {
	oracle   oracle.Client
	excerpts ContextProvider
	logger   *logger.Logger
}

// NewJustifier creates a justifier. Both collaborators may be nil; the
// static table justifications are used as fallback text.
func NewJustifier(oc oracle.Client, excerpts ContextProvider, log *logger.Logger) *Justifier {
	return &Justifier{oracle: oc, excerpts: excerpts, logger: log}
}

// Justify resolves strategies for all classified entities under the
// primary regulation. The returned map is keyed by the original entity
// value, so repeated occurrences of the same value share one strategy
// for the whole run.
func (j *Justifier) Justify(
	ctx context.Context,
	entities []entity.Classified,
	primary entity.Regulation,
) (map[string]entity.Strategy, []entity.Justification) {
	strategies := make(map[string]entity.Strategy, len(entities))
	justifications := make([]entity.Justification, 0, len(entities))

	for _, e := range entities {
		resolved := Resolve(e.Type, primary)

		if _, seen := strategies[e.Value]; !seen {
			strategies[e.Value] = resolved
		}

		justifications = append(justifications, entity.Justification{
			Entity:     e.Value,
			Type:       e.Type,
			Technique:  resolved.Technique,
			Regulation: primary,
			Citation:   resolved.Article,
			Text:       j.justificationText(ctx, e, resolved, primary),
		})
	}

	return strategies, justifications
}

// justificationText asks the oracle for a tailored justification, with
// the static table text as fallback. Kept entities never hit the
// oracle: their table justification is the kept-reason.
func (j *Justifier) justificationText(
	ctx context.Context,
	e entity.Classified,
	resolved entity.Strategy,
	primary entity.Regulation,
) string {
	if resolved.Technique == TechniqueKeep || j.oracle == nil {
		return resolved.Justification
	}

	prompt := fmt.Sprintf(oracle.JustificationPrompt,
		e.Value, e.Type, string(e.Sensitivity), string(primary),
		resolved.Technique, resolved.Article)

	if j.excerpts != nil {
		if extra, err := j.excerpts.Excerpts(ctx, e.Type+" "+resolved.Article, 3); err == nil && len(extra) > 0 {
			prompt += "\n\nRelevant regulation excerpts:\n" + strings.Join(extra, "\n---\n")
		}
	}

	text, err := j.oracle.Complete(ctx, oracle.Request{
		System:      oracle.JustificationSystem,
		Prompt:      prompt,
		Temperature: 0.3,
		MaxTokens:   200,
	})
	if err != nil {
		j.logger.Debug("Justification generation failed, using table text",
			zap.String("entity_type", e.Type),
			zap.Error(err))
		if resolved.Justification != "" {
			return resolved.Justification
		}
		return fmt.Sprintf("Applied %s per %s", resolved.Technique, resolved.Article)
	}

	return strings.TrimSpace(text)
}
