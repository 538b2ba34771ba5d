// Package content resolves the question and category catalogs a match
// draws from: a built-in static catalog unioned with a dynamically
// authored one. Authoring tools live outside this service; the dynamic
// catalog is consumed read-only.
package content

import (
	"context"
	"log/slog"

	"github.com/trivia-arena/internal/domain"
)

// DynamicSource is the read contract of the authored-content store
type DynamicSource interface {
	QuestionIDsByCategory(ctx context.Context, categoryID string) ([]string, error)
	AllQuestionIDs(ctx context.Context) ([]string, error)
	// Question returns nil without error when the id is unknown
	Question(ctx context.Context, id string) (*domain.Question, error)
	// CategoryName returns "" without error when the id is unknown
	CategoryName(ctx context.Context, id string) (string, error)
}

// Resolver layers the dynamic catalog over the static one. Candidate
// ids come from the union of both; each id resolves dynamic-first with
// static fallback, and unresolved ids (a since-deleted dynamic
// question) are silently dropped.
type Resolver struct {
	dynamic DynamicSource
	logger  *slog.Logger
}

// NewResolver creates a catalog resolver. dynamic may be nil, in which
// case only the static catalog is served.
func NewResolver(dynamic DynamicSource, logger *slog.Logger) *Resolver {
	return &Resolver{dynamic: dynamic, logger: logger}
}

// CategoryPool returns candidate question ids for one category
func (r *Resolver) CategoryPool(ctx context.Context, categoryID string) ([]string, error) {
	ids := StaticQuestionIDsByCategory(categoryID)
	if r.dynamic != nil {
		dynIDs, err := r.dynamic.QuestionIDsByCategory(ctx, categoryID)
		if err != nil {
			return nil, err
		}
		ids = append(ids, dynIDs...)
	}
	return dedupe(ids), nil
}

// FullPool returns candidate question ids across every category
func (r *Resolver) FullPool(ctx context.Context) ([]string, error) {
	ids := StaticQuestionIDs()
	if r.dynamic != nil {
		dynIDs, err := r.dynamic.AllQuestionIDs(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, dynIDs...)
	}
	return dedupe(ids), nil
}

// Resolve materializes ids into questions, dropping unresolved ids
func (r *Resolver) Resolve(ctx context.Context, ids []string) ([]domain.Question, error) {
	questions := make([]domain.Question, 0, len(ids))
	for _, id := range ids {
		if r.dynamic != nil {
			q, err := r.dynamic.Question(ctx, id)
			if err != nil {
				return nil, err
			}
			if q != nil {
				questions = append(questions, *q)
				continue
			}
		}
		if q := staticQuestion(id); q != nil {
			questions = append(questions, *q)
			continue
		}
		r.logger.Debug("dropping unresolved question id", "question_id", id)
	}
	return questions, nil
}

// CategoryName resolves a category's display name, dynamic catalog
// first, then the static fallback catalog, then the raw id.
func (r *Resolver) CategoryName(ctx context.Context, categoryID string) string {
	if r.dynamic != nil {
		name, err := r.dynamic.CategoryName(ctx, categoryID)
		if err != nil {
			r.logger.Warn("dynamic category lookup failed", "category_id", categoryID, "error", err)
		} else if name != "" {
			return name
		}
	}
	if name, ok := staticCategories[categoryID]; ok {
		return name
	}
	return categoryID
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
