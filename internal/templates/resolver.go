package templates

import (
	"context"

	"go.uber.org/zap"

	"github.com/notifyhub/lms-notify/internal/domain"
)

// Store is the read-only view of the template configuration.
// FindActiveTemplate returns (nil, nil) when no active template matches.
// When several are active for the same key, implementations return the most
// recently updated one, ties broken by the highest id.
type Store interface {
	FindActiveTemplate(ctx context.Context, category domain.Category, channel domain.Channel) (*domain.Template, error)
}

// Resolution is the outcome of a template lookup. When Found is false the
// caller delivers its own raw text.
type Resolution struct {
	Template *domain.Template
	Found    bool
}

// Render produces the subject and body to send. Without a template, the
// fallbacks are rendered with the same variables instead.
func (r Resolution) Render(vars map[string]any, fallbackSubject, fallbackBody string) (subject, body string) {
	subjectPattern, bodyPattern := fallbackSubject, fallbackBody
	if r.Found {
		if r.Template.Subject != "" {
			subjectPattern = r.Template.Subject
		}
		bodyPattern = r.Template.Body
	}
	return Render(subjectPattern, vars), Render(bodyPattern, vars)
}

// Resolver looks up channel templates. A missing template or a failing store
// never blocks delivery: both resolve to the raw-text fallback.
type Resolver struct {
	store  Store
	logger *zap.Logger
}

func NewResolver(store Store, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger.Named("template-resolver")}
}

func (r *Resolver) Resolve(ctx context.Context, category domain.Category, channel domain.Channel) Resolution {
	t, err := r.store.FindActiveTemplate(ctx, category, channel)
	if err != nil {
		r.logger.Warn("template lookup failed, using raw text",
			zap.String("type", string(category)),
			zap.String("channel", string(channel)),
			zap.Error(err),
		)
		return Resolution{}
	}
	if t == nil || !t.IsActive {
		return Resolution{}
	}
	return Resolution{Template: t, Found: true}
}
