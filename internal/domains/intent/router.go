package intent

import (
	"context"
	"regexp"
	"time"

	"github.com/gangnameyes/docent/internal/catalog"
	"github.com/gangnameyes/docent/internal/types"
	"github.com/gangnameyes/docent/pkg/Logger"
	"github.com/gangnameyes/docent/pkg/backend"
)

// requestPattern is a cheap pre-filter deciding whether an utterance even
// looks like an information request before we spend a classification call.
var requestPattern = regexp.MustCompile(
	`(추천|알려|찾아|어디|어떻게|뭐가|뭐야|있나|있어|있을까|가볼|갈만한|좋은\s*곳|맛집|카페|식당|볼거리|즐길|where|what|how|recommend|find|near)`,
)

type Classifier interface {
	Classify(ctx context.Context, question string) (*backend.ClassifyResponse, error)
}

// Router decides how an utterance is handled: fixed-topic short-circuit,
// optional category classification, or plain generation.
type Router struct {
	catalog    *catalog.Repository
	classifier Classifier
	logger     *Logger.Logger
}

func NewRouter(repo *catalog.Repository, classifier Classifier, logger *Logger.Logger) *Router {
	return &Router{
		catalog:    repo,
		classifier: classifier,
		logger:     logger,
	}
}

// MatchFixedTopic reports whether the utterance hits a pre-authored topic.
func (r *Router) MatchFixedTopic(text string) (*catalog.FixedQATopic, bool) {
	return r.catalog.Match(text)
}

// IsInformationRequest reports whether the utterance plausibly asks for
// venue information. Only such utterances are worth a classification call.
func (r *Router) IsInformationRequest(text string) bool {
	return requestPattern.MatchString(text)
}

// ClassifyCategory asks the backend which venue category the question is
// about. Classification is advisory; any failure degrades to "no category"
// and is never surfaced to the caller.
func (r *Router) ClassifyCategory(ctx context.Context, text string) *types.Category {
	if r.classifier == nil || !r.IsInformationRequest(text) {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := r.classifier.Classify(ctx, text)
	if err != nil {
		r.logger.Warnf("category classification failed, continuing without: %v", err)
		return nil
	}
	return resp.Category
}
