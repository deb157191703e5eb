package knowledge

import (
	"context"
	"strings"

	"github.com/sentryai/sentry/internal/apperr"
	"github.com/sentryai/sentry/internal/logging"
	"github.com/sentryai/sentry/internal/svc"
	"github.com/sentryai/sentry/internal/types"
)

const maxResults = 20

type SearchKnowledgeLogic struct {
	logging.Logger
	ctx    context.Context
	svcCtx *svc.ServiceContext
}

// Search the legal knowledge base
func NewSearchKnowledgeLogic(ctx context.Context, svcCtx *svc.ServiceContext) *SearchKnowledgeLogic {
	return &SearchKnowledgeLogic{
		Logger: logging.WithContext(ctx),
		ctx:    ctx,
		svcCtx: svcCtx,
	}
}

// SearchKnowledge runs the same retrieval the chat uses. It returns no
// snippets when the knowledge base is disabled.
func (l *SearchKnowledgeLogic) SearchKnowledge(req *types.KnowledgeSearchRequest) (*types.KnowledgeSearchResponse, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, apperr.Validation("q is required")
	}
	k := req.K
	if k <= 0 {
		k = l.svcCtx.Config.Knowledge.TopK
	}
	k = min(k, maxResults)

	resp := &types.KnowledgeSearchResponse{Snippets: []types.KnowledgeSnippet{}}
	if l.svcCtx.Index == nil {
		return resp, nil
	}
	snippets, err := l.svcCtx.Index.Search(l.ctx, query, k)
	if err != nil {
		l.Errorf("Knowledge search failed: %v", err)
		return nil, apperr.Wrap(apperr.KindPersistence, err, "knowledge search failed")
	}
	for _, s := range snippets {
		resp.Snippets = append(resp.Snippets, types.KnowledgeSnippet{Source: s.Source, Text: s.Text, Score: s.Score})
	}
	return resp, nil
}
