// Package retrieval finds reported voice-phishing cases that the agents
// use as reference material for their lines.
package retrieval

import (
	"context"
	"fmt"
	"strings"
)

const (
	DefaultTopK = 3

	// DefaultQuery is searched when no scenario topic is set.
	DefaultQuery = "보이스피싱 최신 수법"

	// NoResults is the reference text when nothing matched.
	NoResults = "검색 결과가 없습니다."
)

// Case is one reported fraud case.
type Case struct {
	Headline string   `yaml:"headline" json:"headline"`
	Snippet  string   `yaml:"snippet" json:"snippet"`
	Source   string   `yaml:"source" json:"source"`
	Date     string   `yaml:"date,omitempty" json:"date,omitempty"`
	Tags     []string `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// Searcher returns up to topK cases relevant to query.
type Searcher interface {
	Search(ctx context.Context, query string, topK int) ([]Case, error)
}

// Format renders cases as numbered reference blocks.
func Format(cases []Case) string {
	if len(cases) == 0 {
		return NoResults
	}
	blocks := make([]string, len(cases))
	for i, c := range cases {
		blocks[i] = fmt.Sprintf("[%d] %s\n%s", i+1, c.Headline, c.Snippet)
	}
	return strings.Join(blocks, "\n\n")
}

// Reference searches for topic (DefaultQuery when empty) and formats the
// result. Search errors degrade to NoResults; the error is returned so the
// caller can log it.
func Reference(ctx context.Context, s Searcher, topic string, topK int) (string, error) {
	query := strings.TrimSpace(topic)
	if query == "" {
		query = DefaultQuery
	}
	if topK <= 0 {
		topK = DefaultTopK
	}
	cases, err := s.Search(ctx, query, topK)
	if err != nil {
		return NoResults, err
	}
	return Format(cases), nil
}

// Stub stands in until a case corpus is configured. It always returns the
// same placeholder case.
type Stub struct{}

var placeholderCase = Case{
	Headline: "[RAG 미구축] 검색 결과는 데이터 수집·벡터 DB 구축 후 연동됩니다.",
	Snippet:  "보이스피싱, 스미싱, 투자 사기 등 매일경제 뉴스 기반 사례가 여기에 채워집니다.",
	Source:   "ChromaDB (예정)",
}

func (Stub) Search(ctx context.Context, _ string, _ int) ([]Case, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []Case{placeholderCase}, nil
}
