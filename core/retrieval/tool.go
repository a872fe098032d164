package retrieval

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/adalundhe/voiceguard/core/providers"
)

const (
	ToolName = "search_voice_phishing_cases"

	// UnknownTool is returned for calls to tools that were never declared.
	UnknownTool = "알 수 없는 도구입니다."
)

// Tool declares the case search to the model.
func Tool() providers.Tool {
	return providers.Tool{
		Name:        ToolName,
		Description: "매일경제 뉴스에 보도된 보이스피싱·금융사기 사례를 검색합니다. 대사/설명 생성 전에 이 도구로 최신 수법을 참고하세요.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "검색 키워드 또는 상황 설명 (예: 카드사 개인정보 유출, 정부 지원금 사기)",
				},
				"top_k": map[string]any{
					"type":        "integer",
					"description": "가져올 문서 개수",
					"default":     DefaultTopK,
				},
			},
			"required": []string{"query"},
		},
	}
}

type toolArgs struct {
	Query string `json:"query"`
	TopK  int    `json:"top_k"`
}

// Execute runs one tool call and returns the text fed back to the model.
// Failures are reported as text, never as errors, so the dialogue goes on.
func Execute(ctx context.Context, s Searcher, call providers.ToolCall) string {
	if call.Name != ToolName {
		return UnknownTool
	}

	var args toolArgs
	if strings.TrimSpace(call.Arguments) != "" {
		if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
			return NoResults
		}
	}
	if args.TopK <= 0 {
		args.TopK = DefaultTopK
	}

	cases, err := s.Search(ctx, args.Query, args.TopK)
	if err != nil {
		return NoResults
	}
	return Format(cases)
}
