package evaluator

import (
	"context"
	"strings"

	"github.com/adalundhe/voiceguard/core/conversation"
	"github.com/adalundhe/voiceguard/core/pii"
)

const patternSafeReason = "민감 정보 패턴이 발견되지 않았습니다."

// PatternEvaluator flags replies that contain recognisable identifiers.
type PatternEvaluator struct {
	// Detector defaults to the built-in patterns.
	Detector *pii.Detector
}

func (p PatternEvaluator) Evaluate(ctx context.Context, reply string, _ []conversation.Turn) (conversation.EvaluationResult, error) {
	if err := ctx.Err(); err != nil {
		return conversation.EvaluationResult{}.Normalize(), err
	}

	var findings []pii.Finding
	if p.Detector != nil {
		findings = p.Detector.Detect(reply)
	} else {
		findings = pii.Detect(reply)
	}
	if len(findings) == 0 {
		return conversation.EvaluationResult{Reason: patternSafeReason}.Normalize(), nil
	}

	return conversation.EvaluationResult{
		IsDanger:     true,
		Reason:       "민감 정보 노출: " + strings.Join(pii.Labels(findings), ", "),
		DetectedInfo: pii.Values(findings),
	}.Normalize(), nil
}
