package conversation

// EvaluationResult is the risk verdict for one trainee reply.
type EvaluationResult struct {
	IsDanger     bool     `json:"is_danger"`
	Reason       string   `json:"reason"`
	DetectedInfo []string `json:"detected_info"`
}

// Normalize returns a copy whose DetectedInfo is never nil and is empty
// whenever the verdict is safe.
func (e EvaluationResult) Normalize() EvaluationResult {
	if !e.IsDanger {
		e.DetectedInfo = []string{}
		return e
	}
	e.DetectedInfo = append([]string{}, e.DetectedInfo...)
	return e
}
