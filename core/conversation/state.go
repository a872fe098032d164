// Package conversation holds the shared state of one training session.
//
// Fields are private: every change goes through a method that keeps the
// session invariants (validated phase edges, a topic that never reverts
// to empty, a turn counter that only grows, an append-only history).
package conversation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// State is the conversation state threaded through every agent step.
// It is not safe for concurrent use; a session is driven by one
// goroutine at a time.
type State struct {
	messages            []Turn
	phase               Phase
	evaluation          *EvaluationResult
	topic               string
	turnCount           int
	userInput           string
	instruction         string
	summary             string
	needsTopicSelection bool
	summarizedThrough   int
}

// New returns the initial state of a session. An empty topic means the
// trainee will be asked to choose one.
func New(topic, userInput string) *State {
	topic = strings.TrimSpace(topic)
	return &State{
		phase:               PhaseInit,
		topic:               topic,
		userInput:           strings.TrimSpace(userInput),
		needsTopicSelection: topic == "",
	}
}

func (s *State) Messages() []Turn {
	out := make([]Turn, len(s.messages))
	copy(out, s.messages)
	return out
}

func (s *State) Len() int                  { return len(s.messages) }
func (s *State) Phase() Phase              { return s.phase }
func (s *State) Topic() string             { return s.topic }
func (s *State) HasTopic() bool            { return s.topic != "" }
func (s *State) TurnCount() int            { return s.turnCount }
func (s *State) UserInput() string         { return s.userInput }
func (s *State) HasUserInput() bool        { return s.userInput != "" }
func (s *State) Instruction() string       { return s.instruction }
func (s *State) Summary() string           { return s.summary }
func (s *State) NeedsTopicSelection() bool { return s.needsTopicSelection }
func (s *State) SummarizedThrough() int    { return s.summarizedThrough }

// Evaluation returns a copy of the latest verdict, or nil.
func (s *State) Evaluation() *EvaluationResult {
	if s.evaluation == nil {
		return nil
	}
	e := s.evaluation.Normalize()
	return &e
}

// LastUserMessage returns the most recent trainee turn, if any.
func (s *State) LastUserMessage() (string, bool) {
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].IsUser() {
			return s.messages[i].Content, true
		}
	}
	return "", false
}

// SetUserInput merges a new trainee reply. A non-empty reply invalidates
// the previous verdict so it is never applied to the new text.
func (s *State) SetUserInput(text string) {
	text = strings.TrimSpace(text)
	s.userInput = text
	if text != "" {
		s.evaluation = nil
	}
}

// ConsumeUserInput returns the pending reply and clears it.
func (s *State) ConsumeUserInput() string {
	text := s.userInput
	s.userInput = ""
	return text
}

func (s *State) ClearUserInput() {
	s.userInput = ""
}

// Append adds turns to the history.
func (s *State) Append(turns ...Turn) error {
	for _, t := range turns {
		if err := t.validate(); err != nil {
			return err
		}
	}
	s.messages = append(s.messages, turns...)
	return nil
}

// SetPhase moves the session along a declared edge.
func (s *State) SetPhase(next Phase) error {
	if !s.phase.CanTransitionTo(next) {
		return fmt.Errorf("invalid phase transition %s -> %s", s.phase, next)
	}
	s.phase = next
	return nil
}

// SetTopic records the scenario topic. Empty values are ignored.
func (s *State) SetTopic(topic string) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return
	}
	s.topic = topic
	s.needsTopicSelection = false
}

func (s *State) SetInstruction(text string) {
	s.instruction = text
}

func (s *State) SetEvaluation(result EvaluationResult) {
	normalized := result.Normalize()
	s.evaluation = &normalized
}

func (s *State) ClearEvaluation() {
	s.evaluation = nil
}

// MarkTopicAsked records that the topic question has been shown.
func (s *State) MarkTopicAsked() {
	s.needsTopicSelection = false
}

// SetMemory stores a refreshed long-term summary together with the index
// of the first message it does not yet cover.
func (s *State) SetMemory(summary string, summarizedThrough int) error {
	if summarizedThrough < s.summarizedThrough {
		return fmt.Errorf("summary cursor moved backwards: %d < %d", summarizedThrough, s.summarizedThrough)
	}
	if summarizedThrough > len(s.messages) {
		return fmt.Errorf("summary cursor %d beyond %d messages", summarizedThrough, len(s.messages))
	}
	s.summary = summary
	s.summarizedThrough = summarizedThrough
	return nil
}

// CompleteRolePlay records one finished role-play exchange: the trainee
// reply (if any) and the scammer line, a turn increment, the move to
// evaluation and the refreshed memory.
func (s *State) CompleteRolePlay(userText, reply, summary string, summarizedThrough int) error {
	if err := s.SetPhase(PhaseEvaluate); err != nil {
		return err
	}
	if userText = strings.TrimSpace(userText); userText != "" {
		s.messages = append(s.messages, User(userText))
	}
	s.messages = append(s.messages, Assistant(AgentRolePlay, reply))
	s.turnCount++
	s.userInput = ""
	if summarizedThrough > len(s.messages) {
		summarizedThrough = len(s.messages)
	}
	if summarizedThrough >= s.summarizedThrough {
		s.summary = summary
		s.summarizedThrough = summarizedThrough
	}
	return nil
}

// Clone returns a deep copy.
func (s *State) Clone() *State {
	c := *s
	c.messages = s.Messages()
	if s.evaluation != nil {
		e := s.evaluation.Normalize()
		c.evaluation = &e
	}
	return &c
}

type stateJSON struct {
	Messages            []Turn            `json:"messages"`
	CurrentPhase        Phase             `json:"current_phase"`
	EvaluationResult    *EvaluationResult `json:"evaluation_result"`
	ScenarioTopic       string            `json:"scenario_topic"`
	TurnCount           int               `json:"turn_count"`
	UserInput           string            `json:"user_input"`
	MasterInstruction   string            `json:"master_instruction"`
	LongTermSummary     string            `json:"long_term_summary"`
	NeedsTopicSelection bool              `json:"needs_topic_selection"`
	SummarizedThrough   int               `json:"summarized_through"`
}

func (s *State) MarshalJSON() ([]byte, error) {
	messages := s.messages
	if messages == nil {
		messages = []Turn{}
	}
	return json.Marshal(stateJSON{
		Messages:            messages,
		CurrentPhase:        s.phase,
		EvaluationResult:    s.Evaluation(),
		ScenarioTopic:       s.topic,
		TurnCount:           s.turnCount,
		UserInput:           s.userInput,
		MasterInstruction:   s.instruction,
		LongTermSummary:     s.summary,
		NeedsTopicSelection: s.needsTopicSelection,
		SummarizedThrough:   s.summarizedThrough,
	})
}

func (s *State) UnmarshalJSON(data []byte) error {
	var raw stateJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.CurrentPhase == "" {
		raw.CurrentPhase = PhaseInit
	}
	if !raw.CurrentPhase.Valid() {
		return fmt.Errorf("unknown phase %q", raw.CurrentPhase)
	}
	if raw.TurnCount < 0 {
		return fmt.Errorf("negative turn count %d", raw.TurnCount)
	}
	if raw.SummarizedThrough < 0 || raw.SummarizedThrough > len(raw.Messages) {
		return fmt.Errorf("summary cursor %d out of range", raw.SummarizedThrough)
	}
	for i, t := range raw.Messages {
		if err := t.validate(); err != nil {
			return fmt.Errorf("message %d: %w", i, err)
		}
	}

	*s = State{
		messages:            raw.Messages,
		phase:               raw.CurrentPhase,
		topic:               strings.TrimSpace(raw.ScenarioTopic),
		turnCount:           raw.TurnCount,
		userInput:           raw.UserInput,
		instruction:         raw.MasterInstruction,
		summary:             raw.LongTermSummary,
		needsTopicSelection: raw.NeedsTopicSelection,
		summarizedThrough:   raw.SummarizedThrough,
	}
	if raw.EvaluationResult != nil {
		s.SetEvaluation(*raw.EvaluationResult)
	}
	return nil
}
