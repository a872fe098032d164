package conversation

import "fmt"

// Role identifies who produced a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Agent identifies which sub-agent authored an assistant turn.
type Agent string

const (
	AgentNone           Agent = ""
	AgentTopicSelection Agent = "topic_selection"
	AgentRolePlay       Agent = "roleplay"
	AgentGuardian       Agent = "guardian"
)

// Turn is one message in the conversation. Build it with User or
// Assistant so the role and agent always agree.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
	Agent   Agent  `json:"agent,omitempty"`
}

// User returns a trainee turn.
func User(text string) Turn {
	return Turn{Role: RoleUser, Content: text}
}

// Assistant returns a turn authored by one of the sub-agents.
func Assistant(agent Agent, text string) Turn {
	return Turn{Role: RoleAssistant, Content: text, Agent: agent}
}

func (t Turn) IsUser() bool {
	return t.Role == RoleUser
}

func (t Turn) validate() error {
	switch t.Role {
	case RoleUser:
		if t.Agent != AgentNone {
			return fmt.Errorf("user turn carries agent %q", t.Agent)
		}
	case RoleAssistant:
		switch t.Agent {
		case AgentTopicSelection, AgentRolePlay, AgentGuardian:
		default:
			return fmt.Errorf("assistant turn has unknown agent %q", t.Agent)
		}
	default:
		return fmt.Errorf("unknown role %q", t.Role)
	}
	return nil
}
