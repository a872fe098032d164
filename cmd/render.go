package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/adalundhe/voiceguard/core/conversation"
)

const ruleWidth = 60

// transcript writes conversation turns with a styled speaker label. Colour
// is only emitted when out is a terminal.
type transcript struct {
	out io.Writer

	system   lipgloss.Style
	scammer  lipgloss.Style
	guardian lipgloss.Style
	user     lipgloss.Style
	notice   lipgloss.Style
}

func newTranscript(out io.Writer) *transcript {
	r := lipgloss.NewRenderer(out)
	return &transcript{
		out:      out,
		system:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		scammer:  r.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		guardian: r.NewStyle().Bold(true).Foreground(lipgloss.Color("42")),
		user:     r.NewStyle().Bold(true),
		notice:   r.NewStyle().Faint(true),
	}
}

// speaker returns the label and style for t.
func (tr *transcript) speaker(t conversation.Turn) (string, lipgloss.Style) {
	switch t.Role {
	case conversation.RoleUser:
		return "👤 사용자", tr.user
	case conversation.RoleAssistant:
		switch t.Agent {
		case conversation.AgentTopicSelection:
			return "🤖 시스템", tr.system
		case conversation.AgentGuardian:
			return "🛡️ 가디언", tr.guardian
		case conversation.AgentRolePlay:
			return "🎭 사기범", tr.scammer
		}
	}
	return "❔", tr.user
}

func (tr *transcript) turn(t conversation.Turn) {
	label, style := tr.speaker(t)
	fmt.Fprintf(tr.out, "%s: %s\n\n", style.Render(label), t.Content)
}

// assistantTurns prints the assistant turns of msgs. Trainee turns were
// typed by the trainee and are not echoed.
func (tr *transcript) assistantTurns(msgs []conversation.Turn) {
	for _, t := range msgs {
		if t.IsUser() {
			continue
		}
		tr.turn(t)
	}
}

func (tr *transcript) noticef(format string, args ...any) {
	fmt.Fprintln(tr.out, tr.notice.Render(fmt.Sprintf(format, args...)))
}

func (tr *transcript) rule() {
	fmt.Fprintln(tr.out, strings.Repeat("=", ruleWidth))
}
