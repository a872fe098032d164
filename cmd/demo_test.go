package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPrintDemo(t *testing.T) {
	var out bytes.Buffer
	printDemo(&out)

	s := out.String()
	assert.Contains(t, s, "current_phase: init")
	assert.Contains(t, s, "scenario_topic: "+demoTopic)
	assert.Contains(t, s, "turn_count: 0")
	assert.Contains(t, s, "needs_topic_selection: false")
	assert.Contains(t, s, "[supervisor]")
	assert.Contains(t, s, "voiceguard train --topic")
}
