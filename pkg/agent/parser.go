package agent

import (
	"regexp"
	"strings"
)

const markerFinalAnswer = "Final Answer:"

// Corrective observations fed back to the model after an unparseable turn.
const (
	ObsMissingAction      = "Invalid Format: Missing 'Action:' after 'Thought:'"
	ObsMissingActionInput = "Invalid Format: Missing 'Action Input:' on the line right after 'Action:'"
	ObsActionAndAnswer    = "Invalid Format: Output contains both 'Action:' and 'Final Answer:'. Respond with exactly one of them."
)

var (
	// The tool name is the rest of a line-leading "Action:" line and
	// "Action Input:" must open the very next line.
	actionRe      = regexp.MustCompile(`(?m)^[ \t]*Action[ \t]*:[ \t]*([^\n]*)\n[ \t]*Action[ \t]*Input[ \t]*:(?s:(.*))`)
	actionLineRe  = regexp.MustCompile(`(?m)^[ \t]*Action[ \t]*:`)
	finalAnswerRe = regexp.MustCompile(`(?m)^[ \t]*Final Answer:`)
	observationRe = regexp.MustCompile(`(?m)^[ \t]*Observation:`)
)

// Decision is the parsed form of one model output: FinalAnswer, ToolCall or Unparseable.
type Decision interface {
	// RawLog is the model text that produced the decision, as replayed in the scratchpad.
	RawLog() string
	isDecision()
}

// FinalAnswer ends the loop with Text as the output.
type FinalAnswer struct {
	Text string
	Log  string
}

// ToolCall asks the loop to run Tool on Input.
type ToolCall struct {
	Tool  string
	Input string
	Log   string
}

// Unparseable means the output followed neither form. Observation is the
// corrective message fed back to the model.
type Unparseable struct {
	Reason      string
	Observation string
	Log         string
}

func (d FinalAnswer) RawLog() string { return d.Log }
func (d ToolCall) RawLog() string    { return d.Log }
func (d Unparseable) RawLog() string { return d.Log }

func (FinalAnswer) isDecision() {}
func (ToolCall) isDecision()    {}
func (Unparseable) isDecision() {}

// Parse classifies one model output. Anything the model wrote after its own
// "Observation:" line is discarded, since observations come from tools only.
func Parse(text string) Decision {
	if loc := actionRe.FindStringSubmatchIndex(text); loc != nil {
		if hasFinalAnswer(text) {
			return Unparseable{
				Reason:      "output contains both an action and a final answer",
				Observation: ObsActionAndAnswer,
				Log:         text,
			}
		}

		input := text[loc[4]:loc[5]]
		log := text
		if obs := observationRe.FindStringIndex(input); obs != nil {
			input = input[:obs[0]]
			log = text[:loc[4]+obs[0]]
		}

		return ToolCall{
			Tool:  strings.TrimSpace(text[loc[2]:loc[3]]),
			Input: cleanInput(input),
			Log:   strings.TrimRight(log, " \t\r\n"),
		}
	}

	if loc := lastFinalAnswer(text); loc >= 0 {
		return FinalAnswer{
			Text: strings.TrimSpace(text[loc+len(markerFinalAnswer):]),
			Log:  text,
		}
	}

	if !actionLineRe.MatchString(text) {
		return Unparseable{Reason: "missing 'Action:'", Observation: ObsMissingAction, Log: text}
	}
	return Unparseable{Reason: "missing 'Action Input:' after 'Action:'", Observation: ObsMissingActionInput, Log: text}
}

func hasFinalAnswer(text string) bool {
	return finalAnswerRe.MatchString(text)
}

// lastFinalAnswer returns the byte offset of the last line-leading
// "Final Answer:" marker, or -1.
func lastFinalAnswer(text string) int {
	all := finalAnswerRe.FindAllStringIndex(text, -1)
	if len(all) == 0 {
		return -1
	}
	m := all[len(all)-1]
	// The match may include leading blanks; point at the marker itself.
	return m[0] + strings.Index(text[m[0]:m[1]], markerFinalAnswer)
}

// cleanInput trims the tool input and removes one pair of wrapping quotes.
func cleanInput(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = s[1 : len(s)-1]
	}
	return s
}
