package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecision_PlainTextIsQuestion(t *testing.T) {
	dec, err := ParseDecision("  Who signs off on the budget?\n")
	require.NoError(t, err)
	assert.Equal(t, KindNextQuestion, dec.Kind)
	assert.Equal(t, "Who signs off on the budget?", dec.Question)
	assert.Nil(t, dec.Completion)
}

func TestParseDecision_CompletionWithNarrative(t *testing.T) {
	dec, err := ParseDecision("```json\n{\"status\": \"complete\", \"summary\": \"enough data\", \"completeness_score\": 0.72, \"confidence\": 0.9}\n```")
	require.NoError(t, err)
	require.Equal(t, KindCompletion, dec.Kind)
	assert.Equal(t, "enough data", dec.Completion.Narrative)
	assert.Nil(t, dec.Completion.Data)
	assert.InDelta(t, 0.72, dec.Completion.CompletenessScore, 1e-9)
	assert.InDelta(t, 0.9, dec.Completion.Confidence, 1e-9)
}

func TestParseDecision_CompletionWithData(t *testing.T) {
	raw := `{"status":"COMPLETE","summary":{"business_goals":{"primary_objectives":["x"]}},"missing_critical_info":"budget",}`
	dec, err := ParseDecision(raw)
	require.NoError(t, err)
	require.Equal(t, KindCompletion, dec.Kind)
	assert.Contains(t, dec.Completion.Data, "business_goals")
	assert.Equal(t, []string{"budget"}, dec.Completion.MissingInfo)
	assert.InDelta(t, 0.8, dec.Completion.Confidence, 1e-9)
	assert.False(t, dec.Completion.Synthesized)
}

func TestParseDecision_JSONQuestion(t *testing.T) {
	dec, err := ParseDecision(`{"status":"continue","next_question":"What is your team size?"}`)
	require.NoError(t, err)
	assert.Equal(t, KindNextQuestion, dec.Kind)
	assert.Equal(t, "What is your team size?", dec.Question)
}

func TestParseDecision_Uninterpretable(t *testing.T) {
	for _, raw := range []string{"", "   ", `{"status":"thinking"}`, `[1,2,3]`, `{"broken": `} {
		_, err := ParseDecision(raw)
		assert.ErrorIs(t, err, ErrUninterpretable, "input %q", raw)
	}
}

func TestDecisionKind_String(t *testing.T) {
	assert.Equal(t, "next_question", KindNextQuestion.String())
	assert.Equal(t, "completion", KindCompletion.String())
	assert.Equal(t, "unknown", DecisionKind(0).String())
}

func TestStringOrList(t *testing.T) {
	var p decisionPayload
	require.NoError(t, decodeJSON(`{"missing_critical_info":["a","b"]}`, &p))
	assert.Equal(t, StringOrList{"a", "b"}, p.MissingInfo)

	require.NoError(t, decodeJSON(`{"missing_critical_info":""}`, &p))
	assert.Empty(t, p.MissingInfo)

	assert.Error(t, decodeJSON(`{"missing_critical_info":42}`, &p))
}

func TestFormatHistory(t *testing.T) {
	out := FormatHistory([]Turn{
		{Role: "user", Content: "héllo wörld"},
		{Role: "assistant", Content: "ok"},
		{Content: "orphan"},
	}, 5)
	assert.Equal(t, "USER: héllo\nASSISTANT: ok\nUNKNOWN: orpha", out)
}

func TestLastTurns(t *testing.T) {
	turns := []Turn{{Content: "1"}, {Content: "2"}, {Content: "3"}}
	assert.Equal(t, turns[1:], LastTurns(turns, 2))
	assert.Equal(t, turns, LastTurns(turns, 10))
	assert.Equal(t, turns, LastTurns(turns, 0))
}
