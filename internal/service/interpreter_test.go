package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitewand/sitewand-backend/internal/domain"
)

const validProposalJSON = `{
	"understood": true,
	"interpretation": "Change the headline",
	"operations": [
		{"type": "update", "section": {"findSection": "hero"}, "path": "props.headline", "value": "Welcome"}
	],
	"riskLevel": "low",
	"summary": "Update the hero headline"
}`

func TestExtractJSONFromCodeFence(t *testing.T) {
	fenced := "Here you go:\n```json\n{\"understood\": true}\n```\nanything after"
	assert.Equal(t, `{"understood": true}`, extractJSON(fenced))

	bare := `{"understood": false}`
	assert.Equal(t, bare, extractJSON(bare))
}

func TestParseProposalValid(t *testing.T) {
	proposal, err := parseProposal(validProposalJSON)
	require.NoError(t, err)

	assert.True(t, proposal.Understood)
	require.Len(t, proposal.Operations, 1)
	assert.Equal(t, domain.OpUpdate, proposal.Operations[0].Type)
	assert.Equal(t, "hero", proposal.Operations[0].Section.FindSection)
	assert.Equal(t, domain.RiskLow, proposal.RiskLevel)
}

func TestParseProposalNotUnderstoodDropsOperations(t *testing.T) {
	proposal, err := parseProposal(`{
		"understood": false,
		"interpretation": "unclear",
		"operations": [{"type": "update", "section": 0, "path": "props.x"}],
		"riskLevel": "low",
		"summary": ""
	}`)
	require.NoError(t, err)

	assert.False(t, proposal.Understood)
	assert.Nil(t, proposal.Operations)
}

func TestParseProposalRejectsBadOutput(t *testing.T) {
	cases := map[string]string{
		"not json":   `the headline is now Welcome`,
		"bad risk":   `{"understood": false, "riskLevel": "scary", "interpretation": "x"}`,
		"no ops":     `{"understood": true, "riskLevel": "low", "summary": "s", "operations": []}`,
		"invalid op": `{"understood": true, "riskLevel": "low", "summary": "s", "operations": [{"type": "explode"}]}`,
		"bad path":   `{"understood": true, "riskLevel": "low", "summary": "s", "operations": [{"type": "update", "section": 0, "path": "0.broken"}]}`,
		"no summary": `{"understood": true, "riskLevel": "low", "summary": "", "operations": [{"type": "reorder", "from": 0, "to": 1}]}`,
	}

	for name, raw := range cases {
		_, err := parseProposal(raw)
		assert.Error(t, err, name)
	}
}

func TestInterpretCallsChatCompletions(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": "```json\n" + validProposalJSON + "\n```"}},
			},
		})
	}))
	defer server.Close()

	interp := NewInterpreter(server.URL, "test-key", "test-model")
	proposal, err := interp.Interpret(context.Background(), InterpretInput{
		Request:   "make the headline say Welcome",
		SiteName:  "Roofers",
		PageTitle: "Home",
	})
	require.NoError(t, err)

	assert.Equal(t, "/chat/completions", gotPath)
	assert.Equal(t, "Bearer test-key", gotAuth)
	assert.Equal(t, "test-model", gotBody["model"])
	assert.True(t, proposal.Understood)
	assert.Equal(t, "Update the hero headline", proposal.Summary)

	messages := gotBody["messages"].([]interface{})
	require.Len(t, messages, 2)
	user := messages[1].(map[string]interface{})
	assert.Contains(t, user["content"], "make the headline say Welcome")
	assert.Contains(t, user["content"], "Roofers")
}

func TestInterpretSurfacesProviderErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error": "overloaded"}`, http.StatusServiceUnavailable)
	}))
	defer server.Close()

	interp := NewInterpreter(server.URL, "", "test-model")
	_, err := interp.Interpret(context.Background(), InterpretInput{Request: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestInterpretRejectsEmptyResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"choices": []interface{}{}})
	}))
	defer server.Close()

	interp := NewInterpreter(server.URL, "", "test-model")
	_, err := interp.Interpret(context.Background(), InterpretInput{Request: "anything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no text")
}
