package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sitewand/sitewand-backend/internal/content"
	"github.com/sitewand/sitewand-backend/internal/domain"
)

// InterpretInput carries everything the external interpretation service
// needs to turn a free-text request into candidate operations.
type InterpretInput struct {
	Request   string
	Document  domain.Document
	SiteName  string
	PageTitle string
}

// Interpreter translates free text into a candidate operation batch
// plus risk assessment. The actual language model lives behind an
// OpenAI-compatible chat completions endpoint.
type Interpreter interface {
	Interpret(ctx context.Context, input InterpretInput) (*domain.EditProposal, error)
}

type chatInterpreter struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

// NewInterpreter creates the HTTP-backed interpreter client
func NewInterpreter(baseURL, apiKey, model string) Interpreter {
	return &chatInterpreter{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
	}
}

// Interpret calls the model and validates its output strictly. Anything
// malformed is an error; a well-formed "I did not understand" response
// is a valid proposal with understood=false and no operations.
func (c *chatInterpreter) Interpret(ctx context.Context, input InterpretInput) (*domain.EditProposal, error) {
	userMessage, err := buildUserMessage(input)
	if err != nil {
		return nil, fmt.Errorf("failed to build interpreter message: %w", err)
	}

	rawText, err := c.callProvider(ctx, interpreterSystemPrompt, userMessage)
	if err != nil {
		return nil, fmt.Errorf("interpreter call failed: %w", err)
	}

	proposal, err := parseProposal(rawText)
	if err != nil {
		return nil, fmt.Errorf("interpreter response rejected: %w", err)
	}

	return proposal, nil
}

// callProvider posts one chat completion request and returns the
// assistant text.
func (c *chatInterpreter) callProvider(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	reqBody := map[string]interface{}{
		"model":      c.model,
		"max_tokens": 2048,
		"messages": []map[string]string{
			{"role": "system", "content": systemPrompt},
			{"role": "user", "content": userMessage},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := c.baseURL + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("interpreter API error (%d): %s", resp.StatusCode, truncateStr(string(respBody), 200))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("failed to parse response JSON: %w", err)
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("no text in interpreter response")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

// parseProposal extracts, decodes, and validates the model output
func parseProposal(rawText string) (*domain.EditProposal, error) {
	jsonStr := extractJSON(rawText)

	var proposal domain.EditProposal
	if err := json.Unmarshal([]byte(jsonStr), &proposal); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if !proposal.RiskLevel.Valid() {
		return nil, fmt.Errorf("riskLevel must be low/medium/high (got %q)", proposal.RiskLevel)
	}

	if !proposal.Understood {
		// A not-understood proposal must not carry operations; drop any
		// the model emitted anyway.
		proposal.Operations = nil
		return &proposal, nil
	}

	if len(proposal.Operations) == 0 {
		return nil, fmt.Errorf("understood proposal carries no operations")
	}
	if errs := content.ValidateOperations(proposal.Operations); len(errs) > 0 {
		return nil, fmt.Errorf("invalid operations: %v", errs[0])
	}
	if proposal.Summary == "" {
		return nil, fmt.Errorf("proposal has no summary")
	}

	return &proposal, nil
}

// extractJSON pulls JSON out of a markdown code fence if present
func extractJSON(rawText string) string {
	if idx := strings.Index(rawText, "```"); idx >= 0 {
		start := strings.Index(rawText[idx:], "\n")
		if start >= 0 {
			end := strings.Index(rawText[idx+start+1:], "```")
			if end >= 0 {
				return strings.TrimSpace(rawText[idx+start+1 : idx+start+1+end])
			}
		}
	}
	return rawText
}

func buildUserMessage(input InterpretInput) (string, error) {
	docJSON, err := json.MarshalIndent(input.Document, "", "  ")
	if err != nil {
		return "", err
	}

	var parts []string
	parts = append(parts, "## Site")
	parts = append(parts, fmt.Sprintf("- Name: %s", input.SiteName))
	parts = append(parts, fmt.Sprintf("- Page: %s", input.PageTitle))
	parts = append(parts, "")
	parts = append(parts, "## Current page content")
	parts = append(parts, string(docJSON))
	parts = append(parts, "")
	parts = append(parts, "## Edit request")
	parts = append(parts, input.Request)

	return strings.Join(parts, "\n"), nil
}

const interpreterSystemPrompt = `You translate a website owner's plain-language edit request into a list of typed operations over the page's content sections.

The page content is an ordered list of sections. Each section has an "id", a "componentType", an "order" position, and a "props" object whose values may be scalars, nested objects, or arrays of objects.

## Operations
- {"type":"update","section":REF,"path":"props.FIELD","value":V} — overwrite a scalar or object field
- {"type":"add_section","position":N,"componentType":"...","props":{...}} — insert a new section
- {"type":"remove_section","section":REF} — delete a section
- {"type":"reorder","from":N,"to":N} — move a section to a new position
- {"type":"add_item","section":REF,"path":"props.FIELD","value":V} — append to an array field
- {"type":"remove_item","section":REF,"path":"props.FIELD","itemIndex":N} — delete an array element
- {"type":"update_item","section":REF,"path":"props.FIELD","itemIndex":N,"field":"...","value":V} — overwrite one field of one array element

REF is either a section index (number) or {"findSection":"componentType"}.
Paths are dotted strings under props. Never invent fields that do not fit the section's componentType.

## Risk level
- low: wording, colors, single-field tweaks
- medium: multiple sections changed, images swapped, items added or removed
- high: sections added or removed, reordering, anything that changes page structure

## Output
Return ONLY this JSON, no other text:
{
  "understood": boolean,
  "interpretation": "what you believe the user wants",
  "operations": [...],
  "riskLevel": "low" | "medium" | "high",
  "summary": "one sentence describing the change in plain language"
}

If the request is ambiguous, unrelated to page content, or impossible with these operations, set understood=false, leave operations empty, and explain why in interpretation.`

// truncateStr truncates a string to maxLen bytes
func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
