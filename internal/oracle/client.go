package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/ecomatch/internal/config"
	"github.com/timmy/ecomatch/internal/domain"
	"github.com/timmy/ecomatch/internal/logger"
	"github.com/timmy/ecomatch/internal/retrieve"
)

const maxTransportRetries = 5
const maxCorrectionRetries = 3

// Client implements C4 over an OpenAI-compatible chat-completions
// endpoint via resty, the same HTTP client mechanics the reference
// repo's vlm.go and query_understanding.go use.
type Client struct {
	client      *resty.Client
	model       string
	endpoint    string
	temperature float32
	topP        float32
}

func NewClient(cfg config.LLMConfig) *Client {
	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client.SetTimeout(timeout)

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	return &Client{
		client:      client,
		model:       cfg.Model,
		endpoint:    baseURL + "/chat/completions",
		temperature: cfg.Temperature,
		topP:        cfg.TopP,
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature"`
	TopP        float32       `json:"top_p"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// complete sends one chat-completion call, retrying transport errors
// (non-2xx / rate limit) with exponential backoff and full jitter, up
// to maxTransportRetries attempts, §4.4.1.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: c.temperature,
		TopP:        c.topP,
	}

	var lastErr error
	for attempt := 0; attempt < maxTransportRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff(attempt - 1)):
			}
		}

		var resp chatResponse
		httpResp, err := c.client.R().
			SetContext(ctx).
			SetBody(req).
			SetResult(&resp).
			Post(c.endpoint)
		if err != nil {
			lastErr = fmt.Errorf("llm transport: %w", err)
			continue
		}

		status := httpResp.StatusCode()
		if status == 429 || status >= 500 {
			lastErr = fmt.Errorf("llm transport: status %d", status)
			continue
		}
		if status < 200 || status >= 300 {
			msg := string(httpResp.Body())
			if resp.Error != nil {
				msg = resp.Error.Message
			}
			return "", domain.NewRowErrorf(domain.ErrLLMTransport, "llm error: status %d: %s", status, msg)
		}
		if resp.Error != nil {
			return "", domain.NewRowErrorf(domain.ErrLLMTransport, "llm error: %s", resp.Error.Message)
		}
		if len(resp.Choices) == 0 {
			return "", domain.NewRowErrorf(domain.ErrLLMMalformed, "llm response had no choices")
		}
		return resp.Choices[0].Message.Content, nil
	}

	return "", domain.NewRowError(domain.ErrLLMTransport, lastErr)
}

// extractJSON strips markdown code fences if present, then locates
// the first balanced {...} object, the same convention parseResponse
// uses.
func extractJSON(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	if start == -1 {
		return "", fmt.Errorf("no JSON object found in response")
	}

	depth := 0
	for i := start; i < len(content); i++ {
		switch content[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], nil
			}
		}
	}
	return "", fmt.Errorf("unbalanced JSON object in response")
}

// Decide implements C4.1. A zero-candidate call with decomposition
// permitted is not special-cased: it still goes through the normal
// prompt/parse/correction contract, with an empty candidate table, so
// the model is forced into a real decompose response (3-10
// components, quantities summing to 1.0) rather than a synthesised
// empty one, §4.4.1/§2C.
func (c *Client) Decide(ctx context.Context, row domain.InputRow, candidates []retrieve.Candidate, allowDecompose bool) (Decision, error) {
	if len(candidates) == 0 && !allowDecompose {
		return Decision{}, domain.NewRowErrorf(domain.ErrNoCandidates, "no candidates and decomposition not permitted")
	}

	system := decisionSystemPrompt(allowDecompose)
	description := strings.TrimSpace(row.BezeichnungNorm + " " + row.ProduktinfoNorm)
	user := buildDecisionPrompt(description, scopeLabel(row.Scope), row.Kategorie, candidates)

	var lastRaw, violation string
	for attempt := 0; attempt <= maxCorrectionRetries; attempt++ {
		prompt := user
		if attempt > 0 {
			prompt = user + "\n\n" + correctionPrompt(lastRaw, violation)
		}

		raw, err := c.complete(ctx, system, prompt)
		if err != nil {
			return Decision{}, err
		}
		lastRaw = raw

		var decision Decision
		decision, violation = parseDecision(raw, candidates, allowDecompose)
		if violation == "" {
			return decision, nil
		}
	}

	if strings.Contains(violation, "sum") || strings.Contains(violation, "3-10 components") {
		return Decision{}, domain.NewRowErrorf(domain.ErrDecompositionInvalid, "%s", violation)
	}
	return Decision{}, domain.NewRowErrorf(domain.ErrLLMMalformed, "%s", violation)
}

type rawDecision struct {
	Decision     string `json:"decision"`
	SelectedUUID string `json:"selected_uuid"`
	Rationale    string `json:"rationale"`
	Plausible    []struct {
		UUID     string `json:"uuid"`
		WhyShort string `json:"why_short"`
	} `json:"plausible"`
	Components []struct {
		Name     string  `json:"name"`
		Quantity float64 `json:"quantity"`
		Category string  `json:"category"`
		Note     string  `json:"note"`
	} `json:"components"`
}

// parseDecision parses and validates one LLM response against §4.4.1's
// contract, returning a human-readable violation description instead
// of an error when something is wrong, so the caller can feed it back
// into a correction prompt.
func parseDecision(raw string, candidates []retrieve.Candidate, allowDecompose bool) (Decision, string) {
	jsonStr, err := extractJSON(raw)
	if err != nil {
		return Decision{}, err.Error()
	}

	var rd rawDecision
	if err := json.Unmarshal([]byte(jsonStr), &rd); err != nil {
		return Decision{}, fmt.Sprintf("invalid JSON: %v", err)
	}

	byUUID := make(map[string]retrieve.Candidate, len(candidates))
	for _, c := range candidates {
		byUUID[c.Entry.UUID] = c
	}

	switch rd.Decision {
	case "match":
		if rd.SelectedUUID == "" {
			return Decision{}, "match decision missing selected_uuid"
		}
		if _, ok := byUUID[rd.SelectedUUID]; !ok {
			return Decision{}, fmt.Sprintf("selected_uuid %q is not among the offered candidates", rd.SelectedUUID)
		}
		return Decision{Type: domain.DecisionMatch, Match: &MatchDecision{
			SelectedUUID: rd.SelectedUUID,
			Rationale:    rd.Rationale,
		}}, ""

	case "ambiguous":
		if len(rd.Plausible) < 2 {
			return Decision{}, fmt.Sprintf("ambiguous decision must list at least 2 plausible candidates, got %d", len(rd.Plausible))
		}
		plausible := make([]domain.AmbiguousCandidate, 0, len(rd.Plausible))
		for i, p := range rd.Plausible {
			cand, ok := byUUID[p.UUID]
			if !ok {
				return Decision{}, fmt.Sprintf("plausible uuid %q is not among the offered candidates", p.UUID)
			}
			plausible = append(plausible, domain.AmbiguousCandidate{
				UUID:         p.UUID,
				ActivityName: cand.Entry.ActivityName,
				ProductName:  cand.Entry.ProductName,
				Geography:    cand.Entry.Geography,
				Unit:         cand.Entry.Unit,
				WhyShort:     p.WhyShort,
				Rank:         i + 1,
			})
		}
		return Decision{Type: domain.DecisionAmbiguous, Ambiguous: &AmbiguousDecision{
			Plausible: plausible,
			Rationale: rd.Rationale,
		}}, ""

	case "decompose":
		if !allowDecompose {
			return Decision{}, "decompose decision returned but decomposition is not permitted for this input"
		}
		if len(rd.Components) < 3 || len(rd.Components) > 10 {
			return Decision{}, fmt.Sprintf("decompose must have 3-10 components, got %d", len(rd.Components))
		}
		var sum float64
		components := make([]domain.DecompComponent, 0, len(rd.Components))
		for _, c := range rd.Components {
			sum += c.Quantity
			components = append(components, domain.DecompComponent{
				Name:     c.Name,
				Quantity: c.Quantity,
				Category: domain.ComponentCategory(c.Category),
				Note:     c.Note,
			})
		}
		if math.Abs(sum-1.0) > 0.02 {
			return Decision{}, fmt.Sprintf("component quantities must sum to 1.0 within tolerance 0.02, got sum=%.4f", sum)
		}
		return Decision{Type: domain.DecisionDecompose, Decompose: &DecomposeDecision{Components: components}}, ""

	default:
		return Decision{}, fmt.Sprintf("unrecognised decision type %q", rd.Decision)
	}
}

type rawConversion struct {
	Factor      float64 `json:"factor"`
	Explanation string  `json:"explanation"`
}

// ConvertUnit implements C4.2.
func (c *Client) ConvertUnit(ctx context.Context, description, fromUnit, toUnit string) (float64, string, error) {
	prompt := conversionPrompt(description, fromUnit, toUnit)

	for attempt := 0; attempt < 2; attempt++ {
		raw, err := c.complete(ctx, conversionSystemPrompt, prompt)
		if err != nil {
			return 0, "", err
		}

		jsonStr, err := extractJSON(raw)
		if err != nil {
			logger.Debug("unit conversion response was not JSON on attempt %d, retrying", attempt)
			continue
		}
		var rc rawConversion
		if err := json.Unmarshal([]byte(jsonStr), &rc); err != nil {
			continue
		}
		if rc.Factor > 0 && !math.IsNaN(rc.Factor) && !math.IsInf(rc.Factor, 0) && rc.Factor <= 1e6 {
			return rc.Factor, rc.Explanation, nil
		}
	}

	return 0, "", domain.NewRowErrorf(domain.ErrUnitConversionFailed,
		"could not obtain a valid conversion factor for %s -> %s", fromUnit, toUnit)
}
