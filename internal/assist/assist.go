// Package assist fixes or fills in video titles and descriptions with a
// generative model.
package assist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/goccy/go-json"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/resilience"
)

const (
	fallbackTitle       = "Untitled Video"
	fallbackDescription = "Subscribe, comment, and like!"
)

// ErrUnavailable indicates the model could not be reached.
var ErrUnavailable = errors.New("text assist unavailable")

// Generator produces raw model text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Result is the corrected pair. Processed is false when there was nothing to do.
type Result struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Processed   bool   `json:"-"`
}

// Assistant turns title/description drafts into a finished pair.
type Assistant struct {
	gen     Generator
	breaker *resilience.Breaker[string]
}

// NewAssistant wraps gen in a circuit breaker.
func NewAssistant(gen Generator, settings resilience.Settings) *Assistant {
	return &Assistant{gen: gen, breaker: resilience.NewBreaker[string]("text_assist", settings)}
}

// Correct asks the model to fix both fields, or to derive the missing one.
// Model output that is not the expected JSON falls back to the inputs.
func (a *Assistant) Correct(ctx context.Context, title, description string) (Result, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" && description == "" {
		metrics.AssistRequests.WithLabelValues("skipped").Inc()
		return Result{}, nil
	}
	if a == nil || a.gen == nil {
		metrics.AssistRequests.WithLabelValues("error").Inc()
		return Result{}, ErrUnavailable
	}

	text, err := a.breaker.Execute(func() (string, error) {
		return a.gen.Generate(ctx, buildPrompt(title, description))
	})
	if err != nil {
		metrics.AssistRequests.WithLabelValues("error").Inc()
		return Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	result, ok := parseOutput(text)
	if !ok {
		logging.FromContext(ctx).Warn().Str("output", truncate(text, 200)).Msg("text assist returned malformed output")
		metrics.AssistRequests.WithLabelValues("fallback").Inc()
		return fallback(title, description), nil
	}
	metrics.AssistRequests.WithLabelValues("generated").Inc()
	return fillMissing(result, title, description), nil
}

func buildPrompt(title, description string) string {
	orEmpty := func(s string) string {
		if s == "" {
			return "EMPTY"
		}
		return s
	}
	var b strings.Builder
	b.WriteString("You are an AI assistant helping a content creator.\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("- If both title and description are present: fix grammar in both.\n")
	b.WriteString("- If only title is given: write a description based on the title and end it with \"" + fallbackDescription + "\".\n")
	b.WriteString("- If only description is given: create a suitable title.\n")
	b.WriteString("- Return JSON like:\n{\n  \"finalTitle\": \"...\",\n  \"finalDescription\": \"...\"\n}\n\n")
	b.WriteString("Inputs:\n")
	b.WriteString("Title: " + orEmpty(title) + "\n")
	b.WriteString("Description: " + orEmpty(description) + "\n")
	return b.String()
}

// parseOutput reads the JSON object between the first '{' and the last '}'.
func parseOutput(text string) (Result, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return Result{}, false
	}

	var payload struct {
		FinalTitle       string `json:"finalTitle"`
		FinalDescription string `json:"finalDescription"`
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &payload); err != nil {
		return Result{}, false
	}
	if strings.TrimSpace(payload.FinalTitle) == "" && strings.TrimSpace(payload.FinalDescription) == "" {
		return Result{}, false
	}
	return Result{Title: payload.FinalTitle, Description: payload.FinalDescription, Processed: true}, true
}

func fallback(title, description string) Result {
	if title == "" {
		title = fallbackTitle
	}
	if description == "" {
		description = fallbackDescription
	}
	return Result{Title: title, Description: description, Processed: true}
}

// fillMissing completes a partial reply field by field from the fallback.
func fillMissing(result Result, title, description string) Result {
	defaults := fallback(title, description)
	if strings.TrimSpace(result.Title) == "" {
		result.Title = defaults.Title
	}
	if strings.TrimSpace(result.Description) == "" {
		result.Description = defaults.Description
	}
	return result
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
