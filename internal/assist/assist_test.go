package assist

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/vidtube/backend/internal/resilience"
)

type generatorFunc func(ctx context.Context, prompt string) (string, error)

func (f generatorFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func TestCorrectSkipsEmptyInput(t *testing.T) {
	called := false
	a := NewAssistant(generatorFunc(func(context.Context, string) (string, error) {
		called = true
		return "", nil
	}), resilience.Settings{})

	res, err := a.Correct(context.Background(), "  ", "")
	if err != nil {
		t.Fatalf("correct: %v", err)
	}
	if res.Processed || called {
		t.Fatal("expected no upstream call for empty input")
	}
}

func TestCorrect(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		desc      string
		output    string
		wantTitle string
		wantDesc  string
	}{
		{
			name:      "json wrapped in prose",
			title:     "my vlog",
			desc:      "i went to the beech",
			output:    "Sure!\n```json\n{\"finalTitle\": \"My Vlog\", \"finalDescription\": \"I went to the beach.\"}\n```",
			wantTitle: "My Vlog",
			wantDesc:  "I went to the beach.",
		},
		{
			name:      "malformed output keeps title",
			title:     "my vlog",
			output:    "I cannot help with that",
			wantTitle: "my vlog",
			wantDesc:  fallbackDescription,
		},
		{
			name:      "malformed output without title",
			desc:      "a day at the beach",
			output:    "{not json}",
			wantTitle: fallbackTitle,
			wantDesc:  "a day at the beach",
		},
		{
			name:      "reply missing description",
			title:     "my vlog",
			output:    `{"finalTitle": "My Vlog"}`,
			wantTitle: "My Vlog",
			wantDesc:  fallbackDescription,
		},
		{
			name:      "reply with blank title",
			desc:      "a day at the beach",
			output:    `{"finalTitle": "  ", "finalDescription": "A day at the beach."}`,
			wantTitle: fallbackTitle,
			wantDesc:  "A day at the beach.",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var prompt string
			a := NewAssistant(generatorFunc(func(_ context.Context, p string) (string, error) {
				prompt = p
				return tc.output, nil
			}), resilience.Settings{})

			res, err := a.Correct(context.Background(), tc.title, tc.desc)
			if err != nil {
				t.Fatalf("correct: %v", err)
			}
			if res.Title != tc.wantTitle || res.Description != tc.wantDesc || !res.Processed {
				t.Fatalf("unexpected result %+v", res)
			}
			if tc.title == "" && !strings.Contains(prompt, "Title: EMPTY") {
				t.Fatalf("expected prompt to mark missing title, got %q", prompt)
			}
		})
	}
}

func TestCorrectUpstreamFailure(t *testing.T) {
	calls := 0
	a := NewAssistant(generatorFunc(func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("quota exceeded")
	}), resilience.Settings{FailureThreshold: 1, OpenTimeout: time.Minute})

	if _, err := a.Correct(context.Background(), "t", ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if _, err := a.Correct(context.Background(), "t", ""); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable from open breaker, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected breaker to stop the second call, got %d calls", calls)
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{in: "short", n: 10, want: "short"},
		{in: "abcdef", n: 3, want: "abc"},
		{in: "héllo", n: 2, want: "h"},
		{in: "日本語", n: 4, want: "日"},
		{in: "日本語", n: 2, want: ""},
	}
	for _, tc := range tests {
		got := truncate(tc.in, tc.n)
		if got != tc.want || !utf8.ValidString(got) {
			t.Errorf("truncate(%q, %d) = %q, want %q", tc.in, tc.n, got, tc.want)
		}
	}
}
