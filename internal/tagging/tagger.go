// Package tagging assigns a category to a task by asking a language model.
// Classification is best-effort: every failure ends in DefaultCategory.
package tagging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"
)

// DefaultCategory is used whenever no provider produced a usable answer
const DefaultCategory = "Others"

// Categories are the labels a task can carry
var Categories = []string{
	"Work", "Urgent", "Personal", "Shopping", "Travel",
	"Health", "Learning", "Finance", "Others",
}

const defaultTimeout = 5 * time.Second

// Provider completes a prompt with a language model
type Provider interface {
	Name() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Tagger asks each provider in turn until one returns a known category
type Tagger struct {
	providers []Provider
	timeout   time.Duration
}

// New creates a Tagger. Each provider call is bounded by timeout.
func New(timeout time.Duration, providers ...Provider) *Tagger {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Tagger{
		providers: providers,
		timeout:   timeout,
	}
}

// Classify returns one of Categories for the task
func (t *Tagger) Classify(ctx context.Context, title, description string) string {
	if len(t.providers) == 0 {
		return DefaultCategory
	}

	prompt := BuildPrompt(title, description)
	for _, p := range t.providers {
		answer, err := t.complete(ctx, p, prompt)
		if err != nil {
			slog.Warn("Tagging provider failed", "provider", p.Name(), "error", err)
			continue
		}
		if category, ok := Normalize(answer); ok {
			slog.Debug("Task tagged", "provider", p.Name(), "category", category)
			return category
		}
		slog.Warn("Tagging provider returned unknown category", "provider", p.Name(), "answer", answer)
	}

	return DefaultCategory
}

func (t *Tagger) complete(ctx context.Context, p Provider, prompt string) (answer string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("provider panic: %v", r)
		}
	}()

	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return p.Complete(callCtx, prompt)
}

// BuildPrompt asks for exactly one category word
func BuildPrompt(title, description string) string {
	return fmt.Sprintf("Generate ONE single-word category for this task from the following: %s.\n\nTitle: %s\nDescription: %s\nCategory:",
		strings.Join(Categories, ", "), title, description)
}

// Normalize maps a model answer such as " work." or "Shopping, Personal"
// onto a known category
func Normalize(answer string) (string, bool) {
	fields := strings.FieldsFunc(answer, func(r rune) bool {
		return r == ',' || r == '\n' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return "", false
	}

	word := strings.TrimFunc(fields[0], func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	if word == "" && len(fields) > 1 {
		word = strings.TrimFunc(fields[1], func(r rune) bool { return !unicode.IsLetter(r) })
	}
	for _, c := range Categories {
		if strings.EqualFold(word, c) {
			return c, true
		}
	}
	return "", false
}
