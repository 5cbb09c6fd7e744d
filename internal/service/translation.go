package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/perceptionx/collector/internal/locale"
	"github.com/perceptionx/collector/internal/logger"
	"github.com/perceptionx/collector/internal/prompts"
)

// Translation is the translator's answer for one batch.
type Translation struct {
	TranslatedPrompts []string `json:"translatedPrompts"`
	TargetLanguage    string   `json:"targetLanguage"`
}

// Translator translates a batch of prompt texts in one call.
type Translator interface {
	Translate(ctx context.Context, texts []string, countryCode string) (*Translation, error)
}

// ChatTranslator translates through an OpenAI-compatible chat model.
type ChatTranslator struct {
	chat *ChatClient
}

// NewChatTranslator creates a translator backed by chat.
func NewChatTranslator(chat *ChatClient) *ChatTranslator {
	return &ChatTranslator{chat: chat}
}

// Translate asks the model for a JSON array with one translation per text.
func (t *ChatTranslator) Translate(ctx context.Context, texts []string, countryCode string) (*Translation, error) {
	language := locale.Language(countryCode)
	temp := float32(0.2)
	res, err := t.chat.Complete(ctx, ChatRequest{
		System:      prompts.TranslationSystemPrompt,
		User:        prompts.TranslationUserPrompt(language, texts),
		JSON:        true,
		Temperature: &temp,
	})
	if err != nil {
		return nil, err
	}

	raw := extractJSON(res.Content)
	if raw == "" {
		return nil, fmt.Errorf("translator returned no JSON object")
	}
	var out Translation
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse translation: %w", err)
	}
	if out.TargetLanguage == "" {
		out.TargetLanguage = language
	}
	return &out, nil
}

// TranslationPolicy decides what an onboarding run does when prompts for a
// non-English market cannot be translated.
type TranslationPolicy string

const (
	// TranslationRequired aborts the run. Non-English markets never proceed
	// with English prompts.
	TranslationRequired TranslationPolicy = "required"
	// TranslationBestEffort keeps the untranslated prompts and logs a warning.
	TranslationBestEffort TranslationPolicy = "best_effort"
)

// ParseTranslationPolicy maps a config value to a policy. Unknown values
// select TranslationRequired.
func ParseTranslationPolicy(s string) TranslationPolicy {
	if TranslationPolicy(strings.ToLower(strings.TrimSpace(s))) == TranslationBestEffort {
		return TranslationBestEffort
	}
	return TranslationRequired
}

// TranslationStep translates generated prompts for non-English markets. It
// is the one pipeline step whose failure aborts the run under the default
// policy; every other external call degrades gracefully.
type TranslationStep struct {
	translator Translator
	policy     TranslationPolicy
	retryDelay time.Duration
}

// NewTranslationStep creates a translation step. A nil translator disables
// translation entirely.
func NewTranslationStep(translator Translator, policy TranslationPolicy, retryDelay time.Duration) *TranslationStep {
	return &TranslationStep{translator: translator, policy: policy, retryDelay: retryDelay}
}

// Policy returns the step's failure policy.
func (s *TranslationStep) Policy() TranslationPolicy {
	return s.policy
}

// MaybeTranslate returns ps unchanged for GLOBAL and English-speaking
// markets. Otherwise all texts go to the translator in one batch, retried
// once after retryDelay on a timeout-class error.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - ps: generated prompts, in order.
//   - countryCode: onboarding country.
//
// Returns:
//   - []prompts.Prompt: translated prompts, same order and length as ps.
//   - error: wraps ErrTranslationFailed or ErrTranslationIncomplete under TranslationRequired.
func (s *TranslationStep) MaybeTranslate(ctx context.Context, ps []prompts.Prompt, countryCode string) ([]prompts.Prompt, error) {
	if !locale.RequiresTranslation(countryCode) || len(ps) == 0 {
		return ps, nil
	}
	ctx = logger.SetComponent(ctx, "translation")
	if s.translator == nil {
		logger.CtxWarn(ctx, "Translation disabled, keeping English prompts for %s", countryCode)
		return ps, nil
	}

	texts := make([]string, len(ps))
	for i, p := range ps {
		texts[i] = p.Text
	}

	out, err := s.translate(ctx, texts, countryCode)
	if err == nil {
		err = checkTranslation(texts, out)
	}
	if err != nil {
		if s.policy == TranslationBestEffort {
			logger.CtxWarn(ctx, "Translation for %s failed, continuing with English prompts: %v", countryCode, err)
			return ps, nil
		}
		return nil, err
	}

	translated := make([]prompts.Prompt, len(ps))
	for i, p := range ps {
		p.Text = strings.TrimSpace(out.TranslatedPrompts[i])
		translated[i] = p
	}
	logger.With(logger.Fields{logger.FieldCount: len(ps)}).
		Info(ctx, "Translated prompts to %s", out.TargetLanguage)
	return translated, nil
}

func (s *TranslationStep) translate(ctx context.Context, texts []string, countryCode string) (*Translation, error) {
	out, err := s.translator.Translate(ctx, texts, countryCode)
	if err != nil && IsTimeout(err) {
		logger.CtxWarn(ctx, "Translation timed out, retrying in %s: %v", s.retryDelay, err)
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %w", ErrTranslationFailed, ctx.Err())
		case <-time.After(s.retryDelay):
		}
		out, err = s.translator.Translate(ctx, texts, countryCode)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTranslationFailed, err)
	}
	return out, nil
}

// checkTranslation rejects answers with a missing array, a wrong length, or
// any entry that is empty or identical to its source.
func checkTranslation(source []string, out *Translation) error {
	if out == nil || len(out.TranslatedPrompts) == 0 {
		return fmt.Errorf("%w: no translated prompts returned", ErrTranslationIncomplete)
	}
	if len(out.TranslatedPrompts) != len(source) {
		return fmt.Errorf("%w: got %d translations for %d prompts", ErrTranslationIncomplete, len(out.TranslatedPrompts), len(source))
	}
	for i, t := range out.TranslatedPrompts {
		t = strings.TrimSpace(t)
		if t == "" {
			return fmt.Errorf("%w: prompt %d is empty", ErrTranslationIncomplete, i+1)
		}
		if t == strings.TrimSpace(source[i]) {
			return fmt.Errorf("%w: prompt %d was not translated", ErrTranslationIncomplete, i+1)
		}
	}
	return nil
}
