// Package chat is the assistant conversation service. Every user turn yields
// exactly one persisted assistant turn, whether the model call succeeds,
// returns nothing, or fails outright.
package chat

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/spendwise/internal/domain"
	"github.com/dvloznov/spendwise/internal/report"
	"github.com/dvloznov/spendwise/internal/store"
)

const preamble = "You are a personal finance assistant. Answer the user's question " +
	"using only the financial report below. Be concise and concrete; quote " +
	"amounts from the report when relevant.\n\n"

// EmptyResponseFallback is persisted when the model returns an empty answer.
const EmptyResponseFallback = "No answer could be generated."

// Service runs one conversation turn end to end.
type Service struct {
	store    *store.Store
	provider ModelProvider
	notifier Notifier
	log      zerolog.Logger
	now      func() time.Time
}

func NewService(st *store.Store, provider ModelProvider, notifier Notifier, log zerolog.Logger) *Service {
	return &Service{
		store:    st,
		provider: provider,
		notifier: notifier,
		log:      log.With().Str("component", "chat").Logger(),
		now:      time.Now,
	}
}

// Ask persists the user's message, asks the model against a fresh report and
// persists the assistant's reply. The user turn is stored before the model
// call so it survives a call that never returns. Model failures become the
// assistant turn's text instead of an error; only local store failures
// propagate.
func (s *Service) Ask(ctx context.Context, text string) (domain.AiMessage, error) {
	userMsg := domain.AiMessage{
		Text:      text,
		IsAi:      false,
		Timestamp: s.now().UnixMilli(),
	}
	if _, err := s.store.PutMessage(ctx, userMsg); err != nil {
		return domain.AiMessage{}, fmt.Errorf("chat.Ask: persist user message: %w", err)
	}
	s.notifier.Notify()

	answer := s.generate(ctx, text)

	aiMsg := domain.AiMessage{
		Text:      answer,
		IsAi:      true,
		Timestamp: s.now().UnixMilli(),
	}
	id, err := s.store.PutMessage(ctx, aiMsg)
	if err != nil {
		return domain.AiMessage{}, fmt.Errorf("chat.Ask: persist assistant message: %w", err)
	}
	aiMsg.ID = id
	s.notifier.Notify()
	return aiMsg, nil
}

// History returns the conversation oldest first.
func (s *Service) History(ctx context.Context) ([]domain.AiMessage, error) {
	msgs, err := s.store.ListMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("chat.History: %w", err)
	}
	return msgs, nil
}

func (s *Service) generate(ctx context.Context, question string) string {
	txs, budgets, err := s.store.Snapshot(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("Reading report snapshot failed")
		return fmt.Sprintf("Something went wrong: %v", err)
	}

	prompt := preamble +
		report.Build(report.Snapshot{Transactions: txs, Budgets: budgets, Now: s.now()}) +
		"\n\nUSER QUESTION:\n" + question

	answer, err := s.provider.Generate(ctx, prompt)
	if err != nil {
		s.log.Warn().Err(err).Msg("Model call failed")
		return fmt.Sprintf("Something went wrong: %v", err)
	}
	if answer == "" {
		return EmptyResponseFallback
	}
	return answer
}
