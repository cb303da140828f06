// internal/service/followup/followup.go
package followup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/followup"
	"sells-service/internal/domain/lead"
	xerrors "sells-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// SweepBatch caps how many due follow-ups one sweep sends.
const SweepBatch = 50

type Store interface {
	Upsert(ctx context.Context, f *followup.Followup) error
	Delete(ctx context.Context, conversationID string) error
	Due(ctx context.Context, now time.Time, limit int) ([]followup.Followup, error)
}

type LeadFinder interface {
	FindByID(ctx context.Context, id int64) (*lead.Lead, error)
}

type Sender interface {
	SendText(ctx context.Context, session, chatID, text string) error
}

type MessageStore interface {
	Append(ctx context.Context, m *conversation.Message) error
}

type FollowupService struct {
	store    Store
	leads    LeadFinder
	sender   Sender
	messages MessageStore
	logger   *zap.Logger

	now func() time.Time
}

func NewFollowupService(store Store, leads LeadFinder, sender Sender, messages MessageStore, logger *zap.Logger) *FollowupService {
	return &FollowupService{
		store:    store,
		leads:    leads,
		sender:   sender,
		messages: messages,
		logger:   logger,
		now:      time.Now,
	}
}

// ScheduleCold starts the cold-lead sequence for a conversation at tier 0.
func (s *FollowupService) ScheduleCold(ctx context.Context, chatID, session string, leadID *int64) (*followup.Followup, error) {
	f := &followup.Followup{
		ConversationID: conversation.IDForChat(chatID),
		LeadID:         leadID,
		ChatID:         chatID,
		Session:        session,
		Kind:           followup.KindCold,
		Tier:           0,
		DueAt:          s.now().Add(followup.ColdTiers[0]),
	}
	if err := s.store.Upsert(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Cancel drops the pending follow-up of a conversation.
func (s *FollowupService) Cancel(ctx context.Context, conversationID string) error {
	return s.store.Delete(ctx, conversationID)
}

// Sweep sends every due follow-up and advances it to its next tier. It
// returns the number of messages sent. A failed send leaves the follow-up in
// place for the next sweep.
func (s *FollowupService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	due, err := s.store.Due(ctx, now, SweepBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to load due followups: %w", err)
	}

	sent := 0
	for _, f := range due {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}

		text, skip, err := s.message(ctx, f)
		if err != nil {
			s.logger.Error("failed to prepare followup", zap.String("conversation_id", f.ConversationID), zap.Error(err))
			continue
		}
		if skip {
			if err := s.store.Delete(ctx, f.ConversationID); err != nil {
				s.logger.Error("failed to drop followup", zap.String("conversation_id", f.ConversationID), zap.Error(err))
			}
			continue
		}

		if err := s.sender.SendText(ctx, f.Session, f.ChatID, text); err != nil {
			s.logger.Warn("followup send failed",
				zap.String("conversation_id", f.ConversationID),
				zap.String("kind", string(f.Kind)),
				zap.Int("tier", f.Tier),
				zap.Error(err),
			)
			continue
		}
		sent++

		msg := &conversation.Message{
			ConversationID: f.ConversationID,
			Role:           conversation.RoleAssistant,
			Content:        text,
			Metadata:       map[string]any{"followup_kind": string(f.Kind), "tier": f.Tier},
		}
		if err := s.messages.Append(ctx, msg); err != nil {
			s.logger.Error("failed to store followup message", zap.String("conversation_id", f.ConversationID), zap.Error(err))
		}

		if next, ok := f.Next(now); ok {
			err = s.store.Upsert(ctx, &next)
		} else {
			err = s.store.Delete(ctx, f.ConversationID)
		}
		if err != nil {
			s.logger.Error("failed to advance followup", zap.String("conversation_id", f.ConversationID), zap.Error(err))
		}

		s.logger.Info("followup sent",
			zap.String("conversation_id", f.ConversationID),
			zap.String("kind", string(f.Kind)),
			zap.Int("tier", f.Tier),
		)
	}

	return sent, nil
}

// message picks the text for f. skip is true when the lead no longer needs
// this follow-up.
func (s *FollowupService) message(ctx context.Context, f followup.Followup) (string, bool, error) {
	var l *lead.Lead
	if f.LeadID != nil {
		found, err := s.leads.FindByID(ctx, *f.LeadID)
		switch {
		case errors.Is(err, xerrors.ErrNotFound):
			return "", true, nil
		case err != nil:
			return "", false, err
		}
		l = found
	}

	switch f.Kind {
	case followup.KindLanding:
		if l == nil || l.Status != lead.StatusNew || l.PropertyTitle == nil {
			return "", true, nil
		}
		neighborhood := ""
		if len(l.Preferences.Neighborhoods) > 0 {
			neighborhood = l.Preferences.Neighborhoods[0]
		}
		return followup.LandingMessage(*l.PropertyTitle, l.Preferences.Bedrooms, l.PropertyArea, neighborhood), false, nil
	default:
		if l != nil && l.Status.IsTerminal() {
			return "", true, nil
		}
		return followup.ColdMessage(f.Tier), false, nil
	}
}
