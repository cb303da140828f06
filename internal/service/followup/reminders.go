// internal/service/followup/reminders.go
package followup

import (
	"context"
	"fmt"
	"time"

	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/visit"
	wstypes "sells-service/internal/domain/websocket"
	"sells-service/internal/events"

	"go.uber.org/zap"
)

type VisitStore interface {
	ListReminderCandidates(ctx context.Context, q visit.ReminderQuery) ([]visit.Visit, error)
	Update(ctx context.Context, v *visit.Visit) error
}

type ReminderConfig struct {
	Session      string
	BrokerChatID string
	Location     *time.Location
}

// ReminderService sends the visit-day confirmation requests and the
// post-visit feedback request.
type ReminderService struct {
	visits    VisitStore
	sender    Sender
	messages  MessageStore
	publisher events.Publisher
	cfg       ReminderConfig
	logger    *zap.Logger

	now func() time.Time
}

func NewReminderService(visits VisitStore, sender Sender, messages MessageStore, publisher events.Publisher, cfg ReminderConfig, logger *zap.Logger) *ReminderService {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &ReminderService{
		visits:    visits,
		sender:    sender,
		messages:  messages,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep sends every due visit reminder and returns how many went out. A
// reminder whose send fails is retried on the next sweep.
func (s *ReminderService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	from, to := visit.ReminderWindow(now)

	candidates, err := s.visits.ListReminderCandidates(ctx, visit.ReminderQuery{
		Now:             now,
		From:            from,
		To:              to,
		BrokerReminders: s.cfg.BrokerChatID != "",
		Limit:           SweepBatch,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to load visit reminders: %w", err)
	}

	sent := 0
	for i := range candidates {
		if ctx.Err() != nil {
			return sent, ctx.Err()
		}
		v := &candidates[i]

		changed := false
		for _, r := range v.DueReminders(now, s.cfg.Location) {
			if !s.send(ctx, v, r) {
				continue
			}
			v.MarkReminderSent(r)
			changed = true
			sent++
		}
		if !changed {
			continue
		}

		if err := s.visits.Update(ctx, v); err != nil {
			s.logger.Error("failed to record visit reminder", zap.String("visit_uuid", v.UUID), zap.Error(err))
			continue
		}
		events.Emit(ctx, s.publisher, s.logger, wstypes.NewEvent(wstypes.ChannelVisits, wstypes.EventTypeVisitUpdated, wstypes.VisitEventData{
			VisitUUID:     v.UUID,
			Status:        string(v.Status),
			BrokerID:      v.BrokerID,
			FeedbackScore: v.FeedbackScore,
		}))
	}

	return sent, nil
}

// send delivers one reminder. It reports false when nothing went out.
func (s *ReminderService) send(ctx context.Context, v *visit.Visit, r visit.Reminder) bool {
	log := s.logger.With(zap.String("visit_uuid", v.UUID), zap.String("reminder", string(r)))

	chatID := v.LeadPhone + "@c.us"
	var text string
	switch r {
	case visit.ReminderLeadConfirmation:
		text = visit.LeadConfirmationMessage(v, s.cfg.Location)
	case visit.ReminderBrokerConfirmation:
		if s.cfg.BrokerChatID == "" {
			return false
		}
		chatID = s.cfg.BrokerChatID
		text = visit.BrokerConfirmationMessage(v, s.cfg.Location)
	case visit.ReminderFeedback:
		text = visit.FeedbackRequestMessage
	default:
		return false
	}

	if err := s.sender.SendText(ctx, s.cfg.Session, chatID, text); err != nil {
		log.Warn("visit reminder send failed", zap.Error(err))
		return false
	}

	if r != visit.ReminderBrokerConfirmation {
		msg := &conversation.Message{
			ConversationID: conversation.IDForChat(chatID),
			Role:           conversation.RoleAssistant,
			Content:        text,
			Metadata:       map[string]any{"type": string(r), "visit_uuid": v.UUID},
		}
		if err := s.messages.Append(ctx, msg); err != nil {
			log.Error("failed to store visit reminder", zap.Error(err))
		}
	}

	log.Info("visit reminder sent")
	return true
}
