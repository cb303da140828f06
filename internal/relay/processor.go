// internal/relay/processor.go
package relay

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"sells-service/internal/domain/conversation"
	"sells-service/internal/domain/followup"
	"sells-service/internal/domain/lead"
	"sells-service/internal/domain/visit"
	wstypes "sells-service/internal/domain/websocket"
	"sells-service/internal/events"
	"sells-service/internal/integration/openrouter"
	"sells-service/internal/pkg/counter"
	xerrors "sells-service/internal/pkg/errors"

	"go.uber.org/zap"
)

// Messenger is the WhatsApp side of the relay.
type Messenger interface {
	SendText(ctx context.Context, session, chatID, text string) error
	SendSeen(ctx context.Context, session, chatID string) error
	StartTyping(ctx context.Context, session, chatID string) error
	StopTyping(ctx context.Context, session, chatID string) error
}

type Completer interface {
	Complete(ctx context.Context, messages []openrouter.Message) (string, error)
}

type LeadStore interface {
	Touch(ctx context.Context, phone, name string, at time.Time) (*lead.Lead, bool, error)
}

type MessageStore interface {
	Append(ctx context.Context, m *conversation.Message) error
	Recent(ctx context.Context, conversationID string, limit int) ([]conversation.Message, error)
}

type VisitDesk interface {
	ActiveForPhone(ctx context.Context, phone string) (*visit.Visit, error)
	RecordLeadReply(ctx context.Context, v *visit.Visit, confirmed bool) error
	RecordFeedback(ctx context.Context, v *visit.Visit, score int) error
}

type Followups interface {
	Cancel(ctx context.Context, conversationID string) error
	ScheduleCold(ctx context.Context, chatID, session string, leadID *int64) (*followup.Followup, error)
}

type Counters interface {
	Incr(ctx context.Context, name string) error
	Snapshot(ctx context.Context) (map[string]int64, error)
}

type Limiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}

type Options struct {
	HistoryLimit  int
	Humanize      bool
	FollowupsOn   bool
	FallbackReply string
	BrokerChatID  string
	BufferDelay   time.Duration
	// FlushTimeout bounds processing of a debounced batch.
	FlushTimeout time.Duration
}

// Result is the body returned to WAHA.
type Result struct {
	Status         string `json:"status"`
	Reason         string `json:"reason,omitempty"`
	Type           string `json:"type,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`
	LeadID         int64  `json:"lead_id,omitempty"`
	Intent         string `json:"intent,omitempty"`
	Score          int    `json:"score,omitempty"`
	Fallback       bool   `json:"fallback,omitempty"`
	Buffered       bool   `json:"buffered,omitempty"`
	BufferedCount  int    `json:"buffered_count,omitempty"`
}

const (
	StatusProcessed = "processed"
	StatusIgnored   = "ignored"

	TypeReply        = "reply"
	TypeConfirmation = "confirmation_response"
	TypeFeedback     = "feedback_response"
)

const (
	replyConfirmed = "Confirmado! Estaremos te esperando. Ate mais tarde!"
	replyCancelled = "Entendi, visita cancelada. Posso ajudar a reagendar para outro dia?"
	replyGoodScore = "Obrigado pelo feedback! Ficamos felizes que gostou do atendimento. Se precisar de mais ajuda, estou aqui!"
	replyBadScore  = "Obrigado pelo feedback. Vamos trabalhar para melhorar! O que podemos fazer de diferente na proxima vez?"
	cannedDelay    = time.Second
)

// Processor turns inbound WhatsApp messages into assistant replies.
type Processor struct {
	messenger Messenger
	ai        Completer
	leads     LeadStore
	messages  MessageStore
	visits    VisitDesk
	followups Followups
	stats     Counters
	limiter   Limiter
	publisher events.Publisher
	opts      Options
	buffer    *Debouncer
	logger    *zap.Logger

	// base parents every buffered flush; abort cancels it when shutdown
	// runs out of time.
	base  context.Context
	abort context.CancelFunc

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration)
	rnd   func() float64
}

func NewProcessor(
	messenger Messenger,
	ai Completer,
	leads LeadStore,
	messages MessageStore,
	visits VisitDesk,
	followups Followups,
	stats Counters,
	limiter Limiter,
	publisher events.Publisher,
	opts Options,
	logger *zap.Logger,
) *Processor {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 20
	}
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 2 * time.Minute
	}

	base, abort := context.WithCancel(context.Background())
	p := &Processor{
		base:      base,
		abort:     abort,
		messenger: messenger,
		ai:        ai,
		leads:     leads,
		messages:  messages,
		visits:    visits,
		followups: followups,
		stats:     stats,
		limiter:   limiter,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		now:       time.Now,
		sleep:     sleepCtx,
		rnd:       rand.Float64,
	}
	if opts.BufferDelay > 0 {
		p.buffer = NewDebouncer(opts.BufferDelay, p.flushBatch)
	}
	return p
}

// Handle runs one webhook call: filtering, rate limiting, buffering and
// processing. A returned error means the message was not answered.
func (p *Processor) Handle(ctx context.Context, payload *WebhookPayload) (*Result, error) {
	p.count(ctx, counter.Received)

	in, reason := Extract(payload)
	if in == nil {
		p.count(ctx, counter.Ignored)
		p.logger.Debug("webhook ignored", zap.String("reason", reason), zap.String("event", payload.Event))
		return &Result{Status: StatusIgnored, Reason: reason}, nil
	}

	if p.limiter != nil {
		allowed, err := p.limiter.Allow(ctx, in.Phone)
		if err != nil {
			p.logger.Warn("rate limiter unavailable", zap.Error(err))
		} else if !allowed {
			p.count(ctx, counter.Ignored)
			p.logger.Warn("sender rate limited", zap.String("phone", in.Phone))
			return &Result{Status: StatusIgnored, Reason: ReasonRateLimited}, nil
		}
	}

	if p.buffer != nil {
		n := p.buffer.Add(*in)
		return &Result{
			Status:         StatusProcessed,
			Buffered:       true,
			BufferedCount:  n,
			ConversationID: conversation.IDForChat(in.ChatID),
		}, nil
	}

	return p.run(ctx, *in)
}

// Close flushes buffered messages within ctx. Flushes still running when
// ctx ends are cancelled.
func (p *Processor) Close(ctx context.Context) error {
	if p.buffer == nil {
		return nil
	}
	if err := p.buffer.Close(ctx); err != nil {
		p.abort()
		return fmt.Errorf("buffered messages not flushed: %w", err)
	}
	return nil
}

func (p *Processor) flushBatch(in Inbound) {
	ctx, cancel := context.WithTimeout(p.base, p.opts.FlushTimeout)
	defer cancel()

	if _, err := p.run(ctx, in); err != nil {
		p.logger.Error("failed to process buffered messages",
			zap.String("chat_id", in.ChatID),
			zap.Int("count", in.Count),
			zap.Error(err),
		)
	}
}

func (p *Processor) run(ctx context.Context, in Inbound) (*Result, error) {
	res, err := p.Process(ctx, in)
	if err != nil {
		p.count(ctx, counter.Failed)
		return nil, err
	}
	p.count(ctx, counter.Processed)
	return res, nil
}

// Process answers a single inbound message.
func (p *Processor) Process(ctx context.Context, in Inbound) (*Result, error) {
	convID := conversation.IDForChat(in.ChatID)
	log := p.logger.With(zap.String("conversation_id", convID))
	log.Info("processing message", zap.String("preview", preview(in.Text, 50)), zap.Int("count", in.Count))

	if err := p.messenger.SendSeen(ctx, in.Session, in.ChatID); err != nil {
		log.Warn("failed to mark as seen", zap.Error(err))
	}

	// the lead answered, so any pending follow-up is moot
	if err := p.followups.Cancel(ctx, convID); err != nil {
		log.Warn("failed to cancel followup", zap.Error(err))
	}

	l, created, err := p.leads.Touch(ctx, in.Phone, in.Name, p.now())
	if err != nil {
		return nil, fmt.Errorf("failed to record lead: %w", err)
	}
	if created {
		events.Emit(ctx, p.publisher, log,
			wstypes.NewEvent(wstypes.ChannelLeads, wstypes.EventTypeLeadCreated, wstypes.LeadEventData{
				LeadID: l.ID, Phone: l.Phone, Status: string(l.Status), Source: l.Source,
			}),
			events.MetricsStale("lead_created"),
		)
	}

	inbound := &conversation.Message{
		ConversationID: convID,
		Role:           conversation.RoleUser,
		Content:        in.Text,
		Metadata:       map[string]any{"message_id": in.MessageID},
	}
	if in.Count > 1 {
		inbound.Metadata["buffered_count"] = in.Count
	}
	if err := p.messages.Append(ctx, inbound); err != nil {
		return nil, fmt.Errorf("failed to store inbound message: %w", err)
	}
	p.emitMessage(ctx, inbound, "")

	res := &Result{Status: StatusProcessed, ConversationID: convID, LeadID: l.ID}

	active, err := p.visits.ActiveForPhone(ctx, in.Phone)
	if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
		log.Warn("failed to load active visit", zap.Error(err))
	}
	if active != nil {
		handled, err := p.answerVisit(ctx, in, convID, active, res)
		if err != nil || handled {
			return res, err
		}
	}

	history, err := p.messages.Recent(ctx, convID, p.opts.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}

	reply, err := p.ai.Complete(ctx, buildPrompt(l, active, history))
	if err != nil {
		log.Warn("ai completion failed, using fallback", zap.Error(err))
		reply = p.opts.FallbackReply
		res.Fallback = true
	}

	delay := time.Duration(0)
	if p.opts.Humanize {
		delay = HumanDelay(reply, p.rnd)
	}
	if err := p.deliver(ctx, in, reply, delay); err != nil {
		return nil, err
	}

	res.Type = TypeReply
	res.Intent = DetectIntent(in.Text)
	p.storeReply(ctx, convID, reply, map[string]any{"intent": res.Intent, "fallback": res.Fallback})

	if p.opts.FollowupsOn && !l.Status.IsTerminal() {
		if _, err := p.followups.ScheduleCold(ctx, in.ChatID, in.Session, &l.ID); err != nil {
			log.Warn("failed to schedule followup", zap.Error(err))
		}
	}

	log.Info("reply sent", zap.String("intent", res.Intent), zap.Bool("fallback", res.Fallback))
	return res, nil
}

// answerVisit handles replies to a confirmation or feedback request. A
// pending feedback request means the visit is over, so it wins over an
// unanswered confirmation. handled is false when the message is ordinary
// conversation.
func (p *Processor) answerVisit(ctx context.Context, in Inbound, convID string, v *visit.Visit, res *Result) (bool, error) {
	var reply string

	switch {
	case v.FeedbackRequested && v.FeedbackScore == nil:
		score, ok := FeedbackScore(in.Text)
		if !ok {
			return false, nil
		}
		if err := p.visits.RecordFeedback(ctx, v, score); err != nil {
			return p.visitFailed(v, err)
		}
		reply = replyBadScore
		if score >= 4 {
			reply = replyGoodScore
		}
		res.Type = TypeFeedback
		res.Score = score

	case v.ConfirmationSent && !v.LeadConfirmed:
		confirmed, ok := ConfirmationAnswer(in.Text)
		if !ok {
			return false, nil
		}
		if err := p.visits.RecordLeadReply(ctx, v, confirmed); err != nil {
			return p.visitFailed(v, err)
		}
		reply = replyCancelled
		if confirmed {
			reply = replyConfirmed
			p.notifyBroker(ctx, in.Session, v)
		}
		res.Type = TypeConfirmation

	default:
		return false, nil
	}

	if err := p.deliver(ctx, in, reply, cannedDelay); err != nil {
		return true, err
	}
	p.storeReply(ctx, convID, reply, map[string]any{"type": res.Type, "visit_uuid": v.UUID})

	p.logger.Info("visit reply processed",
		zap.String("visit_uuid", v.UUID),
		zap.String("type", res.Type),
		zap.String("status", string(v.Status)),
	)
	return true, nil
}

// visitFailed lets a reply the visit can no longer accept fall through to the
// assistant.
func (p *Processor) visitFailed(v *visit.Visit, err error) (bool, error) {
	if errors.Is(err, xerrors.ErrInvalidInput) {
		p.logger.Warn("visit reply rejected", zap.String("visit_uuid", v.UUID), zap.Error(err))
		return false, nil
	}
	return false, fmt.Errorf("failed to update visit: %w", err)
}

func (p *Processor) notifyBroker(ctx context.Context, session string, v *visit.Visit) {
	if p.opts.BrokerChatID == "" {
		return
	}
	name := v.LeadName
	if name == "" {
		name = "Lead"
	}
	text := fmt.Sprintf("Lead %s CONFIRMOU presenca para visita %s em %s as %s.",
		name, v.PropertyTitle, v.ScheduledDate(), v.ScheduledTime())
	if err := p.messenger.SendText(ctx, session, p.opts.BrokerChatID, text); err != nil {
		p.logger.Warn("failed to notify broker", zap.String("visit_uuid", v.UUID), zap.Error(err))
	}
}

// deliver shows the typing indicator for delay, then sends text.
func (p *Processor) deliver(ctx context.Context, in Inbound, text string, delay time.Duration) error {
	if delay > 0 {
		if err := p.messenger.StartTyping(ctx, in.Session, in.ChatID); err != nil {
			p.logger.Warn("failed to start typing", zap.Error(err))
		}
		p.sleep(ctx, delay)
		if err := p.messenger.StopTyping(ctx, in.Session, in.ChatID); err != nil {
			p.logger.Warn("failed to stop typing", zap.Error(err))
		}
	}

	if err := p.messenger.SendText(ctx, in.Session, in.ChatID, text); err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}
	return nil
}

// storeReply records an outbound message. The reply is already delivered, so
// a failure here is only logged.
func (p *Processor) storeReply(ctx context.Context, convID, text string, meta map[string]any) {
	msg := &conversation.Message{
		ConversationID: convID,
		Role:           conversation.RoleAssistant,
		Content:        text,
		Metadata:       meta,
	}
	if err := p.messages.Append(ctx, msg); err != nil {
		p.logger.Error("failed to store reply", zap.String("conversation_id", convID), zap.Error(err))
		return
	}
	intent, _ := meta["intent"].(string)
	p.emitMessage(ctx, msg, intent)
}

func (p *Processor) emitMessage(ctx context.Context, m *conversation.Message, intent string) {
	events.Emit(ctx, p.publisher, p.logger, wstypes.NewEvent(
		wstypes.ChannelConversations,
		wstypes.EventTypeConversationMessage,
		wstypes.ConversationEventData{
			ConversationID: m.ConversationID,
			Role:           string(m.Role),
			Preview:        preview(m.Content, 120),
			Intent:         intent,
		},
	))
}

func (p *Processor) count(ctx context.Context, name string) {
	if p.stats == nil {
		return
	}
	if err := p.stats.Incr(ctx, name); err != nil {
		p.logger.Warn("failed to update stats", zap.String("counter", name), zap.Error(err))
	}
}

func buildPrompt(l *lead.Lead, active *visit.Visit, history []conversation.Message) []openrouter.Message {
	msgs := make([]openrouter.Message, 0, len(history)+1)
	msgs = append(msgs, openrouter.Message{Role: "system", Content: SystemPrompt(l, active)})
	for _, m := range history {
		msgs = append(msgs, openrouter.Message{Role: string(m.Role), Content: m.Content})
	}
	return msgs
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
