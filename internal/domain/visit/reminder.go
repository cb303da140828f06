package visit

import (
	"fmt"
	"time"
)

type Reminder string

const (
	// ReminderLeadConfirmation asks the lead to confirm on the visit day.
	ReminderLeadConfirmation Reminder = "lead_confirmation"
	// ReminderBrokerConfirmation asks the broker to confirm availability.
	ReminderBrokerConfirmation Reminder = "broker_confirmation"
	// ReminderFeedback asks the lead to score the visit.
	ReminderFeedback Reminder = "feedback"
)

const (
	// EarlyVisitHour is the last local hour treated as an early visit, which
	// is confirmed two hours ahead instead of in the morning.
	EarlyVisitHour = 10
	// MorningHour is when same-day confirmations go out.
	MorningHour = 8

	EarlyConfirmationLead = 2 * time.Hour
	BrokerConfirmationLag = time.Minute
	FeedbackDelay         = 2 * time.Hour
	// FeedbackWindow bounds how late a feedback request may still be sent.
	FeedbackWindow = 24 * time.Hour
)

// ReminderQuery selects visits that may have a reminder due at Now.
type ReminderQuery struct {
	Now             time.Time
	From, To        time.Time
	BrokerReminders bool
	Limit           int
}

// ReminderWindow is the range of scheduled times that can have a reminder
// due at now: confirmations go out at most a day ahead, feedback up to
// FeedbackWindow after its slot.
func ReminderWindow(now time.Time) (time.Time, time.Time) {
	return now.Add(-FeedbackDelay - FeedbackWindow), now.Add(24 * time.Hour)
}

// LeadConfirmationAt is when the lead is asked to confirm a visit scheduled
// at scheduledAt, judged in loc.
func LeadConfirmationAt(scheduledAt time.Time, loc *time.Location) time.Time {
	local := scheduledAt.In(loc)
	if local.Hour() <= EarlyVisitHour {
		return scheduledAt.Add(-EarlyConfirmationLead)
	}
	return time.Date(local.Year(), local.Month(), local.Day(), MorningHour, 0, 0, 0, loc)
}

// BrokerConfirmationAt trails the lead confirmation so both don't go out at once.
func BrokerConfirmationAt(scheduledAt time.Time, loc *time.Location) time.Time {
	return LeadConfirmationAt(scheduledAt, loc).Add(BrokerConfirmationLag)
}

func FeedbackRequestAt(scheduledAt time.Time) time.Time {
	return scheduledAt.Add(FeedbackDelay)
}

// DueReminders lists the reminders of v that should be sent at now.
// Confirmations are only sent before the visit starts; feedback only within
// FeedbackWindow of its slot.
func (v *Visit) DueReminders(now time.Time, loc *time.Location) []Reminder {
	if v.Status == StatusCancelled {
		return nil
	}

	due := []Reminder{}
	upcoming := now.Before(v.ScheduledAt) && !v.Status.IsTerminal()

	if upcoming && !v.ConfirmationSent && !v.LeadConfirmed &&
		!now.Before(LeadConfirmationAt(v.ScheduledAt, loc)) {
		due = append(due, ReminderLeadConfirmation)
	}
	if upcoming && !v.BrokerConfirmationSent && !v.BrokerConfirmed &&
		!now.Before(BrokerConfirmationAt(v.ScheduledAt, loc)) {
		due = append(due, ReminderBrokerConfirmation)
	}

	feedbackAt := FeedbackRequestAt(v.ScheduledAt)
	if !v.FeedbackRequested && v.FeedbackScore == nil &&
		!now.Before(feedbackAt) && now.Before(feedbackAt.Add(FeedbackWindow)) {
		due = append(due, ReminderFeedback)
	}
	return due
}

// MarkReminderSent sets the flag recording that r went out.
func (v *Visit) MarkReminderSent(r Reminder) {
	switch r {
	case ReminderLeadConfirmation:
		v.ConfirmationSent = true
	case ReminderBrokerConfirmation:
		v.BrokerConfirmationSent = true
	case ReminderFeedback:
		v.FeedbackRequested = true
	}
}

// LeadConfirmationMessage asks the lead to confirm attendance.
func LeadConfirmationMessage(v *Visit, loc *time.Location) string {
	local := v.ScheduledAt.In(loc)
	day := "hoje"
	if LeadConfirmationAt(v.ScheduledAt, loc).In(loc).YearDay() != local.YearDay() {
		day = "amanha"
	}
	return fmt.Sprintf("Bom dia! Sua visita esta marcada para %s as %s. Confirma presenca? (Sim/Nao)",
		day, local.Format("15:04"))
}

// BrokerConfirmationMessage asks the broker to confirm availability.
func BrokerConfirmationMessage(v *Visit, loc *time.Location) string {
	name := v.LeadName
	if name == "" {
		name = "Lead"
	}
	title := v.PropertyTitle
	if title == "" {
		title = "Imovel"
	}
	return fmt.Sprintf("Bom dia! Visita com %s as %s.\nImovel: %s\nConfirma disponibilidade? (Sim/Nao)",
		name, v.ScheduledAt.In(loc).Format("15:04"), title)
}

const FeedbackRequestMessage = "Como foi sua experiencia na visita? De 1 a 5, qual nota voce daria para o atendimento do corretor?"
