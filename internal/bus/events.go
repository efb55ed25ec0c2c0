package bus

import "time"

// InboundMessage is a user-authored message arriving from a channel,
// normalized before the engine interprets it.
type InboundMessage struct {
	Channel   string
	SenderID  string
	ChatID    string
	Content   string
	Timestamp time.Time
}

func (m *InboundMessage) SessionKey() string {
	return m.Channel + ":" + m.ChatID
}

type NotificationKind string

const (
	KindInsight    NotificationKind = "insight"
	KindReminder   NotificationKind = "reminder"
	KindRecovery   NotificationKind = "recovery"
	KindAssessment NotificationKind = "assessment"
	KindStatus     NotificationKind = "status"
)

// Notification is guidance pushed out to delivery channels. An empty
// Channel broadcasts to every subscribed channel.
type Notification struct {
	Channel   string
	ChatID    string
	Kind      NotificationKind
	Title     string
	Body      string
	Priority  string
	Timestamp time.Time
}
