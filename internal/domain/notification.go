package domain

import (
	"strconv"
	"strings"
	"time"
)

// TriggerSource identifies who caused a status change
type TriggerSource string

const (
	TriggerCustomer TriggerSource = "customer"
	TriggerAdmin    TriggerSource = "admin"
)

// NotificationKind classifies an outgoing message
type NotificationKind string

const (
	NotificationJoined    NotificationKind = "queue.joined"
	NotificationReady     NotificationKind = "queue.ready"
	NotificationCancelled NotificationKind = "queue.cancelled"
)

// Notification is a message addressed to a customer's mobile
type Notification struct {
	ID          string           `json:"id"`
	Kind        NotificationKind `json:"kind"`
	Destination string           `json:"destination"`
	Message     string           `json:"message"`
	EntryID     string           `json:"entryId,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// Templates holds message texts. Placeholders: {name}, {number}, {wait}.
// An empty template disables that notification.
type Templates struct {
	Joined         string
	Ready          string
	CustomerCancel string
	AdminCancel    string
}

// DefaultTemplates returns the shop's standard SMS texts
func DefaultTemplates() Templates {
	return Templates{
		Joined:         "Hi {name}, you've been added to the queue. Your queue number is {number}. Estimated wait time: {wait} minutes.",
		Ready:          "Hi {name}, the barber is ready for you. Please proceed to the barber station.",
		CustomerCancel: "Hi {name}, your queue request has been cancelled.",
		AdminCancel:    "Hi {name}, your queue number {number} has been cancelled by the shop.",
	}
}

// JoinedMessage renders the join confirmation
func (t Templates) JoinedMessage(name string, number, wait int) string {
	return render(t.Joined, name, number, wait)
}

// ReadyMessage renders the call to the barber station
func (t Templates) ReadyMessage(name string, number int) string {
	return render(t.Ready, name, number, 0)
}

// CancelMessage renders the cancellation text for the given trigger source.
// ok is false when that source has no message.
func (t Templates) CancelMessage(source TriggerSource, name string, number int) (msg string, ok bool) {
	tmpl := t.CustomerCancel
	if source == TriggerAdmin {
		tmpl = t.AdminCancel
	}
	if tmpl == "" {
		return "", false
	}
	return render(tmpl, name, number, 0), true
}

func render(tmpl, name string, number, wait int) string {
	if tmpl == "" {
		return ""
	}
	return strings.NewReplacer(
		"{name}", name,
		"{number}", strconv.Itoa(number),
		"{wait}", strconv.Itoa(wait),
	).Replace(tmpl)
}
