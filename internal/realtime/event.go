// Copyright (C) 2026 TaskNexus
// SPDX-License-Identifier: AGPL-3.0-or-later

package realtime

import (
	"encoding/json"
	"strings"
	"time"
)

// Kind enumerates the push events the client understands.
type Kind int

const (
	KindMessage Kind = iota
	KindConnected
	KindHeartbeat
	KindTaskCreated
	KindTaskUpdated
	KindTaskAssigned
	KindOfferCreated
	KindOfferUpdated
	KindReviewCreated
	KindPayoutUpdated
	KindSettingsUpdated
	KindBoardUpdated
)

var kindNames = map[Kind]string{
	KindMessage:         "message",
	KindConnected:       "connected",
	KindHeartbeat:       "heartbeat",
	KindTaskCreated:     "task.created",
	KindTaskUpdated:     "task.updated",
	KindTaskAssigned:    "task.assigned",
	KindOfferCreated:    "offer.created",
	KindOfferUpdated:    "offer.updated",
	KindReviewCreated:   "review.created",
	KindPayoutUpdated:   "payout.updated",
	KindSettingsUpdated: "settings.updated",
	KindBoardUpdated:    "board.updated",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// String returns the wire name.
func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "message"
}

// ParseKind maps a wire name to its Kind. Unknown names are generic
// messages.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	if !ok {
		return KindMessage, false
	}
	return k, true
}

// DefaultEvents is the event list a subscriber listens to when none is given.
var DefaultEvents = []string{
	"connected",
	"heartbeat",
	"task.created",
	"task.updated",
	"task.assigned",
	"offer.created",
	"offer.updated",
	"review.created",
	"payout.updated",
	"settings.updated",
	"board.updated",
}

// Payload is the decoded body of an event. The concrete type follows the
// Kind; consumers switch on it.
type Payload interface {
	isPayload()
}

type ConnectedPayload struct {
	UserID      string    `json:"userId"`
	ConnectedAt time.Time `json:"connectedAt"`
}

type TaskPayload struct {
	TaskID     string `json:"taskId"`
	Title      string `json:"title,omitempty"`
	Status     string `json:"status,omitempty"`
	AssigneeID string `json:"assigneeId,omitempty"`
}

type OfferPayload struct {
	OfferID      string  `json:"offerId"`
	TaskID       string  `json:"taskId"`
	FreelancerID string  `json:"freelancerId,omitempty"`
	Status       string  `json:"status,omitempty"`
	Amount       float64 `json:"amount,omitempty"`
}

type ReviewPayload struct {
	ReviewID string  `json:"reviewId"`
	TaskID   string  `json:"taskId"`
	Rating   float64 `json:"rating"`
}

type PayoutPayload struct {
	PayoutID string  `json:"payoutId"`
	Status   string  `json:"status"`
	Amount   float64 `json:"amount,omitempty"`
}

type SettingsPayload struct {
	Key   string          `json:"key,omitempty"`
	Value json.RawMessage `json:"value,omitempty"`
}

type BoardPayload struct {
	BoardKey   string          `json:"boardKey"`
	BoardState json.RawMessage `json:"boardState,omitempty"`
}

// GenericPayload carries events without a dedicated type.
type GenericPayload map[string]any

func (ConnectedPayload) isPayload() {}
func (TaskPayload) isPayload() {}
func (OfferPayload) isPayload() {}
func (ReviewPayload) isPayload() {}
func (PayoutPayload) isPayload() {}
func (SettingsPayload) isPayload() {}
func (BoardPayload) isPayload() {}
func (GenericPayload) isPayload() {}

// Event is one normalized push event. Payload is nil when the data was not
// valid JSON for the event's kind.
type Event struct {
	Kind       Kind
	Type       string
	Payload    Payload
	Raw        string
	ReceivedAt time.Time
}

// Decode normalizes a named frame. Parse failures yield a nil payload.
func Decode(name, data string) Event {
	if name == "" {
		name = KindMessage.String()
	}
	kind, _ := ParseKind(name)
	return Event{
		Kind:       kind,
		Type:       name,
		Payload:    decodePayload(kind, data),
		Raw:        data,
		ReceivedAt: time.Now(),
	}
}

func decodePayload(kind Kind, data string) Payload {
	switch kind {
	case KindConnected:
		return decodeAs[ConnectedPayload](data)
	case KindTaskCreated, KindTaskUpdated, KindTaskAssigned:
		return decodeAs[TaskPayload](data)
	case KindOfferCreated, KindOfferUpdated:
		return decodeAs[OfferPayload](data)
	case KindReviewCreated:
		return decodeAs[ReviewPayload](data)
	case KindPayoutUpdated:
		return decodeAs[PayoutPayload](data)
	case KindSettingsUpdated:
		return decodeAs[SettingsPayload](data)
	case KindBoardUpdated:
		return decodeAs[BoardPayload](data)
	default:
		return decodeAs[GenericPayload](data)
	}
}

func decodeAs[T Payload](data string) Payload {
	if strings.TrimSpace(data) == "null" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(data), &v); err != nil {
		return nil
	}
	return v
}
