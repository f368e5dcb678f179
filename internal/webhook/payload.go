package webhook

import (
	"encoding/json"

	"github.com/eliasbr/fanvoice/internal/models"
)

// Fanvue webhook payloads are not delivered in one consistent shape: the event
// type arrives under "type" or "event", the message body under "message" or
// "data", and identifiers in camelCase or snake_case. Each logical field is
// therefore extracted through an ordered list of paths; the first path present
// in the payload wins, and a field with no matching path is simply absent.

var (
	eventTypePaths = [][]string{
		{"type"},
		{"event"},
	}
	chatIDPaths = [][]string{
		{"message", "chatId"},
		{"message", "chat_id"},
		{"data", "chatId"},
		{"data", "chat_id"},
		{"chatId"},
		{"chat_id"},
	}
	senderIDPaths = [][]string{
		{"message", "sender", "uuid"},
		{"data", "sender", "uuid"},
		{"sender", "uuid"},
	}
	textPaths = [][]string{
		{"message", "text"},
		{"data", "text"},
		{"text"},
	}
)

// UnknownUser is the sender id recorded when no variant of the sender field
// is present.
const UnknownUser = "unknown"

var messageEvents = map[string]bool{
	"message.created":  true,
	"message.received": true,
}

// Payload is a parsed webhook body.
type Payload map[string]any

func ParsePayload(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, err
	}
	return p, nil
}

func (p Payload) EventType() string {
	s, _ := p.lookup(eventTypePaths)
	return s
}

// IsMessageEvent reports whether the payload announces a new inbound fan
// message.
func (p Payload) IsMessageEvent() bool {
	return messageEvents[p.EventType()]
}

// Message extracts the normalized inbound message. The result may be invalid
// (missing chat id or text); callers decide whether to drop it.
func (p Payload) Message() models.InboundMessage {
	chatID, _ := p.lookup(chatIDPaths)
	text, _ := p.lookup(textPaths)
	userID, ok := p.lookup(senderIDPaths)
	if !ok {
		userID = UnknownUser
	}
	return models.InboundMessage{ChatID: chatID, UserID: userID, Text: text}
}

// lookup walks each path in order and returns the first string value found.
func (p Payload) lookup(paths [][]string) (string, bool) {
	for _, path := range paths {
		var node any = map[string]any(p)
		found := true
		for _, key := range path {
			m, ok := node.(map[string]any)
			if !ok {
				found = false
				break
			}
			node, ok = m[key]
			if !ok {
				found = false
				break
			}
		}
		if !found {
			continue
		}
		if s, ok := node.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}
