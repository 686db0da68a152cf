package entities

import "strings"

// MessageKind classifies a line of the automation stream.
type MessageKind string

const (
	MessageProgress MessageKind = "progress"
	MessageStatus   MessageKind = "status"
	MessageSuccess  MessageKind = "success"
	MessageWarning  MessageKind = "warning"
	MessageError    MessageKind = "error"
	MessageTimeout  MessageKind = "timeout"
	MessageCritical MessageKind = "critical"
)

// Message is a single human-readable line produced by an automation run.
type Message struct {
	Kind MessageKind `json:"kind"`
	Text string      `json:"text"`
}

func Progress(text string) Message { return Message{Kind: MessageProgress, Text: text} }
func Status(text string) Message   { return Message{Kind: MessageStatus, Text: text} }
func Success(text string) Message  { return Message{Kind: MessageSuccess, Text: text} }
func Warning(text string) Message  { return Message{Kind: MessageWarning, Text: text} }
func Failure(text string) Message  { return Message{Kind: MessageError, Text: text} }

// String renders the message as one newline-terminated chunk of the stream.
func (m Message) String() string {
	if strings.HasSuffix(m.Text, "\n") {
		return m.Text
	}
	return m.Text + "\n"
}

// Failed reports whether the message ends a run without completing it.
func (m Message) Failed() bool {
	switch m.Kind {
	case MessageError, MessageTimeout, MessageCritical:
		return true
	}
	return false
}
