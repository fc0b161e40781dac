package domain

import "time"

// Speaker identifies who produced a transcript turn.
type Speaker string

const (
	SpeakerUser      Speaker = "user"
	SpeakerAssistant Speaker = "assistant"
)

// Turn is one entry of a ticket transcript.
type Turn struct {
	Speaker Speaker
	Text    string
	At      time.Time
}
