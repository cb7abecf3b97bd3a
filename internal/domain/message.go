package domain

import "time"

// Message is one outbound delivery of buffered entries.
type Message struct {
	// ID identifies the delivery attempt in logs and transport headers.
	ID string

	From    string
	To      []string
	Subject string
	Body    string
	SentAt  time.Time
}

// Size returns the body length in bytes.
func (m Message) Size() int {
	return len(m.Body)
}
