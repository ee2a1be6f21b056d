package testsupport

import (
	"context"
	"errors"
	"sync"
)

// SentMessage records one delivery made through the fake messenger.
type SentMessage struct {
	ChannelID string
	Text      string
}

// FakeMessenger records sends in memory and can be told to fail specific
// channels.
type FakeMessenger struct {
	mu       sync.Mutex
	sent     []SentMessage
	failFor  map[string]bool
	failNext error
}

// NewFakeMessenger builds an empty recording messenger.
func NewFakeMessenger() *FakeMessenger {
	return &FakeMessenger{failFor: make(map[string]bool)}
}

// Send records the message, or fails if the channel was marked failing.
func (m *FakeMessenger) Send(_ context.Context, channelID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failNext != nil {
		err := m.failNext
		m.failNext = nil
		return err
	}
	if m.failFor[channelID] {
		return errors.New("delivery refused for channel " + channelID)
	}
	m.sent = append(m.sent, SentMessage{ChannelID: channelID, Text: text})
	return nil
}

// FailChannel makes all future sends to the channel fail.
func (m *FakeMessenger) FailChannel(channelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failFor[channelID] = true
}

// FailNext makes only the next send fail with the given error.
func (m *FakeMessenger) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

// Sent returns a copy of the recorded deliveries.
func (m *FakeMessenger) Sent() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]SentMessage(nil), m.sent...)
}

// SentTo returns recorded deliveries for one channel.
func (m *FakeMessenger) SentTo(channelID string) []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []SentMessage
	for _, msg := range m.sent {
		if msg.ChannelID == channelID {
			out = append(out, msg)
		}
	}
	return out
}
