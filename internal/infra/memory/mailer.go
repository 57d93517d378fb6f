package memory

import (
	"context"
	"log"
	"sync"
)

// Mailer records reset emails instead of sending them and logs the link.
type Mailer struct {
	linkBase string

	mu   sync.Mutex
	sent map[string]string
}

func NewMailer(linkBase string) *Mailer {
	return &Mailer{linkBase: linkBase, sent: make(map[string]string)}
}

func (m *Mailer) SendPasswordReset(_ context.Context, email, token string) error {
	m.mu.Lock()
	m.sent[email] = token
	m.mu.Unlock()
	log.Printf("password reset link for %s: %s?token=%s", email, m.linkBase, token)
	return nil
}

// LastToken returns the most recent token sent to email.
func (m *Mailer) LastToken(email string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	token, ok := m.sent[email]
	return token, ok
}
