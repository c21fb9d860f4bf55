package notify

import (
	"context"
	"log"
)

// LogNotifier prints the code to the process log. Development only; it
// exposes the plaintext code.
type LogNotifier struct{}

// NewLogNotifier returns a notifier that logs codes instead of delivering them.
func NewLogNotifier() *LogNotifier {
	return &LogNotifier{}
}

// SendCode logs the code for the given email.
func (n *LogNotifier) SendCode(_ context.Context, email, code string) error {
	log.Printf("otp: code for %s is %s", email, code)
	return nil
}
