// Package notify surfaces user-visible messages: the console's equivalent of a toast.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
)

//go:generate mockgen -destination=mock_notify/mock_notifier.go -package=mock_notify mergealert/services/notify Notifier

// Notifier shows a message to the person at the console.
type Notifier interface {
	Error(msg string)
	Success(msg string)
}

// Console writes messages to w and mirrors them to the structured log.
type Console struct {
	mu  sync.Mutex
	w   io.Writer
	log *slog.Logger
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w, log: slog.Default().With("component", "notify")}
}

func (c *Console) Error(msg string) {
	c.log.Warn("user notification", "level", "error", "message", msg)
	c.write("error: " + msg)
}

func (c *Console) Success(msg string) {
	c.log.Debug("user notification", "level", "success", "message", msg)
	c.write(msg)
}

func (c *Console) write(line string) {
	if c.w == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Discard drops every message.
type Discard struct{}

func (Discard) Error(string)   {}
func (Discard) Success(string) {}
