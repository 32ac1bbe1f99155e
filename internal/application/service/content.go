package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"medremind/internal/domain/entity"
	"medremind/internal/infrastructure/backend"
	"medremind/internal/pkg/logger"
)

// fallbackUsername is used when the record store cannot resolve a name.
const fallbackUsername = "there"

// ContentBuilder produces notification titles and bodies. The username
// comes from the remote record store and is resolved once per session.
type ContentBuilder struct {
	client *backend.Client
	log    logger.Logger

	mu       sync.Mutex
	username string
}

// NewContentBuilder creates a new ContentBuilder.
func NewContentBuilder(client *backend.Client, log logger.Logger) *ContentBuilder {
	return &ContentBuilder{client: client, log: log}
}

// ResolveUsername looks up and caches the user's display name. Lookup
// failures are logged and leave the generic fallback in place.
func (b *ContentBuilder) ResolveUsername(ctx context.Context) {
	b.mu.Lock()
	resolved := b.username != ""
	b.mu.Unlock()
	if resolved {
		return
	}

	name, err := b.client.LookupUsername(ctx)
	if err != nil {
		b.log.Warn(fmt.Sprintf("Username lookup failed, using fallback: %v", err))
		return
	}
	b.mu.Lock()
	b.username = name
	b.mu.Unlock()
	b.log.Info(fmt.Sprintf("Resolved username %q from record store", name))
}

// Build returns the notification title and body for a reminder firing
// at the given time.
func (b *ContentBuilder) Build(rem *entity.Reminder, fireAt time.Time) (title, body string) {
	b.mu.Lock()
	name := b.username
	b.mu.Unlock()
	if name == "" {
		name = fallbackUsername
	}

	body = fmt.Sprintf("Hey, %s! Time to take %s", name, rem.Name)
	if rem.Dosage != "" {
		body = fmt.Sprintf("%s (%s)", body, rem.Dosage)
	}
	return greeting(fireAt), body
}

func greeting(t time.Time) string {
	switch hour := t.Hour(); {
	case hour < 12:
		return "Good morning"
	case hour < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}
