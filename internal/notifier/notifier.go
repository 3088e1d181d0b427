package notifier

import (
	"context"
	"fmt"
	"log"
	"time"

	"livechat-backend/internal/mailer"
	"livechat-backend/internal/service/message"
)

const (
	DefaultInterval = 60 * time.Second

	// defaultMinAge keeps messages the member is probably reading right
	// now out of the sweep.
	defaultMinAge = 60 * time.Second
)

// Notifier periodically emails website owners who have unread guest
// messages. One sweep sends at most one email per owner, regardless of
// how many threads or messages are waiting.
type Notifier struct {
	messages *message.Service
	mailer   mailer.Mailer
	interval time.Duration
	minAge   time.Duration
	config   func() mailer.Config
}

func New(messages *message.Service, m mailer.Mailer, interval time.Duration) *Notifier {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Notifier{
		messages: messages,
		mailer:   m,
		interval: interval,
		minAge:   defaultMinAge,
		config:   mailer.ConfigFromEnv,
	}
}

func (n *Notifier) SetMinAge(minAge time.Duration) {
	if minAge >= 0 {
		n.minAge = minAge
	}
}

func (n *Notifier) SetConfigSource(source func() mailer.Config) {
	if source != nil {
		n.config = source
	}
}

// Run sweeps until the context is cancelled. A panicking sweep is logged
// and the loop keeps its schedule.
func (n *Notifier) Run(ctx context.Context) {
	log.Printf("Notifier started, sweep interval %s", n.interval)

	ticker := time.NewTicker(n.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("Notifier stopped: %v", ctx.Err())
			return
		case <-ticker.C:
			n.safeSweep(ctx)
		}
	}
}

func (n *Notifier) safeSweep(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in notifier sweep: %v", r)
		}
	}()

	sent, err := n.Sweep(ctx)
	if err != nil {
		log.Printf("Notifier sweep failed: %v", err)
		return
	}
	if sent > 0 {
		log.Printf("Notifier sweep sent %d emails", sent)
	}
}

// Sweep collects unread guest messages, groups them by website owner and
// sends each owner a single digest. A failed send is logged and does not
// stop the remaining owners. Returns the number of emails sent.
func (n *Notifier) Sweep(ctx context.Context) (int, error) {
	cfg := n.config()
	if !cfg.Valid() {
		log.Printf("Notifier sweep skipped, SMTP is not configured")
		return 0, nil
	}

	unseen, err := n.messages.ListAllUnseen(ctx, n.minAge)
	if err != nil {
		return 0, fmt.Errorf("list unseen: %w", err)
	}
	if len(unseen) == 0 {
		return 0, nil
	}

	type ownerDigest struct {
		messages int
		threads  map[string]struct{}
	}

	digests := map[string]*ownerDigest{}
	var order []string
	for _, item := range unseen {
		if item.OwnerEmail == "" {
			continue
		}
		digest, ok := digests[item.OwnerEmail]
		if !ok {
			digest = &ownerDigest{threads: map[string]struct{}{}}
			digests[item.OwnerEmail] = digest
			order = append(order, item.OwnerEmail)
		}
		digest.messages++
		digest.threads[item.ThreadID] = struct{}{}
	}

	sent := 0
	for _, owner := range order {
		digest := digests[owner]

		subject := "You have unread chat messages"
		body := fmt.Sprintf(
			"<p>You have <strong>%d</strong> unread message(s) in <strong>%d</strong> conversation(s).</p>"+
				"<p>Open your dashboard to reply.</p>",
			digest.messages, len(digest.threads),
		)

		if err := n.mailer.Send(cfg, owner, subject, body); err != nil {
			log.Printf("Notifier failed to email %s: %v", owner, err)
			continue
		}
		sent++
	}

	return sent, nil
}
