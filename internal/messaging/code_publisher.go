package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"codeauth/internal/entity"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange       = "auth.events"
	CodeRequestedRouteKey = "auth.code.requested"
)

// CodeRequested is the message a mailer consumes to deliver a code.
type CodeRequested struct {
	Email     string                     `json:"email"`
	Purpose   entity.VerificationPurpose `json:"purpose"`
	Code      string                     `json:"code"`
	ExpiresIn int64                      `json:"expires_in"`
	SentAt    time.Time                  `json:"sent_at"`
}

// CodePublisher hands codes to a topic exchange with publisher confirms.
type CodePublisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewCodePublisher(url string, exchange string) (*CodePublisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &CodePublisher{url: url, exchange: exchange}
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *CodePublisher) SendVerificationCode(ctx context.Context, email string, purpose entity.VerificationPurpose, code string, ttl time.Duration) error {
	body, err := encodeCodeRequested(email, purpose, code, ttl, time.Now().UTC())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ensureConnected(); err != nil {
		return err
	}

	confirm, err := p.ch.PublishWithDeferredConfirmWithContext(
		ctx,
		p.exchange,
		CodeRequestedRouteKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		p.reset()
		return fmt.Errorf("publish: %w", err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("wait for confirm: %w", err)
	}
	if !acked {
		return errors.New("broker nacked code message")
	}
	return nil
}

func (p *CodePublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

func (p *CodePublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("exchange declare: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("confirm mode: %w", err)
	}
	p.conn = conn
	p.ch = ch
	return nil
}

func (p *CodePublisher) ensureConnected() error {
	if p.conn != nil && !p.conn.IsClosed() && p.ch != nil && !p.ch.IsClosed() {
		return nil
	}
	p.reset()
	return p.connect()
}

func (p *CodePublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func encodeCodeRequested(email string, purpose entity.VerificationPurpose, code string, ttl time.Duration, now time.Time) ([]byte, error) {
	body, err := json.Marshal(CodeRequested{
		Email:     email,
		Purpose:   purpose,
		Code:      code,
		ExpiresIn: int64(ttl.Seconds()),
		SentAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal code message: %w", err)
	}
	return body, nil
}
