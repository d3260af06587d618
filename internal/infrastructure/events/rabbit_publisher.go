// Package events publica los movimientos confirmados hacia RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-ledger/internal/application/inventory"
)

var (
	_ inventory.MovementPublisher = (*RabbitPublisher)(nil)
	_ inventory.MovementPublisher = NopPublisher{}
)

// channel subconjunto de *amqp.Channel que usa el publicador.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitPublisher publica MovementEvent como JSON en un exchange topic.
// La routing key es el tipo de evento (stock.added, stock.withdrawn).
type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	mu       sync.Mutex
	log      zerolog.Logger
}

// NewRabbitPublisher conecta, abre un canal y declara el exchange (topic, durable).
func NewRabbitPublisher(url, exchange string, log zerolog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq exchange %s: %w", exchange, err)
	}
	p := newRabbitPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newRabbitPublisher(ch channel, exchange string, log zerolog.Logger) *RabbitPublisher {
	return &RabbitPublisher{
		ch:       ch,
		exchange: exchange,
		log:      log.With().Str("component", "events").Str("exchange", exchange).Logger(),
	}
}

// PublishMovement serializa y publica el evento (mensaje persistente).
func (p *RabbitPublisher) PublishMovement(ctx context.Context, event inventory.MovementEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("serializar evento: %w", err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.MovementID,
		Timestamp:    time.Now().UTC(),
		Type:         event.Type,
		Body:         body,
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, event.Type, false, false, msg); err != nil {
		return fmt.Errorf("publicar %s: %w", event.Type, err)
	}
	p.log.Debug().Str("type", event.Type).Str("movement_id", event.MovementID).Msg("evento publicado")
	return nil
}

// Close cierra canal y conexión.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.ch != nil {
		err = p.ch.Close()
	}
	if p.conn != nil {
		if cerr := p.conn.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// NopPublisher descarta los eventos (sin RabbitMQ configurado).
type NopPublisher struct{}

// PublishMovement no hace nada.
func (NopPublisher) PublishMovement(context.Context, inventory.MovementEvent) error { return nil }

// Close no hace nada.
func (NopPublisher) Close() error { return nil }
