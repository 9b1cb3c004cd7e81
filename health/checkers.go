package health

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glimte/mmate-mfp/codec"
	"github.com/glimte/mmate-mfp/contracts"
	"github.com/glimte/mmate-mfp/envelope"
	"github.com/glimte/mmate-mfp/store"
	"github.com/glimte/mmate-mfp/transports/rabbitmq"
	"github.com/google/uuid"
)

// probeKeyPrefix marks store keys written by StoreChecker
const probeKeyPrefix = "health-probe-"

// BrokerChecker checks the RabbitMQ connection
type BrokerChecker struct {
	connManager *rabbitmq.ConnectionManager
	exchange    string
}

// NewBrokerChecker creates a broker checker. When exchange is set the check
// also verifies the exchange exists.
func NewBrokerChecker(connManager *rabbitmq.ConnectionManager, exchange string) *BrokerChecker {
	return &BrokerChecker{
		connManager: connManager,
		exchange:    exchange,
	}
}

func (c *BrokerChecker) Name() string {
	return "rabbitmq"
}

func (c *BrokerChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	if !c.connManager.IsConnected() {
		result.Status = StatusUnhealthy
		result.Message = "Connection is not open"
		result.Error = rabbitmq.ErrConnectionNotReady.Error()
		result.Duration = time.Since(start)
		return result
	}

	ch, err := c.connManager.Channel()
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Failed to create channel"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}
	defer ch.Close()

	result.Status = StatusHealthy
	result.Message = "Connection is healthy"
	if c.exchange != "" {
		result.Details["exchange"] = c.exchange
		if err := ch.ExchangeDeclarePassive(c.exchange, "direct", true, false, false, false, nil); err != nil {
			result.Status = StatusDegraded
			result.Message = fmt.Sprintf("Exchange %s not accessible", c.exchange)
			result.Error = err.Error()
		}
	}

	result.Duration = time.Since(start)
	result.Details["response_time_ms"] = result.Duration.Milliseconds()
	return result
}

// StoreChecker writes, reads back and deletes a probe entry
type StoreChecker struct {
	store store.Store
}

// NewStoreChecker creates a store checker
func NewStoreChecker(s store.Store) *StoreChecker {
	return &StoreChecker{store: s}
}

func (c *StoreChecker) Name() string {
	return "store"
}

func (c *StoreChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	key := probeKeyPrefix + uuid.NewString()
	probe := [][]byte{[]byte(key)}
	result.Details["key"] = key

	err := c.roundTrip(ctx, key, probe)
	result.Duration = time.Since(start)
	result.Details["response_time_ms"] = result.Duration.Milliseconds()
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Store round trip failed"
		result.Error = err.Error()
		return result
	}

	result.Status = StatusHealthy
	result.Message = "Store is healthy"
	return result
}

func (c *StoreChecker) roundTrip(ctx context.Context, key string, probe [][]byte) error {
	if err := c.store.Put(ctx, key, probe); err != nil {
		return fmt.Errorf("put: %w", err)
	}
	got, err := c.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get: %w", err)
	}
	if len(got) != 1 || !bytes.Equal(got[0], probe[0]) {
		return errors.New("get: probe came back altered")
	}
	if err := c.store.Delete(ctx, key); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	return nil
}

// CodecChecker flattens and unflattens a probe message
type CodecChecker struct {
	factory *envelope.Factory
	codec   *codec.Codec
	version codec.ProtocolVersion
}

// NewCodecChecker creates a codec checker that also round trips the
// transport form at version
func NewCodecChecker(f *envelope.Factory, c *codec.Codec, version codec.ProtocolVersion) *CodecChecker {
	return &CodecChecker{factory: f, codec: c, version: version}
}

func (c *CodecChecker) Name() string {
	return "codec"
}

func (c *CodecChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   map[string]interface{}{"protocol_version": c.version.String()},
	}

	err := c.roundTrip()
	result.Duration = time.Since(start)
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Codec round trip failed"
		result.Error = err.Error()
		return result
	}

	result.Status = StatusHealthy
	result.Message = "Codec is healthy"
	return result
}

func (c *CodecChecker) roundTrip() error {
	jms, err := c.factory.NewJmsMessage(contracts.JmsBodyText)
	if err != nil {
		return err
	}
	tm, err := jms.AsText()
	if err != nil {
		return err
	}
	if err := tm.SetText("health"); err != nil {
		return err
	}
	env := jms.Envelope()

	flat, err := c.codec.EncodeForPersistence(env)
	if err != nil {
		return err
	}
	back, err := c.codec.Unflatten(flat)
	if err != nil {
		return err
	}
	if !env.Equal(back) {
		return errors.New("unflattened message differs from the original")
	}

	wire, err := c.codec.EncodeForTransport(env, c.version)
	if err != nil {
		return err
	}
	if _, err := c.codec.DecodeFromTransport(wire); err != nil {
		return err
	}
	return nil
}

// ComponentChecker adapts a function into a Checker
type ComponentChecker struct {
	name    string
	checker func(ctx context.Context) (Status, string, map[string]interface{}, error)
}

// NewComponentChecker creates a checker for custom components
func NewComponentChecker(name string, checker func(ctx context.Context) (Status, string, map[string]interface{}, error)) *ComponentChecker {
	return &ComponentChecker{
		name:    name,
		checker: checker,
	}
}

func (c *ComponentChecker) Name() string {
	return c.name
}

func (c *ComponentChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   make(map[string]interface{}),
	}

	status, message, details, err := c.checker(ctx)

	result.Status = status
	result.Message = message
	if details != nil {
		result.Details = details
	}
	if err != nil {
		result.Error = err.Error()
	}
	result.Duration = time.Since(start)

	return result
}
