// Package orchestrator provides the processor that drives workflow sessions
// through the phase machine. It consumes advance requests from JetStream,
// runs them through the workflow controller against the KV session store,
// and publishes results and lifecycle events.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/semstreams/component"
	"github.com/c360studio/semstreams/message"
	"github.com/c360studio/semstreams/natsclient"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/loopworks/ironloop/storage"
	"github.com/loopworks/ironloop/workflow"
	"github.com/loopworks/ironloop/workflow/prompts"
)

// Component implements the orchestrator processor.
type Component struct {
	name       string
	config     Config
	natsClient *natsclient.Client
	logger     *slog.Logger

	controller *workflow.Controller
	selector   *workflow.RoleSelector
	watcher    *workflow.CatalogWatcher

	consumer jetstream.Consumer
	stream   jetstream.Stream

	// Lifecycle
	running   bool
	startTime time.Time
	mu        sync.RWMutex
	cancel    context.CancelFunc

	// Metrics
	requestsProcessed atomic.Int64
	requestsRejected  atomic.Int64
	advancesFailed    atomic.Int64
	lastActivityMu    sync.RWMutex
	lastActivity      time.Time
}

// NewComponent creates a new orchestrator processor.
func NewComponent(rawConfig json.RawMessage, deps component.Dependencies) (component.Discoverable, error) {
	var config Config
	if err := json.Unmarshal(rawConfig, &config); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply defaults
	defaults := DefaultConfig()
	if config.StreamName == "" {
		config.StreamName = defaults.StreamName
	}
	if config.ConsumerName == "" {
		config.ConsumerName = defaults.ConsumerName
	}
	if config.AdvanceSubject == "" {
		config.AdvanceSubject = defaults.AdvanceSubject
	}
	if config.ResultSubjectPrefix == "" {
		config.ResultSubjectPrefix = defaults.ResultSubjectPrefix
	}
	if config.SessionTTL == "" {
		config.SessionTTL = defaults.SessionTTL
	}
	if config.Ports == nil {
		config.Ports = defaults.Ports
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := deps.GetLogger()

	// Payload types must be known to the registry before BaseMessage
	// envelopes on the advance subject can be decoded. Nil in tests that
	// feed raw JSON.
	if deps.PayloadRegistry != nil {
		if err := workflow.RegisterPayloads(deps.PayloadRegistry); err != nil {
			return nil, fmt.Errorf("register payloads: %w", err)
		}
	}

	// Create session store
	store, err := storage.NewKVSessionStore(context.Background(), deps.NATSClient, config.GetSessionTTL())
	if err != nil {
		return nil, fmt.Errorf("create session store: %w", err)
	}

	// Load role selector, optionally with a catalog override
	selector := workflow.NewRoleSelector()
	var watcher *workflow.CatalogWatcher
	if config.RoleCatalogPath != "" {
		if config.WatchRoleCatalog {
			watcher, err = workflow.NewCatalogWatcher(config.RoleCatalogPath, selector, logger)
			if err != nil {
				return nil, fmt.Errorf("create catalog watcher: %w", err)
			}
		} else if err := selector.LoadCatalog(config.RoleCatalogPath); err != nil {
			logger.Warn("Failed to load role catalog, using defaults",
				"path", config.RoleCatalogPath,
				"error", err)
		}
	}

	return &Component{
		name:       "orchestrator",
		config:     config,
		natsClient: deps.NATSClient,
		logger:     logger,
		controller: workflow.NewController(store, selector, logger),
		selector:   selector,
		watcher:    watcher,
	}, nil
}

// Initialize prepares the component.
func (c *Component) Initialize() error {
	c.logger.Debug("Initialized orchestrator",
		"stream", c.config.StreamName,
		"advance_subject", c.config.AdvanceSubject,
		"session_ttl", c.config.SessionTTL)
	return nil
}

// Start begins consuming advance requests.
func (c *Component) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return fmt.Errorf("component already running")
	}
	if c.natsClient == nil {
		c.mu.Unlock()
		return fmt.Errorf("NATS client required")
	}

	c.running = true
	c.startTime = time.Now()

	subCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	// Get JetStream context
	js, err := c.natsClient.JetStream()
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get jetstream: %w", err)
	}

	// Get stream
	stream, err := js.Stream(subCtx, c.config.StreamName)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("get stream %s: %w", c.config.StreamName, err)
	}
	c.stream = stream

	// Create or get consumer
	consumerConfig := jetstream.ConsumerConfig{
		Durable:       c.config.ConsumerName,
		FilterSubject: c.config.AdvanceSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       30 * time.Second,
		MaxDeliver:    3,
	}

	consumer, err := stream.CreateOrUpdateConsumer(subCtx, consumerConfig)
	if err != nil {
		c.rollbackStart(cancel)
		return fmt.Errorf("create consumer: %w", err)
	}
	c.consumer = consumer

	if c.watcher != nil {
		c.watcher.Start(subCtx)
	}

	// Start consuming messages
	go c.consumeLoop(subCtx)

	c.logger.Info("orchestrator started",
		"stream", c.config.StreamName,
		"consumer", c.config.ConsumerName,
		"subject", c.config.AdvanceSubject)

	return nil
}

func (c *Component) rollbackStart(cancel context.CancelFunc) {
	c.mu.Lock()
	c.running = false
	c.cancel = nil
	c.mu.Unlock()
	cancel()
}

// consumeLoop continuously consumes messages from the JetStream consumer.
func (c *Component) consumeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		// Fetch messages with a timeout
		msgs, err := c.consumer.Fetch(1, jetstream.FetchMaxWait(5*time.Second))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Debug("Fetch timeout or error", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			c.handleMessage(ctx, msg)
		}

		if msgs.Error() != nil && msgs.Error() != context.DeadlineExceeded {
			c.logger.Warn("Message fetch error", "error", msgs.Error())
		}
	}
}

// handleMessage processes a single advance request.
func (c *Component) handleMessage(ctx context.Context, msg jetstream.Msg) {
	// Check for context cancellation before touching the store
	if ctx.Err() != nil {
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message during shutdown", "error", err)
		}
		return
	}

	c.requestsProcessed.Add(1)
	c.updateLastActivity()

	req, err := workflow.ParseAdvanceRequest(msg.Data())
	if err != nil {
		// Malformed requests never become valid on redelivery.
		c.requestsRejected.Add(1)
		c.logger.Error("Rejected advance request", "error", err)
		if err := msg.Ack(); err != nil {
			c.logger.Warn("Failed to ACK message", "error", err)
		}
		return
	}

	resp, err := c.processAdvance(ctx, req)
	if err != nil {
		if isPermanent(err) {
			c.requestsRejected.Add(1)
			c.logger.Error("Rejected advance request",
				"session_id", req.SessionID,
				"phase_completed", req.PhaseCompleted,
				"error", err)
			if err := msg.Ack(); err != nil {
				c.logger.Warn("Failed to ACK message", "error", err)
			}
			return
		}
		// Store failures are retryable.
		c.advancesFailed.Add(1)
		c.logger.Error("Failed to advance session",
			"session_id", req.SessionID,
			"error", err)
		if err := msg.Nak(); err != nil {
			c.logger.Warn("Failed to NAK message", "error", err)
		}
		return
	}

	if err := c.publishResult(ctx, resp); err != nil {
		c.logger.Warn("Failed to publish advance result",
			"session_id", resp.SessionID,
			"error", err)
		// Don't fail - the session state is already persisted
	}

	c.publishEvents(ctx, req, resp)

	// ACK the message
	if err := msg.Ack(); err != nil {
		c.logger.Warn("Failed to ACK message", "error", err)
	}
}

// processAdvance runs one request through the controller and annotates the
// response with the tool allowlist for the next phase. It touches neither
// the consumer nor the result subjects, so tests can call it directly.
func (c *Component) processAdvance(ctx context.Context, req *workflow.AdvanceRequest) (*workflow.AdvanceResponse, error) {
	resp, err := c.controller.Advance(ctx, req)
	if err != nil {
		return nil, err
	}

	resp.AllowedNextTools = prompts.AllowedTools(resp.NextPhase)

	// Stale tags, terminal repeats and zero-mutation calls are not
	// transitions; counting them would inflate the phase counter.
	if resp.TransitionApplied {
		phaseTransitions.WithLabelValues(resp.NextPhase.String()).Inc()
	}
	if req.PhaseCompleted == workflow.PhaseVerify && resp.Payload.LastVerification != nil {
		verificationCompletion.Observe(resp.Payload.LastVerification.CompletionPercentage)
		if !resp.Payload.LastVerification.IsValid && !resp.NextPhase.IsTerminal() {
			rollbacks.WithLabelValues(resp.NextPhase.String()).Inc()
		}
	}
	if resp.Status == workflow.StatusDone && req.PhaseCompleted == workflow.PhaseVerify {
		sessionsCompleted.Inc()
	}

	return resp, nil
}

// publishResult publishes the advance result on the per-session result
// subject.
func (c *Component) publishResult(ctx context.Context, resp *workflow.AdvanceResponse) error {
	baseMsg := message.NewBaseMessage(workflow.AdvanceResponseType, resp, c.name)
	data, err := json.Marshal(baseMsg)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", c.config.ResultSubjectPrefix, resp.SessionID)
	if err := c.natsClient.PublishToStream(ctx, subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}

	return nil
}

// publishEvents publishes the lifecycle events implied by one advance.
// Event publication is best-effort: failures are logged, never retried.
func (c *Component) publishEvents(ctx context.Context, req *workflow.AdvanceRequest, resp *workflow.AdvanceResponse) {
	if resp.TransitionApplied {
		advanced := workflow.SessionAdvancedEvent{
			SessionID:              resp.SessionID,
			PhaseCompleted:         req.PhaseCompleted,
			NextPhase:              resp.NextPhase,
			TaskIndex:              resp.Payload.CurrentTaskIndex,
			ReasoningEffectiveness: resp.ReasoningEffectiveness,
		}
		c.publishEvent(ctx, workflow.SubjectSessionAdvanced, resp.SessionID, workflow.SessionAdvancedEventType, &advanced)
	}

	verification := resp.Payload.LastVerification
	if req.PhaseCompleted == workflow.PhaseVerify && verification != nil && !verification.IsValid {
		rolledBack := workflow.SessionRolledBackEvent{
			SessionID:            resp.SessionID,
			TargetPhase:          resp.NextPhase,
			CompletionPercentage: verification.CompletionPercentage,
			Reason:               verification.Reason,
		}
		c.publishEvent(ctx, workflow.SubjectSessionRolledBack, resp.SessionID, workflow.SessionRolledBackEventType, &rolledBack)
	}

	if resp.Status == workflow.StatusDone && req.PhaseCompleted == workflow.PhaseVerify {
		completion := 100.0
		if verification != nil {
			completion = verification.CompletionPercentage
		}
		completed := workflow.SessionCompletedEvent{
			SessionID:            resp.SessionID,
			CompletionPercentage: completion,
			PhaseTransitions:     resp.Payload.PhaseTransitionCount,
		}
		c.publishEvent(ctx, workflow.SubjectSessionCompleted, resp.SessionID, workflow.SessionCompletedEventType, &completed)
	}
}

func (c *Component) publishEvent(ctx context.Context, base, sessionID string, msgType message.Type, payload message.Payload) {
	baseMsg := message.NewBaseMessage(msgType, payload, c.name)
	data, err := json.Marshal(baseMsg)
	if err != nil {
		c.logger.Warn("Failed to marshal event", "subject", base, "error", err)
		return
	}

	subject := workflow.EventSubject(base, sessionID)
	if err := c.natsClient.PublishToStream(ctx, subject, data); err != nil {
		c.logger.Warn("Failed to publish event", "subject", subject, "error", err)
	}
}

// isPermanent reports whether an advance error can never succeed on
// redelivery.
func isPermanent(err error) bool {
	var validationErr *workflow.ValidationError
	return errors.As(err, &validationErr) ||
		errors.Is(err, workflow.ErrSessionNotFound) ||
		errors.Is(err, workflow.ErrUnknownPhase) ||
		errors.Is(err, workflow.ErrMissingObjective)
}

// Stop gracefully stops the component.
func (c *Component) Stop(_ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil
	}

	if c.cancel != nil {
		c.cancel()
	}

	if c.watcher != nil {
		if err := c.watcher.Close(); err != nil {
			c.logger.Warn("Failed to close catalog watcher", "error", err)
		}
	}

	c.running = false
	c.logger.Info("orchestrator stopped",
		"requests_processed", c.requestsProcessed.Load(),
		"requests_rejected", c.requestsRejected.Load(),
		"advances_failed", c.advancesFailed.Load())

	return nil
}

// Meta returns component metadata.
func (c *Component) Meta() component.Metadata {
	return component.Metadata{
		Name:        "orchestrator",
		Type:        "processor",
		Description: "Drives sessions through the phase machine on advance requests",
		Version:     "0.1.0",
	}
}

// InputPorts returns configured input port definitions.
func (c *Component) InputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Inputs))
	for i, portDef := range c.config.Ports.Inputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionInput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// OutputPorts returns configured output port definitions.
func (c *Component) OutputPorts() []component.Port {
	if c.config.Ports == nil {
		return []component.Port{}
	}

	ports := make([]component.Port, len(c.config.Ports.Outputs))
	for i, portDef := range c.config.Ports.Outputs {
		ports[i] = component.Port{
			Name:        portDef.Name,
			Direction:   component.DirectionOutput,
			Required:    portDef.Required,
			Description: portDef.Description,
			Config: component.NATSPort{
				Subject: portDef.Subject,
			},
		}
	}
	return ports
}

// ConfigSchema returns the configuration schema.
func (c *Component) ConfigSchema() component.ConfigSchema {
	return orchestratorSchema
}

// Health returns the current health status.
func (c *Component) Health() component.HealthStatus {
	c.mu.RLock()
	running := c.running
	startTime := c.startTime
	c.mu.RUnlock()

	status := "stopped"
	if running {
		status = "running"
	}

	return component.HealthStatus{
		Healthy:    running,
		LastCheck:  time.Now(),
		ErrorCount: int(c.advancesFailed.Load()),
		Uptime:     time.Since(startTime),
		Status:     status,
	}
}

// DataFlow returns current data flow metrics.
func (c *Component) DataFlow() component.FlowMetrics {
	return component.FlowMetrics{
		MessagesPerSecond: 0,
		BytesPerSecond:    0,
		ErrorRate:         0,
		LastActivity:      c.getLastActivity(),
	}
}

func (c *Component) updateLastActivity() {
	c.lastActivityMu.Lock()
	c.lastActivity = time.Now()
	c.lastActivityMu.Unlock()
}

func (c *Component) getLastActivity() time.Time {
	c.lastActivityMu.RLock()
	defer c.lastActivityMu.RUnlock()
	return c.lastActivity
}
