package orchestrator

import (
	"fmt"
	"reflect"
	"time"

	"github.com/c360studio/semstreams/component"

	"github.com/loopworks/ironloop/storage"
	"github.com/loopworks/ironloop/workflow"
)

// orchestratorSchema defines the configuration schema.
var orchestratorSchema = component.GenerateConfigSchema(reflect.TypeOf(Config{}))

// Config holds configuration for the orchestrator processor component.
type Config struct {
	// StreamName is the JetStream stream for consuming advance requests and
	// publishing results.
	StreamName string `json:"stream_name" schema:"type:string,description:JetStream stream for session traffic,category:basic,default:SESSIONS"`

	// ConsumerName is the durable consumer name for request consumption.
	ConsumerName string `json:"consumer_name" schema:"type:string,description:Durable consumer name for advance requests,category:basic,default:orchestrator"`

	// AdvanceSubject is the subject carrying advance requests.
	AdvanceSubject string `json:"advance_subject" schema:"type:string,description:Subject for session advance requests,category:basic,default:session.advance"`

	// ResultSubjectPrefix prefixes per-session result subjects.
	ResultSubjectPrefix string `json:"result_subject_prefix" schema:"type:string,description:Subject prefix for advance results,category:basic,default:session.result"`

	// SessionTTL expires idle sessions in the KV store.
	SessionTTL string `json:"session_ttl" schema:"type:string,description:Idle session expiry in the KV store,category:basic,default:24h"`

	// RoleCatalogPath points to an optional role keyword catalog override.
	RoleCatalogPath string `json:"role_catalog_path,omitempty" schema:"type:string,description:Path to a YAML role keyword catalog,category:advanced"`

	// WatchRoleCatalog hot-reloads the catalog file on change.
	WatchRoleCatalog bool `json:"watch_role_catalog,omitempty" schema:"type:bool,description:Reload the role catalog when the file changes,category:advanced,default:false"`

	// Ports contains input/output port definitions.
	Ports *component.PortConfig `json:"ports,omitempty" schema:"type:ports,description:Input/output port definitions,category:basic"`
}

// DefaultConfig returns sensible default configuration.
func DefaultConfig() Config {
	return Config{
		StreamName:          "SESSIONS",
		ConsumerName:        "orchestrator",
		AdvanceSubject:      workflow.AdvanceSubject,
		ResultSubjectPrefix: "session.result",
		SessionTTL:          "24h",
		Ports: &component.PortConfig{
			Inputs: []component.PortDefinition{
				{
					Name:        "advance-requests",
					Type:        "jetstream",
					Subject:     workflow.AdvanceSubject,
					StreamName:  "SESSIONS",
					Description: "Receive session advance requests",
					Required:    true,
				},
			},
			Outputs: []component.PortDefinition{
				{
					Name:        "advance-results",
					Type:        "nats",
					Subject:     "session.result.>",
					Description: "Publish advance results",
					Required:    false,
				},
				{
					Name:        "session-events",
					Type:        "nats",
					Subject:     "session.events.>",
					Description: "Publish session lifecycle events",
					Required:    false,
				},
			},
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.StreamName == "" {
		return fmt.Errorf("stream_name is required")
	}
	if c.ConsumerName == "" {
		return fmt.Errorf("consumer_name is required")
	}
	if c.AdvanceSubject == "" {
		return fmt.Errorf("advance_subject is required")
	}
	if c.ResultSubjectPrefix == "" {
		return fmt.Errorf("result_subject_prefix is required")
	}
	if c.SessionTTL != "" {
		if _, err := time.ParseDuration(c.SessionTTL); err != nil {
			return fmt.Errorf("invalid session_ttl: %w", err)
		}
	}
	return nil
}

// GetSessionTTL returns the session TTL as a duration.
func (c *Config) GetSessionTTL() time.Duration {
	if c.SessionTTL == "" {
		return storage.DefaultSessionTTL
	}
	d, err := time.ParseDuration(c.SessionTTL)
	if err != nil {
		return storage.DefaultSessionTTL
	}
	return d
}
