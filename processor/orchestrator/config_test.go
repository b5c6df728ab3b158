package orchestrator

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopworks/ironloop/storage"
	"github.com/loopworks/ironloop/workflow"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "SESSIONS", cfg.StreamName)
	assert.Equal(t, "orchestrator", cfg.ConsumerName)
	assert.Equal(t, workflow.AdvanceSubject, cfg.AdvanceSubject)
	assert.Equal(t, 24*time.Hour, cfg.GetSessionTTL())
	require.NotNil(t, cfg.Ports)
	assert.Len(t, cfg.Ports.Inputs, 1)
	assert.Len(t, cfg.Ports.Outputs, 2)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "missing stream",
			mutate:  func(c *Config) { c.StreamName = "" },
			wantErr: "stream_name",
		},
		{
			name:    "missing consumer",
			mutate:  func(c *Config) { c.ConsumerName = "" },
			wantErr: "consumer_name",
		},
		{
			name:    "missing subject",
			mutate:  func(c *Config) { c.AdvanceSubject = "" },
			wantErr: "advance_subject",
		},
		{
			name:    "missing result prefix",
			mutate:  func(c *Config) { c.ResultSubjectPrefix = "" },
			wantErr: "result_subject_prefix",
		},
		{
			name:    "unparseable ttl",
			mutate:  func(c *Config) { c.SessionTTL = "one day" },
			wantErr: "session_ttl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_GetSessionTTL(t *testing.T) {
	cfg := DefaultConfig()

	cfg.SessionTTL = "90m"
	assert.Equal(t, 90*time.Minute, cfg.GetSessionTTL())

	cfg.SessionTTL = ""
	assert.Equal(t, storage.DefaultSessionTTL, cfg.GetSessionTTL())

	cfg.SessionTTL = "garbage"
	assert.Equal(t, storage.DefaultSessionTTL, cfg.GetSessionTTL())
}

func TestIsPermanent(t *testing.T) {
	permanent := []error{
		&workflow.ValidationError{Field: "session_id", Message: "required"},
		fmt.Errorf("wrapped: %w", workflow.ErrSessionNotFound),
		workflow.ErrUnknownPhase,
		workflow.ErrMissingObjective,
	}
	for _, err := range permanent {
		assert.True(t, isPermanent(err), "expected %v to be permanent", err)
	}

	transient := []error{
		errors.New("kv timeout"),
		fmt.Errorf("put session: %w", errors.New("connection reset")),
	}
	for _, err := range transient {
		assert.False(t, isPermanent(err), "expected %v to be retryable", err)
	}
}
