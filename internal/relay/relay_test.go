package relay

import (
	"testing"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestConfigDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, natsgo.DefaultURL, cfg.URL)
	assert.Equal(t, "bridget-relay", cfg.Name)
	assert.Equal(t, "bridget", cfg.SubjectPrefix)
	assert.Equal(t, 5*time.Second, cfg.FlushTimeout)
	assert.NotNil(t, cfg.Logger)
}

func TestConfigKeepsExplicitValues(t *testing.T) {
	cfg := &Config{URL: "nats://broker:4222", SubjectPrefix: "spans"}
	cfg.applyDefaults()

	assert.Equal(t, "nats://broker:4222", cfg.URL)
	assert.Equal(t, "spans", cfg.SubjectPrefix)
}

func TestSubjectFor(t *testing.T) {
	r := &Relay{config: &Config{SubjectPrefix: "bridget"}}

	tests := []struct {
		name     string
		entityID string
		want     string
	}{
		{name: "plain id", entityID: "ballard", want: "bridget.forecasts.ballard"},
		{name: "dot would split tokens", entityID: "ballard.north", want: "bridget.forecasts.ballard_north"},
		{name: "space is not a valid token", entityID: "south park", want: "bridget.forecasts.south_park"},
		{name: "wildcards are neutralized", entityID: "a*b>", want: "bridget.forecasts.a_b_"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, r.subjectFor(tt.entityID))
		})
	}
}
