package metrics

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/topic"
)

func TestCollector(t *testing.T) {
	ctx := context.Background()
	reg := event.NewRegistry()
	files := reg.Get("files")
	files.SubscribeVeto(event.VetoWhen(event.TopicHasPrefix("deny.")))
	files.Subscribe(event.NewSubscriber(func(_ context.Context, t topic.Topic, _ any) error {
		if t == "fail" {
			return errors.New("fail")
		}
		return nil
	}))

	_, _ = files.PublishTopic(ctx, "ok", 1)
	_, _ = files.PublishTopic(ctx, "deny.x", 1)
	_, _ = files.PublishTopic(ctx, "fail", 1)
	_, _ = files.Publish(ctx, nil)

	anon := reg.NewAnonymous()
	_, _ = anon.Publish(ctx, 1)

	c := NewCollector(reg, anon)
	promReg := prometheus.NewPedanticRegistry()
	require.NoError(t, promReg.Register(c))

	expected := `
# HELP vetobus_bus_publish_outcomes_total Publish calls by outcome.
# TYPE vetobus_bus_publish_outcomes_total counter
vetobus_bus_publish_outcomes_total{bus="files",outcome="delivered"} 1
vetobus_bus_publish_outcomes_total{bus="files",outcome="failed"} 1
vetobus_bus_publish_outcomes_total{bus="files",outcome="rejected"} 1
vetobus_bus_publish_outcomes_total{bus="files",outcome="vetoed"} 1
vetobus_bus_publish_outcomes_total{bus="` + anon.Name() + `",outcome="delivered"} 1
vetobus_bus_publish_outcomes_total{bus="` + anon.Name() + `",outcome="failed"} 0
vetobus_bus_publish_outcomes_total{bus="` + anon.Name() + `",outcome="rejected"} 0
vetobus_bus_publish_outcomes_total{bus="` + anon.Name() + `",outcome="vetoed"} 0
# HELP vetobus_bus_listeners Listener registrations by role.
# TYPE vetobus_bus_listeners gauge
vetobus_bus_listeners{bus="files",role="subscriber"} 1
vetobus_bus_listeners{bus="files",role="veto"} 1
vetobus_bus_listeners{bus="` + anon.Name() + `",role="subscriber"} 0
vetobus_bus_listeners{bus="` + anon.Name() + `",role="veto"} 0
`
	require.NoError(t, testutil.GatherAndCompare(promReg, strings.NewReader(expected),
		"vetobus_bus_publish_outcomes_total", "vetobus_bus_listeners"))

	assert.Equal(t, 2, testutil.CollectAndCount(c, "vetobus_bus_published_total"))
}

func TestCollector_Track(t *testing.T) {
	c := NewCollector(nil)
	assert.Zero(t, testutil.CollectAndCount(c))

	b := event.NewAnonymousBus()
	c.Track(b)
	_, err := b.Publish(context.Background(), "x")
	require.NoError(t, err)

	// One published, four outcomes, two invocations, panics, seconds, two listener gauges.
	assert.Equal(t, 11, testutil.CollectAndCount(c))
	assert.Equal(t, 1, testutil.CollectAndCount(c, "vetobus_bus_published_total"))
}

func TestCollector_BusesWithSameName(t *testing.T) {
	reg := event.NewRegistry()
	reg.Get("1")
	reg.Get(1)

	other := event.NewRegistry().Get("1")
	c := NewCollector(reg, other, reg.Get("1"))

	promReg := prometheus.NewPedanticRegistry()
	require.NoError(t, promReg.Register(c))
	families, err := promReg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	expected := `
# HELP vetobus_bus_published_total Events accepted for delivery.
# TYPE vetobus_bus_published_total counter
vetobus_bus_published_total{bus="1"} 0
vetobus_bus_published_total{bus="1#2"} 0
vetobus_bus_published_total{bus="1#3"} 0
`
	require.NoError(t, testutil.GatherAndCompare(promReg, strings.NewReader(expected),
		"vetobus_bus_published_total"))
}
