package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/topic"
	"github.com/dshills/vetobus/internal/script"
)

const sampleTOML = `
[log]
level = "debug"
format = "json"

[metrics]
listen = ":9090"

[[buses]]
name = "files"

  [[buses.scripts]]
  path = "audit.lua"
  match = "pattern"
  topic = "fs.**"

  [[buses.scripts]]
  source = "function should_veto(t, e) return e == 'blocked' end"
  role = "veto"

  [[buses.guards]]
  topic_prefix = "fs.chmod"

[[watch]]
bus = "files"
path = "src"
include_hidden = true
`

const sampleYAML = `
log:
  level: debug
  format: json
metrics:
  listen: ":9090"
buses:
  - name: files
    scripts:
      - path: audit.lua
        match: pattern
        topic: "fs.**"
      - source: "function should_veto(t, e) return e == 'blocked' end"
        role: veto
    guards:
      - topic_prefix: fs.chmod
watch:
  - bus: files
    path: src
    include_hidden: true
`

func TestParse_FormatsAgree(t *testing.T) {
	fromTOML, err := Parse([]byte(sampleTOML), TOML)
	require.NoError(t, err)
	fromYAML, err := Parse([]byte(sampleYAML), YAML)
	require.NoError(t, err)

	assert.Equal(t, fromTOML, fromYAML)

	m := fromTOML
	assert.Equal(t, Log{Level: "debug", Format: "json"}, m.Log)
	assert.Equal(t, Metrics{Listen: ":9090", Path: DefaultMetricsPath}, m.Metrics)
	require.Len(t, m.Buses, 1)
	assert.Equal(t, Script{Path: "audit.lua", Role: RoleSubscriber, Match: MatchPattern, Topic: "fs.**"}, m.Buses[0].Scripts[0])
	assert.Equal(t, MatchAll, m.Buses[0].Scripts[1].Match)
	assert.Equal(t, []Guard{{TopicPrefix: "fs.chmod"}}, m.Buses[0].Guards)
	assert.Equal(t, []Watch{{Bus: "files", Path: "src", TopicPrefix: DefaultTopicPrefix, IncludeHidden: true}}, m.Watch)
	assert.NoError(t, m.Validate())
}

func TestParse_Defaults(t *testing.T) {
	m, err := Parse(nil, YAML)
	require.NoError(t, err)
	assert.Equal(t, Log{Level: DefaultLogLevel, Format: DefaultLogFormat}, m.Log)
	assert.NoError(t, m.Validate())
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte("[log]\nlevel = "), TOML)
	var pe *ParseError
	require.ErrorAs(t, err, &pe)
	assert.Positive(t, pe.Line)

	_, err = Parse([]byte("[log]\nverbosity = 3\n"), TOML)
	assert.Error(t, err, "unknown fields are rejected")

	_, err = Parse([]byte("log:\n  verbosity: 3\n"), YAML)
	assert.ErrorAs(t, err, &pe)

	_, err = Parse([]byte("x"), Format("ini"))
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormatOf(t *testing.T) {
	for path, want := range map[string]Format{"a.toml": TOML, "b.YAML": YAML, "c.yml": YAML} {
		got, err := FormatOf(path)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := FormatOf("d.json")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestValidate(t *testing.T) {
	m := &Manifest{
		Log:     Log{Level: "loud", Format: "xml"},
		Metrics: Metrics{Listen: ":1", Path: "metrics"},
		Buses: []Bus{
			{Name: ""},
			{Name: "Files", Scripts: []Script{
				{Role: RoleSubscriber, Match: MatchAll},
				{Source: "x", Path: "y", Role: "observer", Match: MatchAll},
				{Source: "x", Role: RoleVeto, Match: MatchTopic, Topic: "("},
				{Source: "x", Role: RoleVeto, Match: MatchExactTopic},
				{Source: "x", Role: RoleVeto, Match: MatchAll, Topic: "t"},
				{Source: "x", Role: RoleVeto, Match: "type"},
			}, Guards: []Guard{{}}},
			{Name: "files"},
		},
		Watch: []Watch{{}},
	}

	err := m.Validate()
	require.Error(t, err)

	var paths []string
	for _, e := range err.(interface{ Unwrap() []error }).Unwrap() {
		var ve *ValidationError
		require.ErrorAs(t, e, &ve)
		paths = append(paths, ve.Path)
	}
	assert.Equal(t, []string{
		"log.level",
		"log.format",
		"metrics.path",
		"buses[0].name",
		"buses[1].scripts[0]",
		"buses[1].scripts[1]",
		"buses[1].scripts[1].role",
		"buses[1].scripts[2].topic",
		"buses[1].scripts[3].topic",
		"buses[1].scripts[4].topic",
		"buses[1].scripts[5].match",
		"buses[1].guards[0].topic_prefix",
		"buses[2].name",
		"watch[0].bus",
		"watch[0].path",
	}, paths)
}

func writeFile(t *testing.T, dir, name, data string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestLoadAndApply(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "audit.lua", `
		count = 0
		function on_event(topic, event) count = count + 1 end
	`)
	path := writeFile(t, dir, "vetobus.toml", sampleTOML)

	m, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "src"), m.WatchPath(m.Watch[0]))

	reg := event.NewRegistry()
	scripts, err := m.Apply(reg, func(name, source string) (*script.Script, error) {
		return script.Load(name, source)
	})
	require.NoError(t, err)
	require.Len(t, scripts, 2)
	defer func() {
		for _, s := range scripts {
			s.Close()
		}
	}()
	assert.Equal(t, "audit.lua", scripts[0].Name())

	bus := reg.Get("FILES")
	ctx := context.Background()
	publish := func(tp topic.Topic, ev string) bool {
		ok, err := bus.PublishTopic(ctx, tp, ev)
		require.NoError(t, err)
		return ok
	}

	assert.True(t, publish("fs.write", "a"))
	assert.False(t, publish("fs.write", "blocked"), "vetoed by the inline script")
	assert.False(t, publish("fs.chmod", "a"), "vetoed by the guard")
	assert.True(t, publish("other", "a"))

	st := bus.Stats()
	assert.Equal(t, uint64(2), st.Vetoed)
	assert.Equal(t, uint64(1), st.Deliveries, "audit.lua only sees fs.** topics")
}

func TestApply_RoleNeedsFunction(t *testing.T) {
	m, err := Parse([]byte(`
buses:
  - name: a
    scripts:
      - source: "function on_event() end"
      - source: "function on_event() end"
        role: veto
`), YAML)
	require.NoError(t, err)
	require.NoError(t, m.Validate())

	reg := event.NewRegistry()
	scripts, err := m.Apply(reg, func(name, source string) (*script.Script, error) {
		return script.Load(name, source)
	})
	require.Error(t, err)
	assert.Nil(t, scripts)
	assert.Contains(t, err.Error(), "buses[0].scripts[1]")
	assert.Contains(t, err.Error(), "should_veto")
	assert.Zero(t, reg.Len(), "nothing is registered")
}

func TestApply_BadPatternClosesLoadedScripts(t *testing.T) {
	// Parse does not validate, so Apply sees the bad expression itself.
	m, err := Parse([]byte(`
buses:
  - name: a
    scripts:
      - source: "function on_event() end"
      - source: "function on_event() end"
        match: topic
        topic: "fs.("
      - source: "function on_event() end"
`), YAML)
	require.NoError(t, err)

	var loaded []*script.Script
	reg := event.NewRegistry()
	scripts, err := m.Apply(reg, func(name, source string) (*script.Script, error) {
		s, err := script.Load(name, source)
		if err == nil {
			loaded = append(loaded, s)
		}
		return s, err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, event.ErrInvalidPattern)
	assert.Contains(t, err.Error(), "buses[0].scripts[1]")
	assert.Nil(t, scripts)
	assert.Zero(t, reg.Len())

	require.Len(t, loaded, 2)
	for _, s := range loaded {
		assert.ErrorIs(t, s.Subscriber().OnEvent(context.Background(), "t", 1), script.ErrClosed)
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.yaml", "log:\n  level: loud\n")

	_, err := Load(path)
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = Load(filepath.Join(dir, "missing.toml"))
	assert.Error(t, err)
}
