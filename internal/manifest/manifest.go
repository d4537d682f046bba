package manifest

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap/zapcore"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/dshills/vetobus/internal/event/topic"
)

// Format is a manifest encoding.
type Format string

// Supported formats.
const (
	TOML Format = "toml"
	YAML Format = "yaml"
)

// Script roles.
const (
	RoleSubscriber = "subscriber"
	RoleVeto       = "veto"
)

// Script match kinds.
const (
	MatchAll        = "all"
	MatchTopic      = "topic"
	MatchExactTopic = "exact-topic"
	MatchPattern    = "pattern"
)

// Defaults applied by Parse.
const (
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "console"
	DefaultMetricsPath = "/metrics"
	DefaultTopicPrefix = "fs"
)

// Manifest is the decoded manifest.
type Manifest struct {
	Log     Log     `toml:"log" yaml:"log"`
	Metrics Metrics `toml:"metrics" yaml:"metrics"`
	Buses   []Bus   `toml:"buses" yaml:"buses"`
	Watch   []Watch `toml:"watch" yaml:"watch"`

	// dir resolves relative script and watch paths.
	dir string
}

// Log configures the process logger.
type Log struct {
	// Level is a zap level name: debug, info, warn, error.
	Level string `toml:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `toml:"format" yaml:"format"`
}

// Metrics configures the Prometheus endpoint. An empty Listen disables it.
type Metrics struct {
	Listen string `toml:"listen" yaml:"listen"`
	Path   string `toml:"path" yaml:"path"`
}

// Bus declares a named bus and its listeners.
type Bus struct {
	Name    string   `toml:"name" yaml:"name"`
	Scripts []Script `toml:"scripts" yaml:"scripts"`
	Guards  []Guard  `toml:"guards" yaml:"guards"`
}

// Script declares a Lua listener. Exactly one of Path and Source is set.
type Script struct {
	Path   string `toml:"path" yaml:"path"`
	Source string `toml:"source" yaml:"source"`
	// Role is "subscriber" or "veto".
	Role string `toml:"role" yaml:"role"`
	// Match is "all", "topic" (regular expression), "exact-topic" or
	// "pattern" (dot-separated wildcard).
	Match string `toml:"match" yaml:"match"`
	Topic string `toml:"topic" yaml:"topic"`
}

// Guard vetoes every event whose topic starts with TopicPrefix.
type Guard struct {
	TopicPrefix string `toml:"topic_prefix" yaml:"topic_prefix"`
}

// Watch publishes file system changes under Path to Bus.
type Watch struct {
	Bus         string `toml:"bus" yaml:"bus"`
	Path        string `toml:"path" yaml:"path"`
	TopicPrefix string `toml:"topic_prefix" yaml:"topic_prefix"`
	// IncludeHidden also watches files and directories starting with a dot.
	IncludeHidden bool `toml:"include_hidden" yaml:"include_hidden"`
}

// FormatOf returns the format implied by a file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return TOML, nil
	case ".yaml", ".yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

// Load reads, parses and validates the manifest at path. Relative script
// and watch paths are resolved against the manifest's directory.
func Load(path string) (*Manifest, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	m, err := parse(path, data, format)
	if err != nil {
		return nil, err
	}
	m.dir = filepath.Dir(path)

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes data and applies defaults. Unknown fields are errors.
// Parse does not validate; call Validate.
func Parse(data []byte, format Format) (*Manifest, error) {
	return parse("<data>", data, format)
}

func parse(source string, data []byte, format Format) (*Manifest, error) {
	m := &Manifest{}
	switch format {
	case TOML:
		dec := toml.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(m); err != nil {
			pe := &ParseError{Path: source, Err: err}
			var de *toml.DecodeError
			if errors.As(err, &de) {
				pe.Line, pe.Column = de.Position()
			}
			return nil, pe
		}
	case YAML:
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		// An empty document decodes to io.EOF.
		if err := dec.Decode(m); err != nil && len(bytes.TrimSpace(data)) > 0 {
			return nil, &ParseError{Path: source, Err: err}
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	m.applyDefaults()
	return m, nil
}

func (m *Manifest) applyDefaults() {
	if m.Log.Level == "" {
		m.Log.Level = DefaultLogLevel
	}
	if m.Log.Format == "" {
		m.Log.Format = DefaultLogFormat
	}
	if m.Metrics.Path == "" {
		m.Metrics.Path = DefaultMetricsPath
	}
	for i := range m.Buses {
		for j := range m.Buses[i].Scripts {
			s := &m.Buses[i].Scripts[j]
			if s.Role == "" {
				s.Role = RoleSubscriber
			}
			if s.Match == "" {
				s.Match = MatchAll
			}
		}
	}
	for i := range m.Watch {
		if m.Watch[i].TopicPrefix == "" {
			m.Watch[i].TopicPrefix = DefaultTopicPrefix
		}
	}
}

// Validate reports every problem in the manifest as one joined error of
// *ValidationError values.
func (m *Manifest) Validate() error {
	var errs []error
	add := func(path, msg string, value any) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value})
	}

	if _, err := zapcore.ParseLevel(m.Log.Level); err != nil {
		add("log.level", "unknown level", m.Log.Level)
	}
	if m.Log.Format != "console" && m.Log.Format != "json" {
		add("log.format", `must be "console" or "json"`, m.Log.Format)
	}
	if m.Metrics.Listen != "" && !strings.HasPrefix(m.Metrics.Path, "/") {
		add("metrics.path", "must start with /", m.Metrics.Path)
	}

	lower := cases.Lower(language.English)
	seen := make(map[string]bool)
	for i, b := range m.Buses {
		path := fmt.Sprintf("buses[%d]", i)
		key := lower.String(b.Name)
		switch {
		case b.Name == "":
			add(path+".name", "is required", b.Name)
		case seen[key]:
			add(path+".name", "duplicate bus", b.Name)
		}
		seen[key] = true

		for j, s := range b.Scripts {
			s.validate(fmt.Sprintf("%s.scripts[%d]", path, j), add)
		}
		for j, g := range b.Guards {
			if g.TopicPrefix == "" {
				add(fmt.Sprintf("%s.guards[%d].topic_prefix", path, j), "is required", g.TopicPrefix)
			}
		}
	}

	for i, w := range m.Watch {
		path := fmt.Sprintf("watch[%d]", i)
		if w.Bus == "" {
			add(path+".bus", "is required", w.Bus)
		}
		if w.Path == "" {
			add(path+".path", "is required", w.Path)
		}
	}

	return errors.Join(errs...)
}

func (s Script) validate(path string, add func(path, msg string, value any)) {
	if (s.Path == "") == (s.Source == "") {
		add(path, "exactly one of path and source is required", s.Path)
	}
	if s.Role != RoleSubscriber && s.Role != RoleVeto {
		add(path+".role", `must be "subscriber" or "veto"`, s.Role)
	}

	switch s.Match {
	case MatchAll:
		if s.Topic != "" {
			add(path+".topic", `not allowed with match "all"`, s.Topic)
		}
	case MatchTopic:
		if _, err := topic.CompileRegexp(s.Topic); err != nil {
			add(path+".topic", err.Error(), s.Topic)
		}
		fallthrough
	case MatchExactTopic, MatchPattern:
		if s.Topic == "" {
			add(path+".topic", "is required", s.Topic)
		}
	default:
		add(path+".match", "unknown match", s.Match)
	}
}

// resolve returns p relative to the manifest directory.
func (m *Manifest) resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || m.dir == "" {
		return p
	}
	return filepath.Join(m.dir, p)
}

// WatchPath returns the watch directory with relative paths resolved.
func (m *Manifest) WatchPath(w Watch) string {
	return m.resolve(w.Path)
}
