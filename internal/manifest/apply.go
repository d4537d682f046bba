package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/topic"
	"github.com/dshills/vetobus/internal/script"
)

// LoaderFunc compiles a script. script.Load, with options bound, is the
// usual implementation.
type LoaderFunc func(name, source string) (*script.Script, error)

// Apply creates every declared bus in reg, registers its guards and loads
// and registers its scripts. It returns the loaded scripts, which the caller
// closes when done. Every script is loaded and its match compiled before
// anything is registered: if any of them fails, the scripts loaded so far
// are closed and reg is left untouched.
func (m *Manifest) Apply(reg *event.Registry, load LoaderFunc) ([]*script.Script, error) {
	type pending struct {
		cfg     Script
		pattern topic.Pattern
		script  *script.Script
	}

	var (
		loaded []pending
		errs   []error
	)
	for i, b := range m.Buses {
		for j, s := range b.Scripts {
			where := fmt.Sprintf("buses[%d].scripts[%d]", i, j)
			p, err := s.pattern()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
				continue
			}
			sc, err := m.load(s, i, j, load)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", where, err))
				continue
			}
			loaded = append(loaded, pending{cfg: s, pattern: p, script: sc})
		}
	}
	if len(errs) > 0 {
		for _, p := range loaded {
			p.script.Close()
		}
		return nil, errors.Join(errs...)
	}

	scripts := make([]*script.Script, 0, len(loaded))
	k := 0
	for _, b := range m.Buses {
		bus := reg.Get(b.Name)
		for _, g := range b.Guards {
			bus.SubscribeVeto(event.VetoWhen(event.TopicHasPrefix(g.TopicPrefix)))
		}
		for range b.Scripts {
			p := loaded[k]
			k++
			register(bus, p.cfg, p.pattern, p.script)
			scripts = append(scripts, p.script)
		}
	}
	return scripts, nil
}

// pattern returns the topic pattern of a "topic" or "pattern" match and nil
// for the others. It fails for an unknown role or match or a bad pattern.
func (s Script) pattern() (topic.Pattern, error) {
	if s.Role != RoleSubscriber && s.Role != RoleVeto {
		return nil, fmt.Errorf("unknown role %q", s.Role)
	}
	switch s.Match {
	case MatchAll, MatchExactTopic:
		return nil, nil
	case MatchTopic:
		p, err := topic.CompileRegexp(s.Topic)
		if err != nil {
			return nil, &event.PatternError{Expr: s.Topic, Err: err}
		}
		return p, nil
	case MatchPattern:
		return topic.Wildcard(s.Topic), nil
	default:
		return nil, fmt.Errorf("unknown match %q", s.Match)
	}
}

// load reads and compiles one script and checks that it defines the
// function its role needs.
func (m *Manifest) load(s Script, bus, idx int, load LoaderFunc) (*script.Script, error) {
	name, source := fmt.Sprintf("buses[%d].scripts[%d]", bus, idx), s.Source
	if s.Path != "" {
		path := m.resolve(s.Path)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading script: %w", err)
		}
		name, source = filepath.Base(path), string(data)
	}

	sc, err := load(name, source)
	if err != nil {
		return nil, err
	}

	missing := ""
	switch {
	case s.Role == RoleVeto && sc.VetoListener() == nil:
		missing = script.ShouldVetoFunc
	case s.Role == RoleSubscriber && sc.Subscriber() == nil:
		missing = script.OnEventFunc
	}
	if missing != "" {
		sc.Close()
		return nil, fmt.Errorf("script %s: role %s requires function %s", sc.Name(), s.Role, missing)
	}
	return sc, nil
}

func register(bus *event.Bus, cfg Script, p topic.Pattern, sc *script.Script) {
	if cfg.Role == RoleVeto {
		v := sc.VetoListener()
		switch cfg.Match {
		case MatchAll:
			bus.SubscribeVeto(v)
		case MatchExactTopic:
			bus.SubscribeVetoToExactTopic(topic.Topic(cfg.Topic), v)
		default:
			bus.SubscribeVetoToTopicPattern(p, v)
		}
		return
	}

	s := sc.Subscriber()
	switch cfg.Match {
	case MatchAll:
		bus.Subscribe(s)
	case MatchExactTopic:
		bus.SubscribeToExactTopic(topic.Topic(cfg.Topic), s)
	default:
		bus.SubscribeToTopicPattern(p, s)
	}
}
