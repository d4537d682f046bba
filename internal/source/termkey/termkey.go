// Package termkey publishes terminal input to a bus.
//
// Key presses are published as Key events with topic "key.<name>", where the
// name is the lower-cased tcell key name ("key.enter", "key.ctrl-a") or, for
// printable runes, the rune itself ("key.q"). Terminal resizes are published
// as Resize events with topic "screen.resize".
package termkey

import (
	"context"
	"strings"
	"unicode"

	"github.com/gdamore/tcell/v2"
	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/topic"
)

// Topics published by the source.
const (
	KeyPrefix   topic.Topic = "key"
	ResizeTopic topic.Topic = "screen.resize"
)

// Key is a key press.
type Key struct {
	Name  string `json:"name"`
	Rune  rune   `json:"rune,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Shift bool   `json:"shift,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
}

// Topic returns the topic k is published with.
func (k Key) Topic() topic.Topic {
	return KeyPrefix.Child(k.Name)
}

// Resize reports the new terminal size.
type Resize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.log = l
		}
	}
}

// WithQuitKey stops Run when a key with the given tcell key code is pressed.
// The key is still published first.
func WithQuitKey(k tcell.Key) Option {
	return func(s *Source) {
		s.quit = append(s.quit, k)
	}
}

// Source pumps events from an initialized tcell screen into a bus.
type Source struct {
	bus    *event.Bus
	screen tcell.Screen
	log    *zap.Logger
	quit   []tcell.Key
}

// New creates a source reading from screen, which the caller initializes
// and finalizes.
func New(bus *event.Bus, screen tcell.Screen, opts ...Option) *Source {
	s := &Source{bus: bus, screen: screen, log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.Named("termkey").With(zap.String("bus", bus.Name()))
	return s
}

// Run publishes screen events until ctx is done, a quit key is pressed or
// the screen is finalized. A failed publish is logged and does not stop Run.
func (s *Source) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = s.screen.PostEvent(tcell.NewEventInterrupt(nil))
	})
	defer stop()

	for {
		ev := s.screen.PollEvent()
		if ev == nil || ctx.Err() != nil {
			return nil
		}

		switch e := ev.(type) {
		case *tcell.EventKey:
			k := Convert(e)
			s.publish(ctx, k.Topic(), k)
			if s.isQuit(e.Key()) {
				return nil
			}
		case *tcell.EventResize:
			w, h := e.Size()
			s.publish(ctx, ResizeTopic, Resize{Width: w, Height: h})
		}
	}
}

func (s *Source) isQuit(k tcell.Key) bool {
	for _, q := range s.quit {
		if q == k {
			return true
		}
	}
	return false
}

func (s *Source) publish(ctx context.Context, t topic.Topic, ev any) {
	delivered, err := s.bus.PublishTopic(ctx, t, ev)
	if err != nil {
		s.log.Error("publish", zap.Stringer("topic", t), zap.Error(err))
		return
	}
	if ce := s.log.Check(zap.DebugLevel, "published"); ce != nil {
		ce.Write(zap.Stringer("topic", t), zap.Bool("delivered", delivered))
	}
}

// Convert turns a tcell key event into a Key.
func Convert(e *tcell.EventKey) Key {
	mods := e.Modifiers()
	k := Key{
		Ctrl:  mods&tcell.ModCtrl != 0,
		Alt:   mods&tcell.ModAlt != 0,
		Shift: mods&tcell.ModShift != 0,
		Meta:  mods&tcell.ModMeta != 0,
	}

	if e.Key() == tcell.KeyRune {
		k.Rune = e.Rune()
		k.Name = runeName(k.Rune)
		return k
	}

	name, ok := tcell.KeyNames[e.Key()]
	if !ok {
		name = "unknown"
	}
	k.Name = strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	return k
}

// runeName names letters and digits by themselves; other runes share the
// name "rune" so that punctuation can't break the topic into segments.
func runeName(r rune) string {
	if unicode.IsLetter(r) || unicode.IsDigit(r) {
		return string(unicode.ToLower(r))
	}
	if r == ' ' {
		return "space"
	}
	return "rune"
}
