// Package fswatch publishes file system changes to a bus.
//
// Each change is published as a Change event with topic <prefix>.<op>, e.g.
// "fs.write". Veto listeners can suppress changes and subscribers receive
// them like any other event; the source only counts and logs the outcome.
package fswatch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/topic"
)

// DefaultPrefix is the topic prefix used when none is configured.
const DefaultPrefix topic.Topic = "fs"

// Op is a file system operation.
type Op string

// Operations, in the order they are published when fsnotify reports
// several at once.
const (
	OpCreate Op = "create"
	OpWrite  Op = "write"
	OpRemove Op = "remove"
	OpRename Op = "rename"
	OpChmod  Op = "chmod"
)

var ops = []struct {
	fs fsnotify.Op
	op Op
}{
	{fsnotify.Create, OpCreate},
	{fsnotify.Write, OpWrite},
	{fsnotify.Remove, OpRemove},
	{fsnotify.Rename, OpRename},
	{fsnotify.Chmod, OpChmod},
}

// Change is the event published for one operation on one path.
type Change struct {
	Path string `json:"path"`
	Op   Op     `json:"op"`
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

// WithTopicPrefix sets the topic prefix. An empty prefix selects DefaultPrefix.
func WithTopicPrefix(prefix string) Option {
	return func(s *Source) {
		if prefix != "" {
			s.prefix = topic.Topic(prefix)
		}
	}
}

// WithIgnoreHidden skips files and directories whose name starts with a dot.
func WithIgnoreHidden(ignore bool) Option {
	return func(s *Source) {
		s.ignoreHidden = ignore
	}
}

// Stats counts publish outcomes.
type Stats struct {
	Delivered uint64
	Vetoed    uint64
	Failed    uint64
	Errors    uint64
}

// Source watches a directory tree and publishes its changes.
type Source struct {
	bus          *event.Bus
	root         string
	prefix       topic.Topic
	ignoreHidden bool
	log          *zap.Logger

	watcher *fsnotify.Watcher

	delivered atomic.Uint64
	vetoed    atomic.Uint64
	failed    atomic.Uint64
	errors    atomic.Uint64
}

// New watches root and every directory below it. Directories created later
// are added as they appear.
func New(bus *event.Bus, root string, opts ...Option) (*Source, error) {
	s := &Source{
		bus:          bus,
		prefix:       DefaultPrefix,
		ignoreHidden: true,
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	s.root = abs
	s.log = s.log.Named("fswatch").With(zap.String("root", abs), zap.String("bus", bus.Name()))

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	s.watcher = w

	if err := s.addTree(abs); err != nil {
		w.Close()
		return nil, err
	}
	return s, nil
}

// Root returns the absolute watched directory.
func (s *Source) Root() string {
	return s.root
}

// Topic returns the topic a change is published with.
func (s *Source) Topic(op Op) topic.Topic {
	return s.prefix.Child(string(op))
}

// Run publishes changes until ctx is done, then releases the watcher.
// Run must be called at most once.
func (s *Source) Run(ctx context.Context) error {
	defer s.watcher.Close()

	s.log.Info("watching")
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			s.handle(ctx, ev)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.errors.Add(1)
			s.log.Warn("watch error", zap.Error(err))
		}
	}
}

// Stats returns the publish counters.
func (s *Source) Stats() Stats {
	return Stats{
		Delivered: s.delivered.Load(),
		Vetoed:    s.vetoed.Load(),
		Failed:    s.failed.Load(),
		Errors:    s.errors.Load(),
	}
}

func (s *Source) handle(ctx context.Context, ev fsnotify.Event) {
	if s.hidden(ev.Name) {
		return
	}

	for _, o := range ops {
		if ev.Op.Has(o.fs) {
			s.publish(ctx, Change{Path: ev.Name, Op: o.op})
		}
	}

	if ev.Op.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := s.addTree(ev.Name); err != nil {
				s.errors.Add(1)
				s.log.Warn("watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
		}
	}
}

func (s *Source) publish(ctx context.Context, c Change) {
	t := s.Topic(c.Op)
	delivered, err := s.bus.PublishTopic(ctx, t, c)
	switch {
	case err != nil:
		s.failed.Add(1)
		s.log.Error("publish change", zap.Stringer("topic", t), zap.String("path", c.Path), zap.Error(err))
	case !delivered:
		s.vetoed.Add(1)
		s.log.Debug("change vetoed", zap.Stringer("topic", t), zap.String("path", c.Path))
	default:
		s.delivered.Add(1)
	}
}

func (s *Source) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && s.hidden(p) {
			return filepath.SkipDir
		}
		if err := s.watcher.Add(p); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
			return fmt.Errorf("watch %s: %w", p, err)
		}
		return nil
	})
}

func (s *Source) hidden(p string) bool {
	return s.ignoreHidden && strings.HasPrefix(filepath.Base(p), ".")
}
