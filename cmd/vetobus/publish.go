package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/vetobus/internal/event"
	"github.com/dshills/vetobus/internal/event/topic"
	"github.com/dshills/vetobus/internal/manifest"
	"github.com/dshills/vetobus/internal/script"
)

type publishOptions struct {
	manifest string
	bus      string
	topic    string
	path     string
}

func newPublishCmd() *cobra.Command {
	var opts publishOptions

	cmd := &cobra.Command{
		Use:   "publish JSON",
		Short: "Publish one JSON event and report whether it was delivered",
		Long: `publish loads the manifest, registers its listeners and publishes one
event decoded from JSON. It prints "delivered" or "vetoed". A failing
listener is reported as an error.`,
		Example: `  vetobus publish -m bus.toml --bus files --topic fs.write '{"path":"a.txt"}'
  vetobus publish -m bus.toml --bus files --select items.0 '{"items":[1,2]}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(cmd, opts, args[0])
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.manifest, "manifest", "m", "", "manifest file (.toml, .yaml)")
	f.StringVar(&opts.bus, "bus", "", "bus to publish to")
	f.StringVar(&opts.topic, "topic", "", "event topic (none if empty)")
	f.StringVar(&opts.path, "select", "", "gjson path selecting the event within the document")
	_ = cmd.MarkFlagRequired("manifest")
	_ = cmd.MarkFlagRequired("bus")

	return cmd
}

func runPublish(cmd *cobra.Command, opts publishOptions, doc string) error {
	payload, err := parsePayload(doc, opts.path)
	if err != nil {
		return err
	}

	m, err := manifest.Load(opts.manifest)
	if err != nil {
		return err
	}
	log, err := newLogger(m.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	reg := event.NewRegistry(event.WithLogger(log))
	scripts, err := m.Apply(reg, func(name, source string) (*script.Script, error) {
		return script.Load(name, source, script.WithLogger(log))
	})
	if err != nil {
		return fmt.Errorf("apply manifest: %w", err)
	}
	defer closeScripts(scripts)

	delivered, err := reg.Get(opts.bus).PublishTopic(cmd.Context(), topic.Topic(opts.topic), payload)
	if err != nil {
		return err
	}

	if delivered {
		fmt.Fprintln(cmd.OutOrStdout(), "delivered")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "vetoed")
	}
	return nil
}

func closeScripts(scripts []*script.Script) {
	for _, s := range scripts {
		s.Close()
	}
}
