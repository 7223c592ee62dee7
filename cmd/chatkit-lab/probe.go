package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"chatkitlab/internal/widget"
	"chatkitlab/internal/widget/browser"
	"chatkitlab/pkg/logger"
)

type probeOptions struct {
	server       string
	deviceFile   string
	presentation string
	timeout      time.Duration
	env          string
}

func newProbeCmd() *cobra.Command {
	o := probeOptions{}
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Configure a headless chat widget against a running server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), o.timeout)
			defer cancel()
			return probe(ctx, o, cmd)
		},
	}
	f := cmd.Flags()
	f.StringVar(&o.server, "server", "http://localhost:3000", "base URL of the chatkit-lab server")
	f.StringVar(&o.deviceFile, "device-file", "", "file holding the persisted device id (ephemeral when empty)")
	f.StringVar(&o.presentation, "presentation", "", "YAML file with widget presentation options")
	f.DurationVar(&o.timeout, "timeout", 30*time.Second, "overall probe timeout")
	f.StringVar(&o.env, "env", "dev", "logger mode (dev|prod)")
	return cmd
}

func probe(ctx context.Context, o probeOptions, cmd *cobra.Command) error {
	log := logger.New(o.env)
	defer log.Sync()

	presentation := widget.DefaultPresentation()
	if o.presentation != "" {
		p, err := widget.LoadPresentation(o.presentation)
		if err != nil {
			return err
		}
		presentation = p
	}

	server := browser.NewServer(o.server, o.timeout)
	devices := &browser.FileDeviceStore{Path: o.deviceFile, Log: log}
	creds := browser.CredentialFetcher{Server: server, DeviceID: devices.ID}

	el := widget.NewHeadlessElement()
	reg := widget.NewMemoryRegistry()
	reg.Define(widget.ElementName)

	c := widget.New(widget.Deps{
		Element:      el,
		Registry:     reg,
		Page:         widget.LogPage{Log: log},
		Source:       server,
		Credentials:  creds.Fetch,
		Presentation: &presentation,
		Log:          log,
	})
	defer c.Close()

	state := c.Refresh(ctx)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "state:    %s\n", state)
	if state != widget.Configured {
		return errors.New("widget not configured")
	}
	got := c.Configured()
	fmt.Fprintf(out, "workflow: %s\nstrategy: %s\n", got.URL, got.StrategyKey)

	opts, _ := el.Latest()
	if opts.API.GetClientSecret == nil {
		return nil
	}
	secret, err := opts.API.GetClientSecret(ctx)
	if err != nil {
		return fmt.Errorf("mint client secret: %w", err)
	}
	el.Dispatch(widget.Event{Type: widget.EventReady})
	fmt.Fprintf(out, "device:   %s\nsecret:   %d bytes\n", devices.ID(), len(secret))
	return nil
}
