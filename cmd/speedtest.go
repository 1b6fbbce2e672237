package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/angeloszaimis/channel-router/internal/channel"
	"github.com/angeloszaimis/channel-router/internal/probe"
)

func speedtestCmd() *cobra.Command {
	var (
		timeout      time.Duration
		outputFormat string
		only         []string
	)

	cmd := &cobra.Command{
		Use:   "speedtest",
		Short: "Probe the configured channels once and print them ranked by latency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			channels, err := selectChannels(cfg.ChannelList(), only)
			if err != nil {
				return err
			}
			if len(channels) == 0 {
				return fmt.Errorf("no channels configured")
			}

			prober := probe.New(cfg.ProberConfig(), probe.WithLogger(log))
			results := prober.ProbeMany(channels, timeout)

			return renderResults(cmd.OutOrStdout(), outputFormat, results)
		},
	}

	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 0, "Per-request timeout, clamped to the configured bounds (default from config)")
	cmd.Flags().StringVarP(&outputFormat, "output", "o", "table", "Output format (table, json)")
	cmd.Flags().StringSliceVar(&only, "channel", nil, "Channel ids to probe (default all)")

	return cmd
}

func selectChannels(channels []channel.Channel, ids []string) ([]channel.Channel, error) {
	if len(ids) == 0 {
		return channels, nil
	}

	byID := make(map[string]channel.Channel, len(channels))
	for _, ch := range channels {
		byID[ch.ID] = ch
	}

	selected := make([]channel.Channel, 0, len(ids))
	for _, id := range ids {
		ch, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("unknown channel: %s", id)
		}
		selected = append(selected, ch)
	}
	return selected, nil
}

func renderResults(w io.Writer, format string, results []probe.Result) error {
	switch format {
	case "json":
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	case "table":
		return renderTable(w, results)
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

func renderTable(w io.Writer, results []probe.Result) error {
	table := tablewriter.NewWriter(w)
	table.Append([]string{"#", "Channel", "Name", "Status", "Latency", "Tier", "Error"})

	for i, r := range results {
		table.Append([]string{
			strconv.Itoa(i + 1),
			r.ChannelID,
			r.ChannelName,
			formatStatusCode(r),
			formatLatency(r),
			string(r.Tier()),
			r.Error,
		})
	}

	return table.Render()
}

func formatStatusCode(r probe.Result) string {
	if r.StatusCode == nil {
		return "-"
	}
	return strconv.Itoa(*r.StatusCode)
}

func formatLatency(r probe.Result) string {
	if r.LatencyMS == nil {
		return "-"
	}
	return fmt.Sprintf("%dms", *r.LatencyMS)
}
