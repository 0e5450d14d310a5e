package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/raj200501/WatchDog-datadog-local-stack/internal/dsl"
	"github.com/raj200501/WatchDog-datadog-local-stack/internal/lineproto"
)

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "Check a monitor query offline",
		ArgsUsage: "<query>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return runValidate(cmd.Writer, strings.Join(cmd.Args().Slice(), " "))
		},
	}
}

func runValidate(w io.Writer, text string) error {
	if w == nil {
		w = os.Stdout
	}
	parsed, err := dsl.ParseQuery(text)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"valid":       true,
		"source":      parsed.Source,
		"aggregation": parsed.Aggregation,
		"window":      parsed.Window,
		"metric":      parsed.MetricName,
		"service":     parsed.ServiceFilter,
		"tags":        parsed.Tags,
	})
}

func decodeCommand() *cli.Command {
	return &cli.Command{
		Name:  "decode",
		Usage: "Decode line-protocol metrics from stdin and print them as JSON lines",
		Action: func(_ context.Context, cmd *cli.Command) error {
			return runDecode(cmd.Reader, cmd.Writer, time.Now())
		},
	}
}

func runDecode(r io.Reader, w io.Writer, now time.Time) error {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	payload, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	points, err := lineproto.DecodeBatch(string(payload), now)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	enc := json.NewEncoder(w)
	for _, point := range points {
		if err := enc.Encode(point); err != nil {
			return err
		}
	}
	return nil
}
