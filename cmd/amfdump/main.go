// amfdump decodes an AMF value, sequence or NetConnection packet from
// a file (or stdin) and prints a readable rendition.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/limscoder/amfast/pkg/amf"
	"github.com/limscoder/amfast/pkg/amf/flexmsg"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	setupLogging(cfg.LogLevel)

	if err := run(cfg, os.Stdout); err != nil {
		slog.Error("Decode failed", "error", err, "input", inputName(cfg))
		os.Exit(1)
	}
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func inputName(cfg config) string {
	if cfg.input == "" {
		return "stdin"
	}
	return cfg.input
}

func run(cfg config, out io.Writer) error {
	data, err := readInput(cfg)
	if err != nil {
		return err
	}
	slog.Debug("Read input", "bytes", len(data), "input", inputName(cfg))

	opts := amf.Options{
		AMF3:           cfg.AMF3,
		UseCollections: cfg.UseCollections,
		UseProxies:     cfg.UseProxies,
		UseReferences:  !cfg.NoReferences,
	}
	if cfg.FlexMessages {
		mapper := amf.NewTypeMapper()
		if err := flexmsg.RegisterAll(mapper); err != nil {
			return err
		}
		opts.Mapper = mapper
	}

	switch {
	case cfg.Packet:
		p, err := amf.DecodePacket(data, opts)
		if err != nil {
			return err
		}
		printPacket(out, p)
	case cfg.Sequence:
		values, err := amf.DecodeSequence(data, opts)
		if err != nil {
			return err
		}
		for i, v := range values {
			fmt.Fprintf(out, "value %d:\n", i)
			printValue(out, v, 1)
		}
	default:
		v, err := amf.Decode(data, opts)
		if err != nil {
			return err
		}
		printValue(out, v, 0)
	}
	return nil
}

func readInput(cfg config) ([]byte, error) {
	if cfg.input == "" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(cfg.input)
}

func printPacket(out io.Writer, p *amf.Packet) {
	fmt.Fprintf(out, "packet version=0x%02X headers=%d messages=%d\n",
		p.Version, len(p.Headers), len(p.Messages))
	for _, h := range p.Headers {
		fmt.Fprintf(out, "header %q required=%v:\n", h.Name, h.Required)
		printValue(out, h.Value, 1)
	}
	for _, m := range p.Messages {
		fmt.Fprintf(out, "message target=%q response=%q:\n", m.Target, m.Response)
		printValue(out, m.Body, 1)
	}
}
