package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	config "github.com/hanpama/lighthouse/internal/config"
	eventbus "github.com/hanpama/lighthouse/internal/eventbus"
	gqlcontext "github.com/hanpama/lighthouse/internal/gqlcontext"
	otel "github.com/hanpama/lighthouse/internal/otel"
	schema "github.com/hanpama/lighthouse/internal/schema"
	subscriptions "github.com/hanpama/lighthouse/internal/subscriptions"
	storage "github.com/hanpama/lighthouse/internal/subscriptions/storage"
)

const rootUsage = `lighthouse: schema-first GraphQL server

USAGE:
  lighthouse <command> [flags]

COMMANDS:
  serve            Run the HTTP GraphQL server
  print-schema     Validate GraphQL SDL and print the merged schema
  subscribers      List the subscribers stored for a topic
  help             Show help for any command
`

const serveUsage = `serve FLAGS:
  -config <file>                       YAML configuration file
  -graphql.schema <glob>               GraphQL SDL files. Repeatable; at least one required
  -graphql.echo                        Root fields without a resolver return their arguments
  -server.addr <addr>                  HTTP listen address (default: :8080)
  -server.pretty                       Pretty-print JSON responses
  -server.timeout <duration>           Per-request timeout, e.g. 10s (default: 10s)
  -subscriptions.storage <kind>        Subscriber storage: memory or bolt (default: memory)
  -subscriptions.bolt-path <file>      Bolt database file for bolt storage
  -otel.endpoint <addr>                OTLP collector endpoint
  -otel.service <name>                 OpenTelemetry service name (default: lighthouse)
  -log.level <level>                   debug, info, warn or error (default: info)
  -log.development                     Human readable development logs
`

const printSchemaUsage = `print-schema FLAGS:
  -graphql.schema <glob>   GraphQL SDL files. Repeatable; at least one required
  -out <file>              Write the schema to file (default: stdout)
  (Validation always runs; exits non-zero on errors)
`

const subscribersUsage = `subscribers FLAGS:
  -config <file>                   YAML configuration file
  -subscriptions.bolt-path <file>  Bolt database file (required unless configured)
  -topic <topic>                   Topic to list
  -field <name>                    Subscription field; lists its default topic
`

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd, cmdArgs := args[0], args[1:]
	switch cmd {
	case "serve":
		return cmdServe(cmdArgs, stderr)
	case "print-schema":
		return cmdPrintSchema(cmdArgs, stdout, stderr)
	case "subscribers":
		return cmdSubscribers(cmdArgs, stdout, stderr)
	case "help", "-h", "-help", "--help":
		return cmdHelp(cmdArgs, stdout)
	default:
		fmt.Fprint(stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, rootUsage)
		return nil
	}
	switch args[0] {
	case "serve":
		fmt.Fprint(stdout, serveUsage)
	case "print-schema":
		fmt.Fprint(stdout, printSchemaUsage)
	case "subscribers":
		fmt.Fprint(stdout, subscribersUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

type stringListFlag []string

func (s *stringListFlag) String() string { return "" }

func (s *stringListFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// loadConfig reads the configuration file and applies the flags that were
// set explicitly on fs.
func loadConfig(path string, fs *flag.FlagSet, apply map[string]func(*config.Config, string) error) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	var applyErr error
	fs.Visit(func(f *flag.Flag) {
		if fn, ok := apply[f.Name]; ok && applyErr == nil {
			applyErr = fn(cfg, f.Value.String())
		}
	})
	if applyErr != nil {
		return nil, applyErr
	}
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Log) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level, err := zap.ParseAtomicLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	zc.Level = level
	return zc.Build()
}

var serveOverrides = map[string]func(*config.Config, string) error{
	"server.addr": func(c *config.Config, v string) error { c.Server.Addr = v; return nil },
	"server.pretty": func(c *config.Config, v string) error {
		c.Server.Pretty = v == "true"
		return nil
	},
	"server.timeout": func(c *config.Config, v string) (err error) {
		c.Server.Timeout, err = time.ParseDuration(v)
		return err
	},
	"subscriptions.storage":   func(c *config.Config, v string) error { c.Subscriptions.Storage = v; return nil },
	"subscriptions.bolt-path": func(c *config.Config, v string) error { c.Subscriptions.BoltPath = v; return nil },
	"otel.endpoint":           func(c *config.Config, v string) error { c.Otel.Endpoint = v; return nil },
	"otel.service":            func(c *config.Config, v string) error { c.Otel.Service = v; return nil },
	"log.level":               func(c *config.Config, v string) error { c.Log.Level = v; return nil },
	"log.development": func(c *config.Config, v string) error {
		c.Log.Development = v == "true"
		return nil
	},
}

func cmdServe(args []string, stderr io.Writer) error {
	var (
		configPath string
		schemas    stringListFlag
		echo       bool
	)
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.Var(&schemas, "graphql.schema", "GraphQL SDL files")
	fs.BoolVar(&echo, "graphql.echo", false, "Echo arguments of unresolved root fields")
	fs.String("server.addr", "", "HTTP listen address")
	fs.Bool("server.pretty", false, "Pretty-print JSON responses")
	fs.Duration("server.timeout", 0, "Per-request timeout")
	fs.String("subscriptions.storage", "", "Subscriber storage")
	fs.String("subscriptions.bolt-path", "", "Bolt database file")
	fs.String("otel.endpoint", "", "OTLP collector endpoint")
	fs.String("otel.service", "", "OpenTelemetry service name")
	fs.String("log.level", "", "Log level")
	fs.Bool("log.development", false, "Development logs")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, serveUsage)
		return err
	}
	if len(schemas) == 0 {
		fmt.Fprint(stderr, serveUsage)
		return fmt.Errorf("-graphql.schema is required")
	}

	cfg, err := loadConfig(configPath, fs, serveOverrides)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	log, err := newLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	sch, err := loadSchema(schemas)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus := eventbus.New()
	eventbus.Use(bus)
	shutdown, err := otel.Setup(ctx, bus, cfg.Otel.Endpoint, cfg.Otel.Service)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	a, err := newApp(cfg, sch, log, echo)
	if err != nil {
		return err
	}
	defer func() { _ = a.close() }()

	srv := &http.Server{Addr: cfg.Server.Addr, Handler: a.routes()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return a.manager.Run(gctx) })
	g.Go(func() error {
		log.Info("GraphQL server listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}

func cmdPrintSchema(args []string, stdout, stderr io.Writer) error {
	var (
		schemas stringListFlag
		outFile string
	)
	fs := flag.NewFlagSet("print-schema", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.Var(&schemas, "graphql.schema", "GraphQL SDL files")
	fs.StringVar(&outFile, "out", "", "Write the schema to file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, printSchemaUsage)
		return err
	}
	if len(schemas) == 0 {
		fmt.Fprint(stderr, printSchemaUsage)
		return fmt.Errorf("-graphql.schema is required")
	}

	sch, err := loadSchema(schemas)
	if err != nil {
		return fmt.Errorf("build schema: %w", err)
	}
	sdl := schema.Render(sch)
	if outFile == "" {
		_, err := io.WriteString(stdout, sdl)
		return err
	}
	return os.WriteFile(outFile, []byte(sdl), 0644)
}

func cmdSubscribers(args []string, stdout, stderr io.Writer) error {
	var configPath, boltPath, topic, field string
	fs := flag.NewFlagSet("subscribers", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&configPath, "config", "", "YAML configuration file")
	fs.StringVar(&boltPath, "subscriptions.bolt-path", "", "Bolt database file")
	fs.StringVar(&topic, "topic", "", "Topic to list")
	fs.StringVar(&field, "field", "", "Subscription field")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(stderr, subscribersUsage)
		return err
	}
	if (topic == "") == (field == "") {
		fmt.Fprint(stderr, subscribersUsage)
		return fmt.Errorf("exactly one of -topic or -field is required")
	}
	if field != "" {
		topic = subscriptions.Topic(field)
	}

	if boltPath == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("config: %w", err)
		}
		boltPath = cfg.Subscriptions.BoltPath
	}
	if boltPath == "" {
		fmt.Fprint(stderr, subscribersUsage)
		return fmt.Errorf("-subscriptions.bolt-path is required")
	}

	db, err := storage.OpenBolt(boltPath, gqlcontext.JSONSerializer{})
	if err != nil {
		return fmt.Errorf("open subscriber storage: %w", err)
	}
	defer db.Close()

	subs, err := db.SubscribersByTopic(context.Background(), topic)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHANNEL\tFIELD\tARGS")
	for _, s := range subs {
		args, err := json.Marshal(s.Args)
		if err != nil {
			return fmt.Errorf("channel %s: %w", s.Channel, err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.Channel, s.FieldName, args)
	}
	return tw.Flush()
}
