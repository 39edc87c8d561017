package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hanpama/lambdaql/internal/blueprint"
	"github.com/hanpama/lambdaql/internal/eventbus"
	"github.com/hanpama/lambdaql/internal/otel"
	"github.com/hanpama/lambdaql/internal/plan"
	"github.com/hanpama/lambdaql/internal/reqid"
	"github.com/hanpama/lambdaql/internal/upstream"
)

const rootUsage = `lambdaql — directive-driven field resolution engine & tools

USAGE:
  lambdaql <command> [flags]

COMMANDS:
  check   Compile GraphQL SDL and report directive violations
  eval    Compile SDL and evaluate one field's resolution plan
  help    Show help for any command
`

const checkUsage = `check FLAGS:
  -schema <file>   GraphQL SDL file to compile (required)
  (Exits non-zero when the document has violations)
`

const evalUsage = `eval FLAGS:
  -schema <file>              GraphQL SDL file to compile (required)
  -field <Object.field>       Field whose plan to evaluate (required)
  -input <file>               YAML file with value/args/vars for the evaluation
  -pretty                     Pretty-print the JSON result
  -auth.allow                 Authorize protected fields
  -upstream.timeout <dur>     HTTP upstream timeout, e.g. 10s (default: 10s)
  -otel.endpoint <addr>       OTLP collector endpoint
  -otel.service <name>        OpenTelemetry service name (default: lambdaql)
`

func main() {
	if err := run(os.Args[1:]); err != nil {
		log.Fatal(err)
	}
}

func run(args []string) error {
	global := flag.NewFlagSet("lambdaql", flag.ContinueOnError)
	global.SetOutput(new(bytes.Buffer)) // silence automatic output
	if err := global.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, rootUsage)
		return err
	}
	remaining := global.Args()
	if len(remaining) == 0 {
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("missing command")
	}

	cmd := remaining[0]
	cmdArgs := remaining[1:]
	switch cmd {
	case "check":
		return cmdCheck(cmdArgs)
	case "eval":
		return cmdEval(cmdArgs)
	case "help":
		return cmdHelp(cmdArgs)
	default:
		fmt.Fprint(os.Stderr, rootUsage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func cmdHelp(args []string) error {
	if len(args) == 0 {
		fmt.Print(rootUsage)
		return nil
	}
	switch args[0] {
	case "check":
		fmt.Print(checkUsage)
	case "eval":
		fmt.Print(evalUsage)
	default:
		return fmt.Errorf("unknown help topic %q", args[0])
	}
	return nil
}

func cmdCheck(args []string) error {
	schemaFile := ""
	fs := flag.NewFlagSet("check", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file to compile")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, checkUsage)
		return err
	}
	if schemaFile == "" {
		fmt.Fprint(os.Stderr, checkUsage)
		return fmt.Errorf("-schema is required")
	}

	bp, err := compileFile(schemaFile)
	if err != nil {
		return err
	}
	fmt.Printf("ok: %d computed field(s)\n", len(bp.Fields))
	return nil
}

// evalInput is the YAML shape consumed by eval's -input flag.
type evalInput struct {
	Value any            `yaml:"value"`
	Args  map[string]any `yaml:"args"`
	Vars  map[string]any `yaml:"vars"`
}

type staticAuthorizer struct {
	allow bool
}

func (a staticAuthorizer) Authorize(context.Context) error {
	if a.allow {
		return nil
	}
	return fmt.Errorf("not authorized")
}

func cmdEval(args []string) error {
	schemaFile := ""
	fieldKey := ""
	inputFile := ""
	pretty := false
	allow := false
	upstreamTimeout := 10 * time.Second
	otelEndpoint := ""
	otelService := "lambdaql"

	fs := flag.NewFlagSet("eval", flag.ContinueOnError)
	fs.SetOutput(new(bytes.Buffer))
	fs.StringVar(&schemaFile, "schema", schemaFile, "GraphQL SDL file to compile")
	fs.StringVar(&fieldKey, "field", fieldKey, "Field whose plan to evaluate")
	fs.StringVar(&inputFile, "input", inputFile, "YAML file with value/args/vars")
	fs.BoolVar(&pretty, "pretty", pretty, "Pretty-print the JSON result")
	fs.BoolVar(&allow, "auth.allow", allow, "Authorize protected fields")
	fs.DurationVar(&upstreamTimeout, "upstream.timeout", upstreamTimeout, "HTTP upstream timeout")
	fs.StringVar(&otelEndpoint, "otel.endpoint", otelEndpoint, "OTLP collector endpoint")
	fs.StringVar(&otelService, "otel.service", otelService, "OpenTelemetry service name")
	if err := fs.Parse(args); err != nil {
		fmt.Fprint(os.Stderr, evalUsage)
		return err
	}
	if schemaFile == "" || fieldKey == "" {
		fmt.Fprint(os.Stderr, evalUsage)
		return fmt.Errorf("-schema and -field are required")
	}
	object, field, ok := strings.Cut(fieldKey, ".")
	if !ok {
		return fmt.Errorf("field must be Object.field, got %q", fieldKey)
	}

	bp, err := compileFile(schemaFile)
	if err != nil {
		return err
	}
	cf := bp.Fields[fieldKey]
	if cf == nil {
		return fmt.Errorf("no computed field %s", fieldKey)
	}

	var input evalInput
	if inputFile != "" {
		raw, err := os.ReadFile(inputFile)
		if err != nil {
			return err
		}
		if err := yaml.Unmarshal(raw, &input); err != nil {
			return fmt.Errorf("parse input: %w", err)
		}
	}

	eventbus.Use(eventbus.New())
	shutdown, err := otel.Setup(otelEndpoint, otelService)
	if err != nil {
		return fmt.Errorf("otel setup: %w", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	ev := plan.NewEvaluator(upstream.NewHTTP(upstreamTimeout), staticAuthorizer{allow: allow})
	ctx, _ := reqid.NewContext(context.Background())
	ectx := plan.NewEvalContext(input.Value, input.Args, input.Vars)
	result, err := ev.EvaluateField(ctx, object, field, cf.Plan, ectx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(result)
}

func compileFile(path string) (*blueprint.Blueprint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return blueprint.Compile(path, string(raw))
}
