// Command building-agent answers natural-language questions about a building
// by querying its topology graph and sensor time-series store through an LLM
// agent.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/facilitymind/building-agent/pkg/agent"
	"github.com/facilitymind/building-agent/pkg/config"
	"github.com/facilitymind/building-agent/pkg/graphstore"
	"github.com/facilitymind/building-agent/pkg/interfaces"
	"github.com/facilitymind/building-agent/pkg/llm/gemini"
	llmopenai "github.com/facilitymind/building-agent/pkg/llm/openai"
	"github.com/facilitymind/building-agent/pkg/logging"
	"github.com/facilitymind/building-agent/pkg/tools"
	"github.com/facilitymind/building-agent/pkg/tools/timeseries"
	"github.com/facilitymind/building-agent/pkg/tools/topology"
	"github.com/facilitymind/building-agent/pkg/tracing"
	"github.com/facilitymind/building-agent/pkg/tsdb"
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "building-agent",
		Short:         "Ask questions about your building's topology and sensor data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newAskCommand())
	root.AddCommand(newVerifyCommand())
	return root
}

func newAskCommand() *cobra.Command {
	var userID string
	var showSteps bool

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask the agent a question about the building",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), strings.Join(args, " "), userID, showSteps)
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user identifier attached to the trace (default: random)")
	cmd.Flags().BoolVar(&showSteps, "steps", false, "print the tool calls the agent made")
	return cmd
}

func runAsk(ctx context.Context, question, userID string, showSteps bool) error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if userID == "" {
		userID = "cli-" + uuid.NewString()
	}

	graph, err := graphstore.New(graphstore.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := graph.Close(ctx); err != nil {
			logger.Warn(ctx, "Failed to close neo4j client", map[string]interface{}{"error": err.Error()})
		}
	}()

	runner, closeRunner, err := newTimeSeriesRunner(cfg, logger)
	if err != nil {
		return err
	}
	defer closeRunner(ctx)

	llm, err := newCompletionService(ctx, cfg)
	if err != nil {
		return err
	}

	tracer := tracing.New(ctx, tracing.Config{
		PublicKey: cfg.Langfuse.PublicKey,
		SecretKey: cfg.Langfuse.SecretKey,
		Host:      cfg.Langfuse.Host,
	}, logger)
	if lf, ok := tracer.(*tracing.LangfuseTracer); ok {
		defer lf.Shutdown(ctx)
	}

	registry := tools.NewRegistry(
		topology.New(graph),
		timeseries.New(runner),
		tools.WithLogger(logger),
	)

	buildingAgent, err := agent.NewAgent(
		agent.WithLLM(llm),
		agent.WithRegistry(registry),
		agent.WithTracer(tracer),
		agent.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	response := buildingAgent.Run(ctx, question, userID)

	if showSteps {
		for i, step := range response.Steps {
			fmt.Printf("Step %d: %s\n", i+1, step.ToolName)
			if query, ok := step.ToolInput["query"].(string); ok {
				fmt.Printf("  Query: %s\n", query)
			}
			if step.ToolResult != nil {
				if step.ToolResult.Success {
					fmt.Printf("  Rows: %d\n", step.ToolResult.RowCount)
				} else {
					fmt.Printf("  Failed: %s\n", step.ToolResult.Error)
				}
			}
		}
		if len(response.Steps) > 0 {
			fmt.Println()
		}
	}

	fmt.Println(response.FinalAnswer)
	if response.TraceURL != "" {
		fmt.Fprintln(os.Stderr, "Trace:", response.TraceURL)
	}
	return nil
}

func newVerifyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Check connectivity to the configured backends",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context())
		},
	}
}

func runVerify(ctx context.Context) error {
	logger := logging.New()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	failed := false

	graph, err := graphstore.New(graphstore.Config{
		URI:      cfg.Neo4j.URI,
		Username: cfg.Neo4j.Username,
		Password: cfg.Neo4j.Password,
	}, logger)
	if err != nil {
		fmt.Printf("neo4j: FAIL (%v)\n", err)
		failed = true
	} else {
		if err := graph.Verify(ctx); err != nil {
			fmt.Printf("neo4j: FAIL (%v)\n", err)
			failed = true
		} else {
			fmt.Println("neo4j: OK")
		}
		if err := graph.Close(ctx); err != nil {
			logger.Warn(ctx, "Failed to close neo4j client", map[string]interface{}{"error": err.Error()})
		}
	}

	runner, closeRunner, err := newTimeSeriesRunner(cfg, logger)
	if err != nil {
		fmt.Printf("%s: FAIL (%v)\n", cfg.TimeSeries.Backend, err)
		failed = true
	} else {
		if err := runner.Verify(ctx); err != nil {
			fmt.Printf("%s: FAIL (%v)\n", cfg.TimeSeries.Backend, err)
			failed = true
		} else {
			fmt.Printf("%s: OK\n", cfg.TimeSeries.Backend)
		}
		closeRunner(ctx)
	}

	if failed {
		return fmt.Errorf("one or more backends are unreachable")
	}
	return nil
}

// timeSeriesRunner adds the connectivity check to the query contract
type timeSeriesRunner interface {
	interfaces.QueryRunner
	Verify(ctx context.Context) error
}

func newTimeSeriesRunner(cfg *config.Config, logger logging.Logger) (timeSeriesRunner, func(context.Context), error) {
	switch strings.ToLower(cfg.TimeSeries.Backend) {
	case "postgres":
		runner, err := tsdb.NewPostgresRunner(tsdb.PostgresConfig{DSN: cfg.TimeSeries.PostgresDSN}, logger)
		if err != nil {
			return nil, nil, err
		}
		return runner, func(ctx context.Context) {
			if err := runner.Close(); err != nil {
				logger.Warn(ctx, "Failed to close postgres runner", map[string]interface{}{"error": err.Error()})
			}
		}, nil
	default:
		runner, err := tsdb.NewInfluxRunner(tsdb.InfluxConfig{
			Host:     cfg.TimeSeries.Host,
			Token:    cfg.TimeSeries.Token,
			Database: cfg.TimeSeries.Database,
		}, logger)
		if err != nil {
			return nil, nil, err
		}
		return runner, func(ctx context.Context) {
			if err := runner.Close(); err != nil {
				logger.Warn(ctx, "Failed to close influxdb runner", map[string]interface{}{"error": err.Error()})
			}
		}, nil
	}
}

func newCompletionService(ctx context.Context, cfg *config.Config) (interfaces.CompletionService, error) {
	switch strings.ToLower(cfg.LLM.Provider) {
	case "openai":
		opts := []llmopenai.Option{}
		if cfg.LLM.Model != "" {
			opts = append(opts, llmopenai.WithModel(cfg.LLM.Model))
		}
		return llmopenai.NewClient(cfg.LLM.OpenAIAPIKey, opts...)
	default:
		opts := []gemini.Option{}
		if cfg.LLM.Model != "" {
			opts = append(opts, gemini.WithModel(cfg.LLM.Model))
		}
		return gemini.NewClient(ctx, cfg.LLM.GeminiAPIKey, opts...)
	}
}
