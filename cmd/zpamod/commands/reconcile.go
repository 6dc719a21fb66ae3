package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/reconcile"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/registry"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/telemetry"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

func newReconcileCommand() *cobra.Command {
	var paramsFile string

	cmd := &cobra.Command{
		Use:   "reconcile <kind>",
		Short: "Reconcile one resource toward its declared state",
		Long: `Reconcile reads a JSON parameter document (the invoker contract: state,
id, name, microtenant_id, provider, plus kind-specific fields), resolves the
observed resource, and converges it. The result document is written to
stdout: {"changed": bool, "data": {...}} on success, {"failed": true,
"msg": "..."} on failure.`,
		Example: `  # Converge a segment group from a params file
  zpamod reconcile segment_group --params sg.json

  # Predict the action without mutating
  zpamod reconcile segment_group --params sg.json --check

  # Read parameters from stdin
  cat sg.json | zpamod reconcile segment_group --params -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			params, err := readParams(paramsFile)
			if err != nil {
				return emitFailure(err)
			}

			req, cfg, err := reconcile.ParseParams(kind, params)
			if err != nil {
				return emitFailure(err)
			}
			if checkMode {
				req.CheckMode = true
			}
			if err := mergeProviderFile(cfg); err != nil {
				return emitFailure(err)
			}

			rec, shutdown, err := buildReconciler(cfg, kind)
			if err != nil {
				return emitFailure(err)
			}
			defer shutdown()

			result, err := rec.Reconcile(cmd.Context(), req)
			if err != nil {
				return emitFailure(err)
			}
			return emitJSON(result.InvokerSuccess())
		},
	}

	cmd.Flags().StringVar(&paramsFile, "params", "", "JSON parameter document (path or - for stdin)")
	_ = cmd.MarkFlagRequired("params")

	return cmd
}

// readParams loads the invoker parameter dictionary from a file or stdin.
func readParams(path string) (map[string]any, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, zpa.NewValidationError("reading params: " + err.Error())
	}
	var params map[string]any
	if err := json.Unmarshal(raw, &params); err != nil {
		return nil, zpa.NewValidationError("params must be a JSON object: " + err.Error())
	}
	return params, nil
}

// mergeProviderFile fills unset credential fields from the --provider-file
// YAML document, keeping the parameter block's values when both are set.
func mergeProviderFile(cfg *zpa.Config) error {
	if providerFile == "" {
		return nil
	}
	raw, err := os.ReadFile(providerFile)
	if err != nil {
		return zpa.NewAuthError("reading provider file", err)
	}
	var fromFile zpa.Config
	if err := yaml.Unmarshal(raw, &fromFile); err != nil {
		return zpa.NewAuthError("parsing provider file", err)
	}
	if cfg.ClientID == "" {
		cfg.ClientID = fromFile.ClientID
	}
	if cfg.ClientSecret == "" {
		cfg.ClientSecret = fromFile.ClientSecret
	}
	if cfg.CustomerID == "" {
		cfg.CustomerID = fromFile.CustomerID
	}
	if cfg.Cloud == "" {
		cfg.Cloud = fromFile.Cloud
	}
	if cfg.VanityDomain == "" {
		cfg.VanityDomain = fromFile.VanityDomain
	}
	return nil
}

// buildReconciler wires the telemetry stack, client, registry, and reconciler
// for one invocation, with a logger carrying the invocation id. The returned
// shutdown func flushes pending trace spans.
func buildReconciler(cfg *zpa.Config, kind string) (*reconcile.Reconciler, func(), error) {
	tcfg := telemetry.DefaultConfig("zpamod", "dev")
	if verbose {
		tcfg.Logging.Level = "debug"
	}
	if exporter := os.Getenv("ZPA_TRACE_EXPORTER"); exporter != "" {
		tcfg.Tracing.Enabled = true
		tcfg.Tracing.Exporter = exporter
		tcfg.Tracing.Endpoint = os.Getenv("ZPA_TRACE_ENDPOINT")
	}
	if os.Getenv("ZPA_METRICS") != "" {
		tcfg.Metrics.Enabled = true
	}
	if err := tcfg.Validate(); err != nil {
		return nil, nil, zpa.NewPreconditionError("telemetry configuration: " + err.Error())
	}

	base, err := telemetry.NewLogger(tcfg.Logging)
	if err != nil {
		base = log.Logger
	}
	invocationID := uuid.New().String()
	logger := telemetry.InvocationLogger(base, invocationID, kind)

	tracer, err := telemetry.NewTracer(tcfg.Tracing, tcfg.ServiceName, tcfg.ServiceVersion, tcfg.Environment)
	if err != nil {
		return nil, nil, zpa.NewPreconditionError("trace exporter: " + err.Error())
	}
	metrics, err := telemetry.NewMetrics(tcfg.Metrics)
	if err != nil {
		return nil, nil, zpa.NewPreconditionError("metrics registry: " + err.Error())
	}

	client, err := zpa.NewClient(cfg,
		zpa.WithLogger(telemetry.ComponentLogger(logger, "transport")),
		zpa.WithMetrics(metrics))
	if err != nil {
		return nil, nil, err
	}

	reg := registry.New(client, telemetry.ComponentLogger(logger, "registry"))
	rec := reconcile.New(reg,
		reconcile.WithLogger(logger),
		reconcile.WithMetrics(metrics))

	shutdown := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(ctx); err != nil {
			logger.Debug().Err(err).Msg("trace shutdown")
		}
	}
	return rec, shutdown, nil
}

// emitJSON writes the result document to stdout.
func emitJSON(doc map[string]any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// emitFailure writes the failure document and returns a terminal error so
// the process exits non-zero.
func emitFailure(err error) error {
	if eerr := emitJSON(reconcile.InvokerFailure(err)); eerr != nil {
		return eerr
	}
	return fmt.Errorf("reconciliation failed: %w", err)
}
