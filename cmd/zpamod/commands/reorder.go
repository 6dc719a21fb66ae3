package commands

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/zscaler/zpacloud-ansible-sub000/pkg/reconcile"
	"github.com/zscaler/zpacloud-ansible-sub000/pkg/zpa"
)

func newReorderCommand() *cobra.Command {
	var rulesFile string

	cmd := &cobra.Command{
		Use:   "reorder <kind>",
		Short: "Reorder a policy rule collection atomically",
		Long: `Reorder reads a JSON document with the proposed rule ordering
({"rules": [{"id": "...", "order": 1}, ...]}), validates that the orders are
dense 1..N with no duplicates, and issues one bulk-reorder call when the
observed order differs.`,
		Example: `  # Reorder access policy rules
  zpamod reorder policy_access_rule --rules order.json

  # Validate and predict without calling the API
  zpamod reorder policy_access_rule --rules order.json --check`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, cfg, err := readReorderRequest(args[0], rulesFile)
			if err != nil {
				return emitFailure(err)
			}
			if checkMode {
				req.CheckMode = true
			}
			if err := mergeProviderFile(cfg); err != nil {
				return emitFailure(err)
			}

			rec, shutdown, err := buildReconciler(cfg, req.Kind)
			if err != nil {
				return emitFailure(err)
			}
			defer shutdown()

			result, err := rec.Reorder(cmd.Context(), req)
			if err != nil {
				return emitFailure(err)
			}
			return emitJSON(result.InvokerSuccess())
		},
	}

	cmd.Flags().StringVar(&rulesFile, "rules", "", "JSON rules document (path or - for stdin)")
	_ = cmd.MarkFlagRequired("rules")

	return cmd
}

// readReorderRequest loads the reorder document plus an optional embedded
// provider block.
func readReorderRequest(kind, path string) (*reconcile.ReorderRequest, *zpa.Config, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, nil, zpa.NewValidationError("reading rules: " + err.Error())
	}

	var doc struct {
		Rules         []reconcile.RuleOrder `json:"rules"`
		MicrotenantID string                `json:"microtenant_id"`
		Provider      *zpa.Config           `json:"provider"`
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, nil, zpa.NewValidationError("rules must be a JSON document: " + err.Error())
	}

	cfg := doc.Provider
	if cfg == nil {
		cfg = &zpa.Config{}
	}
	return &reconcile.ReorderRequest{
		Kind:          kind,
		Rules:         doc.Rules,
		MicrotenantID: doc.MicrotenantID,
	}, cfg, nil
}
