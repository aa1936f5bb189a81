package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/duynguyendang/logicgraph/internal/manager"
	"github.com/duynguyendang/logicgraph/pkg/logic"
	"github.com/duynguyendang/logicgraph/pkg/triple"
)

var (
	dataDir  string
	engine   string
	lowMem   bool
	readOnly bool
	rulePath string
)

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(),
	})))

	root := &cobra.Command{
		Use:           "logicgraph",
		Short:         "Content-addressed triple store with a rule-based inference engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dataDir, "data", envOr("LOGICGRAPH_DATA", "./data"), "base directory holding graphs")
	root.PersistentFlags().StringVar(&engine, "engine", envOr("LOGICGRAPH_ENGINE", ""), "storage engine (memory, badger, sqlite)")
	root.PersistentFlags().BoolVar(&lowMem, "low-mem", false, "reduce cache sizes for constrained environments")
	root.PersistentFlags().BoolVar(&readOnly, "read-only", false, "open graphs read-only")

	root.AddCommand(graphsCmd(), createCmd(), statsCmd(), insertCmd(), queryCmd(), inferCmd(), proveCmd(), validateCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func logLevel() slog.Level {
	if strings.EqualFold(os.Getenv("LOGICGRAPH_LOG"), "debug") {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newManager() *manager.Manager {
	profile := manager.MemoryProfileDefault
	if lowMem {
		profile = manager.MemoryProfileLow
	}
	return manager.NewManager(dataDir, engine, profile, readOnly)
}

func graphsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graphs",
		Short: "List graphs under the data directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			list, err := mgr.List()
			if err != nil {
				return err
			}
			return printJSON(cmd, list)
		},
	}
}

func createCmd() *cobra.Command {
	var name, description string
	cmd := &cobra.Command{
		Use:   "create <graph-id>",
		Short: "Create a new graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			if _, err := mgr.Create(args[0], name, description); err != nil {
				return err
			}
			slog.Info("graph created", "id", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <graph-id>",
		Short: "Show triple count and index sizes for a graph",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			s, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			stats, err := s.Stats()
			if err != nil {
				return err
			}
			return printJSON(cmd, stats)
		},
	}
}

func insertCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "insert <graph-id> <subject> <predicate> <object>",
		Short: "Insert a triple and print its content-derived ID",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			s, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			t := triple.New(
				triple.NodeID{Name: args[1]},
				triple.Predicate(args[2]),
				parseObject(args[3]),
			)
			id, err := s.Insert(t)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), id.Hex())
			return s.Flush()
		},
	}
}

func queryCmd() *cobra.Command {
	var subject, predicate, object string
	cmd := &cobra.Command{
		Use:   "query <graph-id>",
		Short: "Find triples matching a pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			s, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			p := triple.Any()
			if subject != "" {
				p = p.WithSubject(triple.NodeID{Name: subject})
			}
			if predicate != "" {
				p = p.WithPredicate(triple.Predicate(predicate))
			}
			if object != "" {
				p = p.WithObject(parseObject(object))
			}
			results, err := s.Find(p)
			if err != nil {
				return err
			}
			for _, t := range results {
				fmt.Fprintln(cmd.OutOrStdout(), t.String())
			}
			slog.Debug("query done", "pattern", p.String(), "results", len(results))
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "", "subject node")
	cmd.Flags().StringVar(&predicate, "predicate", "", "predicate")
	cmd.Flags().StringVar(&object, "object", "", "object value")
	return cmd
}

func inferCmd() *cobra.Command {
	var maxIterations int
	cmd := &cobra.Command{
		Use:   "infer <graph-id>",
		Short: "Run forward chaining over a rule file until fixpoint",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			s, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			rs, err := loadRules()
			if err != nil {
				return err
			}
			eng := logic.NewEngine(s)
			derived, err := eng.InferForward(cmd.Context(), rs, maxIterations)
			if err != nil {
				return err
			}
			slog.Info("inference complete", "derived", len(derived))
			return s.Flush()
		},
	}
	cmd.Flags().StringVar(&rulePath, "rules", "", "path to rule file")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", logic.DefaultMaxIterations, "forward chaining iteration cap")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func proveCmd() *cobra.Command {
	var maxDepth int
	cmd := &cobra.Command{
		Use:   "prove <graph-id> <subject> <predicate> <object>",
		Short: "Derive a proof for a goal triple and verify it",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			s, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			rs, err := loadRules()
			if err != nil {
				return err
			}
			goal := triple.Any().
				WithSubject(triple.NodeID{Name: args[1]}).
				WithPredicate(triple.Predicate(args[2])).
				WithObject(parseObject(args[3]))
			eng := logic.NewEngine(s)
			proof, err := eng.Prove(cmd.Context(), goal, rs, maxDepth)
			if err != nil {
				return err
			}
			if err := logic.VerifyProof(proof, rs, s); err != nil {
				return fmt.Errorf("derived proof failed verification: %w", err)
			}
			digest, err := proof.Digest()
			if err != nil {
				return err
			}
			slog.Info("proof verified", "steps", len(proof.Steps), "digest", digest)
			return printJSON(cmd, proof)
		},
	}
	cmd.Flags().StringVar(&rulePath, "rules", "", "path to rule file")
	cmd.Flags().IntVar(&maxDepth, "max-depth", logic.DefaultMaxDepth, "backward chaining depth cap")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func validateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <graph-id> <subject> <predicate> <object>",
		Short: "Check a candidate triple against integrity and authority rules",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := newManager()
			defer mgr.CloseAll()
			s, err := mgr.Get(args[0])
			if err != nil {
				return err
			}
			rs, err := loadRules()
			if err != nil {
				return err
			}
			candidate := triple.New(
				triple.NodeID{Name: args[1]},
				triple.Predicate(args[2]),
				parseObject(args[3]),
			)
			v := logic.NewValidator(s, rs)
			result, err := v.Validate(candidate)
			if err != nil {
				return err
			}
			if err := printJSON(cmd, result); err != nil {
				return err
			}
			if !result.Valid {
				return logic.ErrValidationFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&rulePath, "rules", "", "path to rule file")
	_ = cmd.MarkFlagRequired("rules")
	return cmd
}

func loadRules() (*logic.RuleSet, error) {
	f, err := os.Open(rulePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rules, err := logic.ParseRules(f)
	if err != nil {
		return nil, err
	}
	b := logic.NewRuleSetBuilder()
	for _, r := range rules {
		b.Add(r)
	}
	return b.Build()
}

// parseObject maps a CLI argument to a typed value. Quoted text is a
// string literal, numbers and booleans keep their type, anything else
// is a node reference.
func parseObject(raw string) triple.Value {
	if len(raw) >= 2 && raw[0] == '"' && raw[len(raw)-1] == '"' {
		return triple.StringValue(raw[1 : len(raw)-1])
	}
	if raw == "true" || raw == "false" {
		return triple.BoolValue(raw == "true")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return triple.IntValue(n)
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return triple.FloatValue(f)
	}
	return triple.NodeValue(triple.NodeID{Name: raw})
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
