package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/assistant"
	"github.com/fairlens-ai/fairlens/internal/audit"
	"github.com/fairlens-ai/fairlens/internal/bias"
	"github.com/fairlens-ai/fairlens/internal/dataset"
	"github.com/fairlens-ai/fairlens/internal/factual"
	"github.com/fairlens-ai/fairlens/internal/privacy"
	"github.com/fairlens-ai/fairlens/internal/report"
	"github.com/fairlens-ai/fairlens/internal/signing"
)

var (
	// Global flags
	labelColumn    string
	protectedAttrs []string
	format         string
	advancedBias   bool
	biasThreshold  float64
	promptsFile    string
)

func main() {
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "auditctl",
		Short: "Run ethics audits over CSV datasets from the command line",
		Long: `auditctl runs the bias, privacy, explainability and factuality
analyses over a CSV dataset and renders the consolidated audit report.`,
	}

	rootCmd.PersistentFlags().StringVarP(&labelColumn, "label", "l", "", "label column name")
	rootCmd.PersistentFlags().StringSliceVarP(&protectedAttrs, "protected", "p", nil, "protected attribute columns")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(biasCmd())
	rootCmd.AddCommand(privacyCmd())
	rootCmd.AddCommand(scoreCmd())
	rootCmd.AddCommand(verifyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadCSV(path string) (*dataset.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	ds, err := dataset.FromCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse dataset: %w", err)
	}
	return ds, nil
}

// runCmd executes the complete audit over a CSV file.
func runCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <dataset.csv>",
		Short: "Run the full ethics audit and render the report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadCSV(args[0])
			if err != nil {
				return err
			}

			var responder factual.Responder
			var prompts []string
			refs := map[string]string{}
			if promptsFile != "" {
				prompts, refs, err = loadPrompts(promptsFile)
				if err != nil {
					return err
				}
				chat := assistant.New()
				if !chat.Configured() {
					return fmt.Errorf("prompts supplied but no assistant API key is set")
				}
				responder = chat
			}

			o := audit.NewOrchestrator(audit.Options{
				AdvancedBias:  advancedBias,
				BiasThreshold: biasThreshold,
				Responder:     responder,
			})
			result, err := o.Run(context.Background(), &audit.Request{
				Dataset:             ds,
				LabelColumn:         labelColumn,
				ProtectedAttributes: protectedAttrs,
				Prompts:             prompts,
				ReferenceFacts:      refs,
			})
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return report.WriteJSON(os.Stdout, result)
			case "markdown", "md":
				return report.WriteMarkdown(os.Stdout, result)
			default:
				return fmt.Errorf("unknown format %q (json, markdown)", format)
			}
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format: json or markdown")
	cmd.Flags().BoolVar(&advancedBias, "advanced-bias", false, "enable the model-based parity analysis")
	cmd.Flags().Float64Var(&biasThreshold, "bias-threshold", 0, "disparate impact threshold (0 keeps the four-fifths default)")
	cmd.Flags().StringVar(&promptsFile, "prompts", "", "JSON file of prompts and reference facts for the factuality stage")
	return cmd
}

// biasCmd runs only the bias engine.
func biasCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bias <dataset.csv>",
		Short: "Run the bias analysis only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadCSV(args[0])
			if err != nil {
				return err
			}

			engine := bias.NewEngine(false)
			rep, err := engine.Analyze(ds, labelColumn, protectedAttrs, nil)
			if err != nil {
				return err
			}
			return printJSON(rep)
		},
	}
}

// privacyCmd runs only the privacy engine.
func privacyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "privacy <dataset.csv>",
		Short: "Run the privacy analysis only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ds, err := loadCSV(args[0])
			if err != nil {
				return err
			}

			engine := privacy.NewEngine()
			return printJSON(engine.AnalyzeDataset(ds))
		},
	}
}

// scoreCmd recomputes the compliance score from a stored result.
func scoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "score <result.json>",
		Short: "Recompute the compliance score from a saved audit result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read result: %w", err)
			}

			var result audit.Result
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("failed to parse result: %w", err)
			}

			fmt.Printf("%.0f\n", api.ComplianceScore(&result.Summary))
			return nil
		},
	}
}

// verifyCmd checks a saved result against its detached signature.
func verifyCmd() *cobra.Command {
	var signature, hmacKey, pubKey string

	cmd := &cobra.Command{
		Use:   "verify <result.json>",
		Short: "Verify the signature of a saved audit result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read result: %w", err)
			}
			var result audit.Result
			if err := json.Unmarshal(data, &result); err != nil {
				return fmt.Errorf("failed to parse result: %w", err)
			}

			var verifier signing.Verifier
			switch {
			case hmacKey != "" && pubKey != "":
				return fmt.Errorf("--hmac-key and --public-key are mutually exclusive")
			case hmacKey != "":
				verifier = signing.NewHMACSigner(hmacKey)
			case pubKey != "":
				verifier, err = signing.NewEd25519Verifier(pubKey)
				if err != nil {
					return err
				}
			default:
				return fmt.Errorf("one of --hmac-key or --public-key is required")
			}

			if err := verifier.Verify(&result, signature); err != nil {
				return fmt.Errorf("result %s: %w", result.AuditID, err)
			}
			fmt.Printf("result %s: signature OK\n", result.AuditID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&signature, "signature", "s", "", "base64 signature (X-Audit-Signature)")
	cmd.Flags().StringVar(&hmacKey, "hmac-key", "", "shared HMAC key")
	cmd.Flags().StringVar(&pubKey, "public-key", "", "base64 Ed25519 public key")
	cmd.MarkFlagRequired("signature")
	return cmd
}

// promptsSpec is the on-disk shape of the factuality inputs.
type promptsSpec struct {
	Prompts        []string          `json:"prompts"`
	ReferenceFacts map[string]string `json:"reference_facts"`
}

func loadPrompts(path string) ([]string, map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read prompts file: %w", err)
	}

	var spec promptsSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, nil, fmt.Errorf("failed to parse prompts file: %w", err)
	}
	if spec.ReferenceFacts == nil {
		spec.ReferenceFacts = map[string]string{}
	}
	return spec.Prompts, spec.ReferenceFacts, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
