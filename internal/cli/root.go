// Package cli 提供 pantry 指令列工具，所有輸出皆為 JSON。
package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pantry-matcher/internal/core/catalog"
	"pantry-matcher/internal/core/engine"
	coreIngredient "pantry-matcher/internal/core/ingredient"
	"pantry-matcher/internal/infrastructure/config"
	"pantry-matcher/internal/pkg/common"
)

// catalogTimeout 遠端目錄的下載逾時
const catalogTimeout = 10 * time.Second

type options struct {
	catalogPath string
	catalogURL  string
}

// NewRootCommand 建立根指令
func NewRootCommand() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "pantry",
		Short:         "Match recipe ingredients against a pantry inventory.",
		Long:          "pantry normalizes ingredient text, matches it to canonical ingredients, converts units, scores recipes and builds shopping lists.",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.PersistentFlags().StringVar(&opts.catalogPath, "catalog", "", "catalog file (yaml or json, default is the embedded catalog)")
	root.PersistentFlags().StringVar(&opts.catalogURL, "catalog-url", "", "fetch the catalog from a URL")

	root.AddCommand(
		newNormalizeCommand(opts),
		newParseCommand(opts),
		newMatchCommand(opts),
		newResolveCommand(opts),
		newConvertCommand(opts),
		newScoreCommand(opts),
		newShoppingCommand(opts),
	)
	return root
}

// Execute 執行根指令
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// engine 依旗標載入目錄並建立引擎；指令列不需要分數快取
func (o *options) engine(cmd *cobra.Command) (*engine.Engine, error) {
	cat, err := catalog.Load(cmd.Context(), config.CatalogConfig{
		Path:    o.catalogPath,
		URL:     o.catalogURL,
		Timeout: catalogTimeout,
	})
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultEngineConfig()
	cfg.Cache.Enabled = false
	return engine.New(cfg, cat)
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	return common.WriteIndentedJSON(cmd.OutOrStdout(), v)
}

func newNormalizeCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "normalize <text>",
		Short: "Print the normalized form of ingredient text.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			return writeJSON(cmd, map[string]string{
				"text":       text,
				"normalized": eng.Normalize(text),
			})
		},
	}
}

func newParseCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <text>",
		Short: "Split an ingredient line into quantity, unit, ingredient and preparation.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			return writeJSON(cmd, eng.Parse(strings.Join(args, " ")))
		},
	}
}

type matchOutput struct {
	common.MatchResult
	Level      string                      `json:"level"`
	Ingredient *common.CanonicalIngredient `json:"ingredient,omitempty"`
}

func newMatchCommand(opts *options) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "match <a> <b>",
		Short: "Match two ingredient strings.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			res := eng.Match(args[0], args[1])
			if !debug {
				res.DebugPath = nil
			}
			return writeJSON(cmd, matchOutput{
				MatchResult: res,
				Level:       coreIngredient.ConfidenceLevel(res.Confidence),
			})
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "include the tier-by-tier debug path")
	return cmd
}

func newResolveCommand(opts *options) *cobra.Command {
	var debug bool
	cmd := &cobra.Command{
		Use:   "resolve <text>",
		Short: "Resolve ingredient text to a canonical ingredient.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			res := eng.Resolve(strings.Join(args, " "))
			if !debug {
				res.DebugPath = nil
			}
			out := matchOutput{
				MatchResult: res,
				Level:       coreIngredient.ConfidenceLevel(res.Confidence),
			}
			if res.Matched() {
				out.Ingredient, _ = eng.Registry().ByID(res.CanonicalID)
			}
			return writeJSON(cmd, out)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "include the tier-by-tier debug path")
	return cmd
}

func newConvertCommand(opts *options) *cobra.Command {
	var ingredientID string
	cmd := &cobra.Command{
		Use:   "convert <quantity> <from> <to>",
		Short: "Convert a quantity between units.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[0], err)
			}
			eng, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			res, err := eng.Convert(q, args[1], args[2], ingredientID)
			if err != nil {
				return err
			}
			return writeJSON(cmd, res)
		},
	}
	cmd.Flags().StringVar(&ingredientID, "ingredient", "", "canonical ingredient id for volume/weight conversion")
	return cmd
}
