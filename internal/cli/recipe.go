package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pantry-matcher/internal/pkg/common"
)

// scoreFile 評分指令的輸入檔
type scoreFile struct {
	Recipe    *common.Recipe         `json:"recipe,omitempty"`
	Recipes   []common.Recipe        `json:"recipes,omitempty"`
	Inventory []common.InventoryItem `json:"inventory"`
}

// shoppingFile 購物清單指令的輸入檔
type shoppingFile struct {
	Recipe    common.Recipe             `json:"recipe"`
	Inventory []common.InventoryItem    `json:"inventory"`
	Existing  []common.ShoppingListItem `json:"existing,omitempty"`
}

type shoppingOutput struct {
	Needed []common.NeededIngredient `json:"needed"`
	Merge  common.MergeResult        `json:"merge"`
}

func readJSONFile(path string, v interface{}) error {
	if path == "" {
		return common.NewValidationError("--file is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := common.DecodeJSONStrict(f, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func newScoreCommand(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score one or more recipes against an inventory.",
		Long:  `Reads {"recipe": ..., "inventory": [...]} or {"recipes": [...], "inventory": [...]} and prints the scores, best first.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in scoreFile
			if err := readJSONFile(file, &in); err != nil {
				return err
			}
			recipes := in.Recipes
			if in.Recipe != nil {
				recipes = append([]common.Recipe{*in.Recipe}, recipes...)
			}
			if len(recipes) == 0 {
				return common.NewValidationError(file + " contains no recipes")
			}

			eng, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			scores, err := eng.ScoreRecipes(cmd.Context(), recipes, in.Inventory)
			if err != nil {
				return err
			}
			return writeJSON(cmd, scores)
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request JSON file")
	return cmd
}

func newShoppingCommand(opts *options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "shopping",
		Short: "Compute what a recipe still needs and merge it into a shopping list.",
		Long:  `Reads {"recipe": ..., "inventory": [...], "existing": [...]} and prints the needed ingredients and the merge result.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var in shoppingFile
			if err := readJSONFile(file, &in); err != nil {
				return err
			}

			eng, err := opts.engine(cmd)
			if err != nil {
				return err
			}
			needed := eng.CalculateNeeded(in.Recipe, in.Inventory)
			return writeJSON(cmd, shoppingOutput{
				Needed: needed,
				Merge:  eng.MergeIntoList(needed, in.Existing),
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "request JSON file")
	return cmd
}
