package main

import (
	"fmt"

	"recipe-importer/internal/core/appliance"
	"recipe-importer/internal/core/recipe"
	"recipe-importer/internal/pkg/common"

	"github.com/spf13/cobra"
)

func parseAction(raw string) (recipe.CookingAction, error) {
	var m map[string]interface{}
	if err := common.ParseJSON(raw, &m); err != nil {
		return recipe.CookingAction{}, fmt.Errorf("invalid action JSON: %w", err)
	}
	action := recipe.CookingAction{Parameters: map[string]interface{}{}}
	if id, ok := m["methodId"].(string); ok {
		action.MethodID = id
	}
	if params, ok := m["parameters"].(map[string]interface{}); ok {
		for k, v := range params {
			action.Parameters[k] = recipe.ParameterValue(v)
		}
	}
	return action, nil
}

func formatCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "format [action-json|file|-]",
		Short: "Print the one-line summary of a cooking action",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInline(cmd, args)
			if err != nil {
				return err
			}
			action, err := parseAction(raw)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), appliance.FormatSummary(action))
			return nil
		},
	}
}

func validateCMD() *cobra.Command {
	var family string

	var cmd = &cobra.Command{
		Use:   "validate [action-json|file|-]",
		Short: "Validate a cooking action against an appliance family",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readInline(cmd, args)
			if err != nil {
				return err
			}
			action, err := parseAction(raw)
			if err != nil {
				return err
			}

			errs := appliance.ValidateAction(family, action)
			if err := writeJSON(cmd, map[string]interface{}{
				"valid":  errs.Empty(),
				"errors": errs,
			}, false); err != nil {
				return err
			}
			if !errs.Empty() {
				return fmt.Errorf("%d invalid parameter(s)", len(errs))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&family, "family", appliance.FamilyMulticooker, "appliance family (multicooker|oven)")

	return cmd
}
