package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"safetyhub/internal/config"
)

// ValidationResult holds registry validation results.
type ValidationResult struct {
	Valid   bool     `json:"valid"`
	Sources []string `json:"sources,omitempty"`
	Groups  []string `json:"groups,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <registry-dir>",
		Short: "Validate a CUE source registry",
		Long: `Validate a directory of CUE registry files against the embedded schema.

Checks structural conformance (source and group shapes, resurface window
syntax) and semantic rules (unique ids, declared group references).`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, registryDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}

	formatter.VerboseLog("Loading registry from %s", registryDir)

	registry, err := config.LoadRegistry(registryDir)
	if err != nil {
		var loadErr *config.LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitFailure, fmt.Sprintf("%s: %s", loadErr.Code, loadErr.Message))
		}
		_ = formatter.Error(config.ErrCodeGeneric, err.Error(), nil)
		return NewExitError(ExitFailure, err.Error())
	}

	groups := registry.Groups()
	groupIDs := make([]string, 0, len(groups))
	for _, g := range groups {
		groupIDs = append(groupIDs, g.ID)
	}

	if formatter.Format == "json" {
		return formatter.Success(ValidationResult{
			Valid:   true,
			Sources: registry.SourceIDs(),
			Groups:  groupIDs,
		})
	}

	fmt.Fprintf(formatter.Writer, "✓ registry valid (%d sources, %d groups)\n",
		len(registry.SourceIDs()), len(groupIDs))
	return nil
}
