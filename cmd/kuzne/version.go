package main

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
	"github.com/ceyert/kuzne/kernel/kmain"
	"github.com/spf13/cobra"
)

func init() {
	var require string

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the kernel version",
		Long: `The version command prints the kernel version. With --require it
fails unless the version satisfies the given constraint.

Example:
  kuzne version --require ">= 0.4, < 1.0"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd, require)
		},
	}
	cmd.Flags().StringVar(&require, "require", "", "Semantic version constraint the kernel must satisfy")

	rootCmd.AddCommand(cmd)
}

func runVersion(cmd *cobra.Command, require string) error {
	fmt.Fprintf(cmd.OutOrStdout(), "kuzne %s\n", kmain.Version)

	if require == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(require)
	if err != nil {
		return fmt.Errorf("invalid constraint %q: %w", require, err)
	}

	if ok, errs := constraint.Validate(kmain.Version); !ok {
		return fmt.Errorf("version %s does not satisfy %q: %v", kmain.Version, require, errs)
	}

	return nil
}
