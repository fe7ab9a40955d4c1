package commands

import (
	"github.com/pscheid92/agromarket/internal/platform/version"
	"github.com/spf13/cobra"
)

func versionCmd(rt *env) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print build information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"offline": "true"},
		RunE: func(*cobra.Command, []string) error {
			info := version.Get()
			if rt.asJSON {
				return rt.printJSON(info)
			}
			return rt.printMessage(info.String())
		},
	}
}
