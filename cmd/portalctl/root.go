package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "portalctl",
		Short:         "Command-line client for the kelurahan service portal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetIn(a.in)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	flags := root.PersistentFlags()
	flags.BoolVarP(&a.verbose, "verbose", "v", false, "log debug output to stderr")
	flags.StringVar(&a.baseURL, "base-url", "", "upstream API base url (default from UPSTREAM_BASE_URL)")
	flags.StringVar(&a.tokenFile, "token-file", "", "where the login token is kept (default ~/.config/portalctl/token.json)")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newLayananCmd(a),
		newSubmitCmd(a),
		newResumeCmd(a),
		newStatusCmd(a),
		newKontakCmd(a),
		newAdminCmd(a),
	)
	return root
}
