package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/creamcroissant/subrelay/internal/bootstrap"
	"github.com/creamcroissant/subrelay/internal/protocol"
	"github.com/creamcroissant/subrelay/internal/support/logging"
)

func init() {
	var (
		userAgent   string
		showHeaders bool
	)
	renderCmd := &cobra.Command{
		Use:   "render <format>",
		Short: "Render one config to stdout, useful for checking templates",
		Long: `Render runs the same pipeline as the HTTP endpoint without the key check
and writes the body to stdout. Formats: ` + protocol.FormatNames() + `.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, ok := protocol.ParseFormat(args[0])
			if !ok {
				return fmt.Errorf("unknown format %q, use %s", args[0], protocol.FormatNames())
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			// Logs go to stderr so stdout carries only the config.
			logger := logging.New(logging.Options{
				Level:  cfg.Log.SlogLevel(),
				Format: "text",
				Output: cmd.ErrOrStderr(),
			})

			infra, err := bootstrap.BuildInfrastructure(cfg, logger)
			if err != nil {
				return err
			}
			resp, err := infra.Subscription.Render(cmd.Context(), format, userAgent)
			if err != nil {
				return err
			}

			if showHeaders {
				names := make([]string, 0, len(resp.Header))
				for name := range resp.Header {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", name, strings.Join(resp.Header[name], ", "))
				}
			}
			_, err = cmd.OutOrStdout().Write(resp.Body)
			return err
		},
	}
	renderCmd.Flags().StringVar(&userAgent, "user-agent", "subrelay-cli", "caller user agent used for content negotiation")
	renderCmd.Flags().BoolVar(&showHeaders, "headers", false, "print response headers to stderr")
	rootCmd.AddCommand(renderCmd)
}
