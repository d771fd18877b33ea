package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/palmcove/resortd/internal/server"
	"github.com/palmcove/resortd/internal/session"
)

func newOpenAPICmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI document",
		Long:  "Print the OpenAPI 3 document served at /openapi.json without starting the server or touching the database.",
		Example: `  resortd openapi
  resortd openapi -o openapi.json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			secret, err := randomSecret()
			if err != nil {
				return err
			}
			sessions, err := session.NewManager(session.NewMemoryStore(), session.Options{Secret: secret})
			if err != nil {
				return err
			}

			cfg := server.DefaultConfig()
			cfg.Version = appVersion
			doc, err := server.New(cfg, server.Services{Sessions: sessions}, nil).OpenAPI()
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}

			if outputFile == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}
			if err := os.WriteFile(outputFile, data, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write the document to a file instead of stdout")

	return cmd
}
