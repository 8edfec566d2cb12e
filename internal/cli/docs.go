package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/clearview/internal/render"
	"github.com/ppiankov/clearview/internal/upload"
)

var docsJSON bool

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "Upload and ingest policy documents",
	Long: `Manage the policy documents the fact-checking service draws on.

Only PDF files are accepted. Each document is uploaded and ingested
independently; one failure does not stop the others.`,
}

var docsUploadCmd = &cobra.Command{
	Use:   "upload <file.pdf...>",
	Short: "Upload PDF documents for ingestion",
	Example: `  clearview docs upload policy-2024.pdf
  clearview docs upload ./policies/*.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if err := e.requireLogin(); err != nil {
			return err
		}

		batch := upload.NewBatch(e.client, e.cfg.Concurrency.Workers)
		batch.OnUpdate(func(d upload.Document) {
			e.logger.Debug("document", "name", d.Name, "status", d.Status, "message", d.Message)
		})
		rows := batch.Run(cmd.Context(), args)

		if docsJSON {
			return render.JSON(e.stdout, rows)
		}
		e.out.Uploads(rows)

		failed := 0
		for _, r := range rows {
			if r.Status != upload.StatusSuccess {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d documents failed", failed, len(rows))
		}
		return nil
	},
}

var docsIngestCmd = &cobra.Command{
	Use:   "ingest <server-path>",
	Short: "Ingest a document already stored on the server",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if err := e.requireLogin(); err != nil {
			return err
		}

		resp, err := e.client.IngestPath(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		if docsJSON {
			return render.JSON(e.stdout, resp)
		}
		e.out.Ingest(*resp)
		return nil
	},
}

var docsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the service's ingestion status",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd)
		if err != nil {
			return err
		}
		if err := e.requireLogin(); err != nil {
			return err
		}

		status, err := e.client.IngestStatus(cmd.Context())
		if err != nil {
			return fmt.Errorf("ingest status: %w", err)
		}
		if docsJSON {
			return render.JSON(e.stdout, status)
		}
		e.out.Status(status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(docsCmd)
	docsCmd.AddCommand(docsUploadCmd, docsIngestCmd, docsStatusCmd)
	docsCmd.PersistentFlags().BoolVar(&docsJSON, "json", false, "print results as JSON")
}
