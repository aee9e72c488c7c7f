package cli

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bookrag/internal/httpapi"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Serves the landing page and the /load, /books and /ask endpoints
until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		addr := currentConfig.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := httpapi.New(a.Ingestor, a.Gateway, a.Answerer)
		return srv.ListenAndServe(ctx, addr,
			time.Duration(currentConfig.Server.ReadTimeoutSecs)*time.Second,
			time.Duration(currentConfig.Server.ShutdownTimeoutSecs)*time.Second)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
	rootCmd.AddCommand(serveCmd)
}
