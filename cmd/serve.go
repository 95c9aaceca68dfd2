package cmd

import (
	"time"

	"github.com/KaramelBytes/tablelens-cli/internal/server"
	"github.com/spf13/cobra"
)

var (
	srvAddr        string
	srvMaxUploadMB int
	srvFetchAllow  []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the analysis pipeline over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		var l localeFlags
		opt, err := l.options()
		if err != nil {
			return err
		}
		addr, maxMB, timeout, token := ":8080", 32, 60, ""
		var hosts []string
		if cfg != nil {
			if cfg.ServerAddr != "" {
				addr = cfg.ServerAddr
			}
			if cfg.MaxUploadMB > 0 {
				maxMB = cfg.MaxUploadMB
			}
			if cfg.HTTPTimeoutSec > 0 {
				timeout = cfg.HTTPTimeoutSec
			}
			token = cfg.FetchToken
			hosts = cfg.FetchHosts()
		}
		if cmd.Flags().Changed("fetch-allow") {
			hosts = srvFetchAllow
		}
		if cmd.Flags().Changed("addr") {
			addr = srvAddr
		}
		if cmd.Flags().Changed("max-upload-mb") {
			maxMB = srvMaxUploadMB
		}
		srv := server.New(server.Config{
			MaxUploadBytes: int64(maxMB) << 20,
			RequestTimeout: time.Duration(timeout) * time.Second,
			FetchToken:     token,
			FetchHosts:     hosts,
			Options:        opt,
		}, log())
		return srv.ListenAndServe(cmd.Context(), addr)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&srvAddr, "addr", ":8080", "listen address (overrides config server_addr)")
	serveCmd.Flags().StringSliceVar(&srvFetchAllow, "fetch-allow", nil, "hosts URL sources may be fetched from (\".suffix\" for subdomains, \"*\" for any; overrides config fetch_allow_hosts)")
	serveCmd.Flags().IntVar(&srvMaxUploadMB, "max-upload-mb", 32, "maximum request body in MiB (overrides config max_upload_mb)")
}
