package commands

import (
	"fmt"
	"log/slog"
	"math"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/54b3r/resumeai-go/internal/logging"
	"github.com/54b3r/resumeai-go/internal/server"
)

// NewServeCmd constructs the `resumeai serve` command, which starts the HTTP
// API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the resumeai HTTP API",
		Long: `Start the resumeai HTTP server.

Endpoints:
  POST   /api/chat                      ask a question for a session
  POST   /api/upload                    upload .txt/.pdf resumes (multipart)
  GET    /api/sessions/{id}/history     list a session's turns
  DELETE /api/sessions/{id}/history     reset a session (?purge_documents=true)
  GET    /api/health, /api/ready        liveness and dependency readiness
  GET    /metrics                       Prometheus metrics

Set RESUMEAI_API_KEY to require a Bearer token on the /api/chat, /api/upload
and /api/sessions endpoints.

Examples:
  resumeai serve
  resumeai serve --port 9090
  MODEL_PROVIDER=gemini VECTOR_STORE=memory resumeai serve`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			app, err := buildRuntime(ctx, log, runtimeOptions{
				chat:     true,
				observer: server.NewStageObserver(prometheus.DefaultRegisterer),
			})
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer app.Close()

			pingers := []server.Pinger{
				server.NewLLMPinger(app.chatModel, app.providerCfg.HealthCheck(), string(app.providerCfg.Backend)),
				server.NewHistoryPinger(app.history),
			}
			if app.qdrant != nil {
				pingers = append(pingers, server.NewQdrantPinger(app.qdrant))
			}

			// Zero disables limiting; rate.Inf admits every request.
			rps := app.settings.RateLimit
			if rps == 0 {
				rps = math.Inf(1)
			}

			srv, err := server.New(&server.Deps{
				Runtime:  app.runtime,
				Pipeline: app.pipeline,
				History:  app.history,
			}, &server.Config{
				Host:       host,
				Port:       port,
				Logger:     log,
				Pingers:    pingers,
				APIKey:     app.settings.APIKey,
				RateLimit:  rps,
				RateBurst:  app.settings.RateBurst,
				IngestRoot: app.settings.IngestRoot,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			log.Info("serve starting",
				slog.String("vector_store", app.settings.VectorStore),
				slog.String("upload_root", app.pipeline.UploadRoot()),
			)
			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", getEnvOrDefault("RESUMEAI_HOST", "127.0.0.1"), "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", getEnvInt("RESUMEAI_PORT", 8080), "TCP port to listen on")

	return cmd
}
