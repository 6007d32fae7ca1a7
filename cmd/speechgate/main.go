package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harunnryd/speechgate/pkg/errorsx"
	"github.com/harunnryd/speechgate/pkg/logging"
	"github.com/harunnryd/speechgate/pkg/recognition"
	"github.com/harunnryd/speechgate/pkg/runner"
	"github.com/harunnryd/speechgate/pkg/speechgate"
)

const usage = `usage:
  speechgate listen -config speechgate.yaml [-access-code CODE]
  speechgate speak  -config speechgate.yaml -text TEXT [-out speech.wav]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	var err error
	switch os.Args[1] {
	case "listen":
		err = runListen(os.Args[2:])
	case "speak":
		err = runSpeak(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "speechgate: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (speechgate.Config, error) {
	cfg, err := speechgate.LoadConfig(path)
	if err != nil {
		return cfg, err
	}
	logging.InitLogger(nil, cfg.LogLevel, cfg.LogFormat)
	return cfg, nil
}

// serveMetrics exposes reg on addr until ctx ends.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics_server_error", slog.String("error", err.Error()))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	slog.Info("metrics_server_started", slog.String("addr", addr))
}

// transcriptPrinter writes interim lines with "~" and final lines with ">".
type transcriptPrinter struct {
	recognition.ListenerFuncs
	out io.Writer
}

func newTranscriptPrinter(out io.Writer) *transcriptPrinter {
	p := &transcriptPrinter{out: out}
	p.ListenerFuncs = recognition.ListenerFuncs{
		Transcript: p.print,
		Failure: func(f errorsx.Failure) {
			fmt.Fprintf(os.Stderr, "! %s: %s\n", f.Kind, f.Detail)
		},
	}
	return p
}

func (p *transcriptPrinter) print(u recognition.TranscriptUpdate) {
	marker := "~"
	if u.IsFinal {
		marker = ">"
	}
	fmt.Fprintf(p.out, "%s %s\n", marker, u.Text)
}

func runListen(args []string) error {
	fs := flag.NewFlagSet("listen", flag.ExitOnError)
	configPath := fs.String("config", "speechgate.yaml", "config file")
	accessCode := fs.String("access-code", "", "access code presented to the credential gate")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := speechgate.EngineOptions{Config: cfg}
	if cfg.Metrics.PrometheusAddr != "" {
		reg := prometheus.NewRegistry()
		opts.Registerer = reg
		serveMetrics(ctx, cfg.Metrics.PrometheusAddr, reg)
	}
	engine, err := speechgate.NewEngine(opts, newTranscriptPrinter(os.Stdout))
	if err != nil {
		return err
	}

	lifecycle := runner.NewLifecycleRunner(runner.Options{
		Drainer:      engine,
		DrainTimeout: 10 * time.Second,
	})
	if err := engine.StartListening(ctx, *accessCode); err != nil {
		_ = engine.Close()
		return err
	}
	// A server-side stop or a failure ends the command too.
	return lifecycle.Run(ctx, engine.Session().Done())
}

func runSpeak(args []string) error {
	fs := flag.NewFlagSet("speak", flag.ExitOnError)
	configPath := fs.String("config", "speechgate.yaml", "config file")
	text := fs.String("text", "", "text to synthesize")
	out := fs.String("out", "speech.wav", "output audio file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *text == "" {
		return errors.New("-text is required")
	}
	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	engine, err := speechgate.NewEngine(speechgate.EngineOptions{Config: cfg}, nil)
	if err != nil {
		return err
	}
	defer engine.Close()

	audio, err := engine.Synthesize(ctx, *text)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, audio, 0o644); err != nil {
		return fmt.Errorf("write audio: %w", err)
	}
	slog.Info("speak_completed", slog.String("out", *out), slog.Int("bytes", len(audio)))
	return nil
}
