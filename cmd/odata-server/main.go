package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	lib "github.com/theoremus-urban-solutions/odata-core"
	"github.com/theoremus-urban-solutions/odata-core/config"
)

func main() {
	mode := flag.String("mode", "serve", "serve|oneshot")
	configPath := flag.String("config", "", "path to config.yml (default: search config.yml, ./config/config.yml)")
	path := flag.String("path", "/", "resource path below the service root (oneshot)")
	format := flag.String("format", "", "$format for oneshot: xml|atom|json or a media type")
	accept := flag.String("accept", "", "Accept header for oneshot")
	lang := flag.String("lang", "", "Accept-Language header for oneshot")
	watch := flag.Bool("watch", true, "reload metadata and data when the config file changes (serve)")
	flag.Parse()

	file, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := lib.InitLogging(config.Config.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc, err := lib.NewService(ctx, &config.Config, lib.WithLogger(logger))
	if err != nil {
		logger.Error().Err(err).Str("config", file).Msg("failed to start service")
		os.Exit(1)
	}

	switch *mode {
	case "serve":
		if *watch {
			w, err := config.NewWatcher(file, func(cfg *config.AppConfig) {
				if err := svc.Reload(ctx, cfg); err != nil {
					logger.Error().Err(err).Msg("reload rejected, keeping previous metadata")
				}
			}, config.WithLogger(logger.Component("config")))
			if err != nil {
				logger.Error().Err(err).Msg("failed to create config watcher")
				os.Exit(1)
			}
			if err := w.Start(ctx); err != nil {
				logger.Error().Err(err).Msg("failed to watch config")
				os.Exit(1)
			}
			defer func() { _ = w.Stop() }()
		}
		lib.StartServer(svc.Handler())
		sets := 0
		for _, c := range config.Config.Metadata.Containers {
			sets += len(c.EntitySets)
		}
		logger.LogServerStart(config.Config.Server.Port, sets)
		lib.HandleGracefulShutdown()

	case "oneshot":
		target := config.Config.Service.Path + *path
		if *format != "" {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + url.Values{"$format": {*format}}.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		if *accept != "" {
			req.Header.Set("Accept", *accept)
		}
		if *lang != "" {
			req.Header.Set("Accept-Language", *lang)
		}
		rec := newRecorder()
		svc.Handler().ServeHTTP(rec, req)
		fmt.Println(rec.body.String())
		if rec.status >= http.StatusBadRequest {
			os.Exit(1)
		}

	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *mode)
		os.Exit(2)
	}
}

func loadConfig(path string) (string, error) {
	if path == "" {
		return config.LoadAppConfig()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return path, err
	}
	config.Config = *cfg
	return path, nil
}

// recorder collects a response in memory for oneshot mode.
type recorder struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newRecorder() *recorder {
	return &recorder{header: http.Header{}, status: http.StatusOK}
}

func (r *recorder) Header() http.Header         { return r.header }
func (r *recorder) Write(b []byte) (int, error) { return r.body.Write(b) }
func (r *recorder) WriteHeader(status int)      { r.status = status }
