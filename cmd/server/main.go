package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"pigflow.ai/internal/dataset"
	persistlog "pigflow.ai/internal/persistence/log"
	"pigflow.ai/internal/sim/playback"
	"pigflow.ai/internal/sim/tuning"
	"pigflow.ai/internal/transport/httpapi"
	"pigflow.ai/internal/transport/observer"
)

func main() {
	var (
		addr        = flag.String("addr", ":8080", "http listen address")
		datasetLoc  = flag.String("dataset", "http://127.0.0.1:3000/api/v1/init", "dataset location: init endpoint URL or .json/.json.zst file")
		configDir   = flag.String("configs", "./configs", "config directory")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		dataDir     = flag.String("data", "./data", "runtime data directory")
		disableDB   = flag.Bool("disable_db", false, "disable the sqlite read-model index")
		autoplay    = flag.Duration("autoplay", 0, "advance one day per interval after loading (0 disables)")
		obsPublic   = flag.Bool("observer_public", false, "allow non-loopback clients on the observer endpoints")
		loadOnStart = flag.Bool("load", true, "load the dataset at startup")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	cfg, err := playback.ConfigFromTuning(tune)
	if err != nil {
		logger.Fatalf("tuning: %v", err)
	}

	_ = os.MkdirAll(*dataDir, 0o755)

	// Optional: read-model index backend (does not affect playback).
	idx, err := openRuntimeIndex(*dataDir, *disableDB, logger)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertTuning(tune); err != nil {
			logger.Printf("index backend: upsert tuning: %v", err)
		}
	}

	eng := playback.New(cfg, log.New(os.Stdout, "[playback] ", log.LstdFlags|log.Lmicroseconds))

	dayLog := persistlog.NewDayLogger(*dataDir)
	defer dayLog.Close()
	eng.AddSink(dayLog)
	if idx != nil {
		eng.AddSink(idx)
	}

	ctx, cancel := signalContext()
	defer cancel()

	if idx != nil {
		// Subscribed before the first load so its session row is not missed.
		stopRecorder := startSessionRecorder(eng, idx)
		defer stopRecorder()
	}

	src := dataset.Open(*datasetLoc, time.Duration(tune.FetchTimeoutMs)*time.Millisecond)
	if *loadOnStart {
		if err := eng.Load(ctx, src); err != nil {
			// Not fatal: the API stays up and POST /v1/load can retry.
			logger.Printf("initial load from %s: %v", src, err)
		}
	}

	if *autoplay > 0 {
		go func() {
			if err := eng.Run(ctx, *autoplay); err != nil && err != context.Canceled {
				logger.Printf("autoplay stopped: %v", err)
			}
		}()
	}

	obsSrv := observer.NewServer(eng, log.New(os.Stdout, "[observer] ", log.LstdFlags|log.Lmicroseconds))
	obsSrv.AllowRemote = *obsPublic

	api := httpapi.New(eng, httpapi.Options{
		Source:            src,
		LoadTimeout:       time.Duration(tune.FetchTimeoutMs) * time.Millisecond,
		ObserverWS:        obsSrv.WSHandler(),
		ObserverBootstrap: obsSrv.BootstrapHandler(),
		Extra: func() map[string]any {
			if idx == nil {
				return nil
			}
			return map[string]any{"index": idx.Stats()}
		},
	}, log.New(os.Stdout, "[http] ", log.LstdFlags|log.Lmicroseconds))

	r := chi.NewRouter()
	r.Get("/metrics", func(rw http.ResponseWriter, req *http.Request) {
		writeMetrics(rw, eng, idx)
	})
	if envBool("PF_ENABLE_PPROF_HTTP", false) {
		r.HandleFunc("/debug/pprof/*", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	} else {
		logger.Printf("pprof endpoints disabled (PF_ENABLE_PPROF_HTTP=false)")
	}
	r.Mount("/", api)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s (dataset=%s)", *addr, src)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}
