package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"comicvox/internal/api"
	"comicvox/pkg/audio"
	"comicvox/pkg/config"
	"comicvox/pkg/db"
	"comicvox/pkg/events"
	"comicvox/pkg/logging"
	"comicvox/pkg/narrator"
	"comicvox/pkg/ocr"
	"comicvox/pkg/ocr/tesseract"
	"comicvox/pkg/probe"
	"comicvox/pkg/queue"
	"comicvox/pkg/scroll"
	"comicvox/pkg/selection"
	"comicvox/pkg/speech"
	"comicvox/pkg/store"
	"comicvox/pkg/tts"
	"comicvox/pkg/tts/edgetts"
	"comicvox/pkg/tts/sapi"
)

// ocrCacheRetention is how long cached extraction results are kept.
const ocrCacheRetention = 30 * 24 * time.Hour

var initConfig = flag.Bool("init-config", false, "Generate default config file and exit")

func main() {
	flag.Parse()

	if *initConfig {
		if err := config.GenerateDefault("configs/comicvox.yaml"); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to generate config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Config file generated: configs/comicvox.yaml")
		return
	}

	if err := run(context.Background(), "configs/comicvox.yaml"); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL ERROR: Application failed: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// API keys and TTS endpoint overrides live in .env during development.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Debug("No .env file loaded", "error", err)
	}

	appCfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cleanupLogs, err := logging.Init(&appCfg.Log)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer cleanupLogs()

	if appCfg.Log.Path != "" {
		tts.SetLogPath(filepath.Join(filepath.Dir(appCfg.Log.Path), "tts.log"))
	}

	slog.Info("Comicvox started")

	dbConn, st, err := initDB(appCfg)
	if err != nil {
		return err
	}
	defer dbConn.Close()

	if err := dbConn.PruneOCRCache(ocrCacheRetention); err != nil {
		slog.Warn("OCR cache pruning failed", "error", err)
	}

	bus := events.NewBus()
	bridge := api.NewBridge(bus)
	remoteEngine := api.NewRemoteEngine(bridge)

	proc, err := initOCR(appCfg)
	if err != nil {
		return err
	}

	if changed, err := store.SyncOCREngine(ctx, st, proc.EngineName()); err != nil {
		slog.Warn("Failed to record OCR engine state", "error", err)
	} else if changed {
		slog.Info("OCR engine changed since last run, clearing text cache", "engine", proc.EngineName())
		if err := dbConn.ClearOCRCache(); err != nil {
			slog.Warn("OCR cache clear failed", "error", err)
		}
	}

	q := queue.New()
	var cache selection.Cache
	if appCfg.OCR.CacheEnabled {
		cache = st
	}
	selStore := selection.NewStore(selection.NewResolver(bridge), proc, q, bus, cache)

	scroller := scroll.New(bridge, &appCfg.Scroll)
	bridge.OnUserScroll = scroller.NoteUserScroll
	bridge.OnResize = scroller.NoteResize

	player := audio.NewPlayer()
	defer player.Shutdown()
	localEngine := initLocalSpeech(appCfg, player)

	seq := narrator.New(&appCfg.Narrator, remoteEngine, localEngine, selStore, scroller, bridge, bus, st, "default")
	defer seq.Stop()

	probes := []probe.Probe{
		{
			Name:     "Database",
			Check:    dbConn.PingContext,
			Critical: true,
		},
		{
			Name:     "Speech Output Dir",
			Check:    func(context.Context) error { return checkWritable(appCfg.TTS.OutputDir) },
			Critical: false,
		},
	}
	if err := probe.AnalyzeResults(probe.Run(ctx, probes)); err != nil {
		return fmt.Errorf("startup checks failed: %w", err)
	}

	return runServer(ctx, appCfg, seq, selStore, q, bridge)
}

func initDB(appCfg *config.Config) (*db.DB, store.Store, error) {
	dbConn, err := db.Init(appCfg.DB.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return dbConn, store.NewSQLiteStore(dbConn), nil
}

func initOCR(appCfg *config.Config) (*ocr.Processor, error) {
	var engine ocr.Engine
	switch appCfg.OCR.Engine {
	case "gemini":
		g, err := ocr.NewGeminiEngine(appCfg.OCR.Gemini)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize gemini OCR: %w", err)
		}
		engine = g
	default:
		engine = tesseract.NewEngine()
	}
	slog.Info("OCR engine selected", "engine", engine.Name(), "languages", appCfg.OCR.Languages)
	return ocr.NewProcessor(engine, appCfg.OCR.Languages), nil
}

// initLocalSpeech builds the fallback chain used when the browser's own
// synthesis fails: Edge TTS first, then the OS voice.
func initLocalSpeech(appCfg *config.Config, player *audio.Player) *speech.LocalEngine {
	var providers []speech.ProviderEntry

	switch appCfg.TTS.Engine {
	case "sapi":
		providers = append(providers, speech.ProviderEntry{
			Name: "sapi", Provider: sapi.NewProvider(), Voice: appCfg.TTS.SAPI.VoiceID,
		})
	default:
		providers = append(providers,
			speech.ProviderEntry{Name: "edge_tts", Provider: edgetts.NewProvider(), Voice: appCfg.TTS.EdgeTTS.VoiceID},
			speech.ProviderEntry{Name: "sapi", Provider: sapi.NewProvider(), Voice: appCfg.TTS.SAPI.VoiceID},
		)
	}

	return speech.NewLocalEngine(providers, player, appCfg.TTS.OutputDir)
}

func runServer(ctx context.Context, cfg *config.Config, seq *narrator.Sequencer, selStore *selection.Store, q *queue.Queue, bridge *api.Bridge) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	shutdownFunc := func() { quit <- syscall.SIGTERM }

	narrationH := api.NewNarrationHandler(seq)
	selectionH := api.NewSelectionHandler(selStore)
	statsH := api.NewStatsHandler(q, selStore, seq, bridge)

	srv := api.NewServer(cfg.Server.Addr, narrationH, selectionH, statsH, bridge, shutdownFunc)
	srv.Handler = loggingMiddleware(srv.Handler)
	return runServerLifecycle(ctx, srv, quit)
}

func runServerLifecycle(ctx context.Context, srv *http.Server, quit chan os.Signal) error {
	slog.Info("Starting server", "addr", srv.Addr)
	serverErrors := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()
	select {
	case <-quit:
		slog.Info("Shutting down server...")
	case <-ctx.Done():
		slog.Info("Context cancelled, shutting down...")
	case err := <-serverErrors:
		return fmt.Errorf("server failed: %w", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// checkWritable verifies the fallback engine can write synthesized audio.
func checkWritable(dir string) error {
	if dir == "" {
		dir = os.TempDir()
	}
	f, err := os.CreateTemp(dir, "comicvox_probe_*")
	if err != nil {
		return err
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("Request processed", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
