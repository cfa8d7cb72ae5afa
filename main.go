package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/afero"
	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"jfresolve/api"
	"jfresolve/config"
	"jfresolve/handlers"
	"jfresolve/internal/library"
	"jfresolve/services/addon"
	"jfresolve/services/catalog"
	"jfresolve/services/materialize"
	"jfresolve/services/resolver"
	"jfresolve/services/search"
	"jfresolve/services/titlecache"
	"jfresolve/utils"
)

func main() {
	configPath := flag.String("config", "./data/settings.json", "path to the settings file")
	flag.Parse()

	cfgManager := config.NewManager(*configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("[main] loading settings: %v", err)
	}

	if settings.Log.File != "" {
		log.SetOutput(&lumberjack.Logger{
			Filename:   settings.Log.File,
			MaxSize:    settings.Log.MaxSizeMB,
			MaxBackups: settings.Log.MaxBackups,
			Compress:   true,
		})
	}

	if settings.Catalog.TMDBAPIKey == "" {
		log.Printf("[main] warning: no catalog API key configured, search will fail until one is set")
	}
	if settings.Addon.BaseURL == "" {
		log.Printf("[main] warning: no addon configured, stream resolution will fail until one is set")
	}

	store, err := library.Open(settings.Library.DatabasePath)
	if err != nil {
		log.Fatalf("[main] opening library index: %v", err)
	}
	defer store.Close()

	cache := titlecache.New(settings.CacheTTL())
	catalogClient := catalog.NewClient(settings.Catalog.TMDBAPIKey, settings.Catalog.Language, nil)
	addonClient := addon.NewClient(settings.Addon.BaseURL, nil)
	rescanner := library.NewRescanner(settings.Host.BaseURL, settings.Host.APIKey, nil)

	materializer := materialize.New(afero.NewOsFs(), materialize.Options{
		SidecarExt:      settings.Library.SidecarExt,
		WriteNFO:        settings.Library.WriteNFO,
		IncludeSpecials: settings.Library.IncludeSpecials,
		Overwrite:       settings.Library.Overwrite,
	})

	urls := resolver.RedirectURLBuilder{PublicBaseURL: settings.Server.PublicBaseURL}
	resolverSvc := resolver.NewService(cache, store, rescanner, catalogClient, materializer, urls, resolver.Options{
		LibraryRoot:          settings.Library.Root,
		StrictDuplicateCheck: settings.Resolver.StrictDuplicateCheck,
	})
	searchSvc := search.NewService(catalogClient, addonClient, cache, settings.Addon.CatalogID)

	settingsHandler := handlers.NewSettingsHandler(cfgManager)
	settingsHandler.SetCache(cache)

	limiter := api.NewClientLimiter(rate.Limit(5), 20)

	router := utils.NewRouter()
	handlers.RegisterRoutes(router,
		handlers.NewSearchHandler(searchSvc),
		handlers.NewItemsHandler(resolverSvc, store, urls),
		handlers.NewStreamHandler(addonClient),
		settingsHandler,
		handlers.NewLogsHandler(settings.Log.File),
		limiter.Middleware,
	)

	srv := &http.Server{
		Addr:              settings.Server.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	go func() {
		log.Printf("[main] listening on %s (library root %s)", settings.Server.ListenAddr, settings.Library.Root)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
