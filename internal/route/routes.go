package route

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/benbjohnson/clock"
	"github.com/hybridgroup/mjpeg"

	"trackserver/internal/config"
	"trackserver/internal/handler"
	"trackserver/internal/logger"
	"trackserver/internal/middleware"
	"trackserver/internal/repository"
	"trackserver/internal/service/websocket"
)

// StaticDir holds the web front-end.
const StaticDir = "static"

// Deps are the services exposed over HTTP. Catalog is nil when the catalog is disabled.
type Deps struct {
	Manager handler.StreamController
	Hub     *websocket.HubService
	Stream  *mjpeg.Stream
	Catalog repository.SightingRepository
	Logs    handler.LogCleaner
	Clock   clock.Clock
}

// dynamicHTMLHandler serves /path as /static/path.html if the file exists; otherwise 404.
func dynamicHTMLHandler(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path

	if path == "/" {
		path = "/index"
	}

	filePath := filepath.Join(StaticDir, path+".html")

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, filePath)
}

// SetupRoutes registers the stream, catalog, dataset and log endpoints and
// wraps the mux with CORS and request logging.
func SetupRoutes(deps Deps, cfg *config.Config, logger logger.Interface) http.Handler {
	mux := http.NewServeMux()
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}

	// Static files
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.Dir(StaticDir))))

	// Stream endpoints
	mux.Handle("/video_feed", deps.Stream)
	mux.HandleFunc("/api/snapshot", handler.SnapshotHandler(deps.Manager))
	mux.HandleFunc("/status", handler.StatusHandler(deps.Manager, logger))
	mux.HandleFunc("/start_stream", handler.StartStreamHandler(deps.Manager, logger))
	mux.HandleFunc("/stop_stream", handler.StopStreamHandler(deps.Manager, logger))
	mux.HandleFunc("/api/reset", handler.ResetHandler(deps.Manager, logger))
	mux.HandleFunc("/api/ws", handler.EventsWebsocketHandler(deps.Hub, deps.Manager.Status, logger))

	// Catalog endpoints
	if deps.Catalog != nil {
		mux.HandleFunc("/api/sightings", handler.GetSightingsHandler(deps.Catalog, logger))
		mux.HandleFunc("/api/sightings/stats", handler.GetSightingStatsHandler(deps.Catalog, logger))
		mux.HandleFunc("/api/sightings/image", handler.ViewSightingImageHandler(deps.Catalog, logger))
		mux.HandleFunc("/api/sightings/clear", handler.ClearSightingsHandler(deps.Catalog, logger))
	}

	// Dataset downloads
	mux.HandleFunc(handler.DatasetPrefix, handler.DownloadDatasetHandler(handler.DatasetsFromConfig(cfg), deps.Clock, logger))

	// Log endpoints
	mux.HandleFunc("/logs", handler.ShowLogsHandler(deps.Logs))
	mux.HandleFunc("/logs/clear", handler.ClearLogsHandler(deps.Logs))

	// Automatic HTML handler mapping for example: /settings -> /static/settings.html
	mux.HandleFunc("/", dynamicHTMLHandler)

	return middleware.CORSMiddleware(middleware.LoggingMiddleware(logger)(mux))
}
