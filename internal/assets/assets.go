package assets

import (
	"crypto/sha256"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// Web facing prefix on assets in static folder
const AssetPrefix string = "/assets/"

// StaticDir is where the assets are read from, relative to the working
// directory.
var StaticDir = "web/static"

func HttpHandler(r chi.Router) {
	staticHandler := http.FileServer(http.Dir(StaticDir))

	r.Group(func(r chi.Router) {
		r.Use(permCache) // Perma cache all static assets, should use cache busting version
		r.Use(versionedAssets)
		r.Get(AssetPrefix+"*", http.StripPrefix(AssetPrefix, staticHandler).ServeHTTP)
	})
}

func permCache(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=31536000")
		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

// versionedAssets is Middleware that strips the version from an asset.
// Example: styles.80b2c87c0b9a5af9.css forwards as styles.css
func versionedAssets(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sections := strings.Split(r.URL.Path, ".")
		if len(sections) != 3 {
			next.ServeHTTP(w, r)
			return
		}

		r.URL.Path = strings.Join([]string{sections[0], sections[2]}, ".")
		next.ServeHTTP(w, r)
	})
}

var hashed sync.Map // web path -> hashed web path

// GetHashedAssetPath takes the web facing path of an asset, and returns a hashed path to the asset.
// Files are hashed once per process.
func GetHashedAssetPath(webPath string) string {
	if p, ok := hashed.Load(webPath); ok {
		return p.(string)
	}

	trimmedPath := strings.TrimPrefix(webPath, AssetPrefix)
	ext := filepath.Ext(webPath)
	if ext == "" {
		panic("no extension found")
	}

	data, err := os.ReadFile(filepath.Join(StaticDir, trimmedPath))
	if err != nil {
		// not cached, the file may show up later
		return fmt.Sprintf(AssetPrefix+"%v.x%v", strings.TrimSuffix(trimmedPath, ext), ext)
	}

	sum := sha256.Sum256(data)
	p := fmt.Sprintf(AssetPrefix+"%v.%x%v", strings.TrimSuffix(trimmedPath, ext), sum[:8], ext)
	hashed.Store(webPath, p)
	return p
}
