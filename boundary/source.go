package boundary

import (
	"fmt"
	"io"
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/jsuarezb/go-river-relief/config"
)

// HTTPSource fetches the admin-polygon payload from a URL template keyed by
// country and level. A file already present at the cache path is reused as-is;
// presence is the only check, there is no freshness validation.
type HTTPSource struct {
	urlTemplate string
	cachePath   string
	client      *http.Client
	log         *zap.Logger
}

func NewHTTPSource(cfg config.BoundaryConfig, log *zap.Logger) *HTTPSource {
	return &HTTPSource{
		urlTemplate: cfg.URLTemplate,
		cachePath:   cfg.CachePath,
		client:      http.DefaultClient,
		log:         log,
	}
}

func (s *HTTPSource) Fetch(country string, level int) ([]byte, error) {
	if _, err := os.Stat(s.cachePath); err == nil {
		s.log.Info("using cached boundary file", zap.String("path", s.cachePath))
		return os.ReadFile(s.cachePath)
	}

	url := fmt.Sprintf(s.urlTemplate, country, level)
	s.log.Info("fetching boundary polygons", zap.String("url", url))

	resp, err := s.client.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if err := os.WriteFile(s.cachePath, payload, 0644); err != nil {
		s.log.Warn("could not cache boundary file", zap.Error(err))
	}
	return payload, nil
}
