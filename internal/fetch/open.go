package fetch

import (
	"os"

	"go.uber.org/zap"

	"github.com/Faultbox/stagegraph/internal/config"
	"github.com/Faultbox/stagegraph/internal/logger"
)

// Sources is the fetcher chain built from a data config.
type Sources struct {
	*Cached
	packs *PackFetcher
}

// Open builds the sources described by cfg: pack files first, then the root
// directory, then the remote server, all behind a cache. A root directory
// that does not exist is skipped.
func Open(cfg config.DataConfig) (*Sources, error) {
	log := logger.Named("fetch")

	var chain Chain
	packs := NewPackFetcher()
	for _, p := range cfg.Packs {
		if err := packs.AddArchive(p); err != nil {
			packs.Close()
			return nil, err
		}
		log.Info("pack added", zap.String("path", p))
	}
	if len(cfg.Packs) > 0 {
		chain = append(chain, packs)
	}

	if cfg.Root != "" {
		if s, err := os.Stat(cfg.Root); err == nil && s.IsDir() {
			chain = append(chain, NewDirFetcher(cfg.Root))
		} else {
			log.Warn("asset root not found", zap.String("root", cfg.Root))
		}
	}
	if cfg.Remote != "" {
		chain = append(chain, NewHTTPFetcher(cfg.Remote))
	}

	return &Sources{
		Cached: NewCached(chain, cfg.CacheMB<<20),
		packs:  packs,
	}, nil
}

// Close releases the pack files.
func (s *Sources) Close() {
	s.packs.Close()
}
