package classify

import (
	"fmt"
	"os"

	"github.com/teslashibe/go-olivesort/internal/log"
)

// Open loads the model named by cfg. A missing or incompatible artifact
// is an error; callers treat it as fatal.
func Open(cfg Config) (Model, error) {
	if _, err := os.Stat(cfg.ModelPath); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
		}
		return nil, fmt.Errorf("stat model: %w", err)
	}

	var (
		m   Model
		err error
	)
	switch cfg.Backend {
	case BackendEIM, "":
		m, err = NewEIM(cfg)
	case BackendONNX:
		m, err = NewONNX(cfg)
	case BackendDNN:
		m, err = NewDNN(cfg)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
	if err != nil {
		return nil, err
	}

	log.Component("classify").Info("model loaded",
		"backend", cfg.Backend, "path", cfg.ModelPath, "labels", m.Labels())
	return m, nil
}
