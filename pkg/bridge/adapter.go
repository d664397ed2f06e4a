package bridge

import (
	"fmt"
	"log/slog"

	"github.com/gridlink/tagbridge/pkg/config"
	"github.com/gridlink/tagbridge/pkg/southbound"
	"github.com/gridlink/tagbridge/pkg/southbound/natssource"
	"github.com/gridlink/tagbridge/pkg/southbound/simulator"
)

// NewAdapter builds the southbound adapter selected by cfg.
func NewAdapter(cfg *config.Config, logger *slog.Logger) (southbound.Adapter, error) {
	sb := cfg.Southbound
	switch sb.Kind {
	case config.KindSimulator:
		return simulator.New(simulator.Config{
			UpdateRate:   sb.Simulator.UpdateRate,
			FailConnects: sb.Simulator.FailConnects,
			DropAfter:    sb.Simulator.DropAfter,
			Seed:         sb.Simulator.Seed,
			Logger:       logger,
		}), nil
	case config.KindNATS:
		return natssource.New(natssource.Config{
			URL:            sb.NATS.URL,
			SubjectPrefix:  sb.NATS.SubjectPrefix,
			Name:           sb.NATS.Name,
			Encoding:       cfg.NATSEncoding(),
			ConnectTimeout: sb.ConnectTimeout,
			Logger:         logger,
		}), nil
	default:
		return nil, fmt.Errorf("%w: unknown southbound kind %q", ErrInvalidConfig, sb.Kind)
	}
}
