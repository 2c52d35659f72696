package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/gazetteer/internal/config"
	"github.com/sells-group/gazetteer/internal/gazetteer"
)

// initRegistry builds the fixed source set from configuration. Callers
// should defer registry.Close().
func initRegistry(ctx context.Context) (*gazetteer.Registry, error) {
	if len(cfg.Sources) == 0 {
		return nil, eris.New("no sources configured")
	}

	sources := make([]gazetteer.Source, 0, len(cfg.Sources))
	closeAll := func() {
		for _, s := range sources {
			_ = s.Close()
		}
	}

	for _, sc := range cfg.Sources {
		src, err := initSource(ctx, sc)
		if err != nil {
			closeAll()
			return nil, err
		}
		sources = append(sources, src)
		zap.L().Info("registered source",
			zap.String("collection", src.Collection()),
			zap.String("driver", sc.Driver),
		)
	}

	reg, err := gazetteer.NewRegistry(cfg.Repo.Identifier, sources...)
	if err != nil {
		closeAll()
		return nil, err
	}
	return reg, nil
}

func initSource(ctx context.Context, sc config.SourceConfig) (gazetteer.Source, error) {
	spec, err := resolveSpec(sc)
	if err != nil {
		return nil, err
	}

	switch sc.Driver {
	case "postgres":
		pool, err := pgxpool.New(ctx, sc.DSN)
		if err != nil {
			return nil, eris.Wrapf(err, "connect %s", spec.Collection)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, eris.Wrapf(err, "ping %s", spec.Collection)
		}
		return gazetteer.NewPostgresSource(pool, spec)
	case "sqlite":
		return gazetteer.NewSQLiteSource(sc.DSN, spec)
	default:
		return nil, eris.Errorf("source %s: unknown driver %q", spec.Collection, sc.Driver)
	}
}

func resolveSpec(sc config.SourceConfig) (gazetteer.SourceSpec, error) {
	var spec gazetteer.SourceSpec
	switch {
	case sc.SpecFile != "":
		s, err := gazetteer.LoadSpec(sc.SpecFile)
		if err != nil {
			return gazetteer.SourceSpec{}, err
		}
		spec = s
	case sc.Spec != "":
		s, ok := gazetteer.BuiltinSpec(sc.Spec)
		if !ok {
			return gazetteer.SourceSpec{}, eris.Errorf("unknown built-in spec %q", sc.Spec)
		}
		spec = s
	default:
		return gazetteer.SourceSpec{}, eris.New("source entry needs spec or spec_file")
	}

	if sc.Collection != "" {
		spec.Collection = sc.Collection
	}
	return spec, nil
}
