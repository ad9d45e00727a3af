package commands

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/Cimbios/CimBios.Core-sub000/internal/codec"
	"github.com/Cimbios/CimBios.Core-sub000/internal/difference"
	"github.com/Cimbios/CimBios.Core-sub000/internal/graph"
	"github.com/Cimbios/CimBios.Core-sub000/internal/model"
)

// loadGraph reads a graph document into an untracked baseline graph
func (env *environment) loadGraph(path string) (*graph.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open graph document: %w", err)
	}
	defer f.Close()

	factory := model.NewTypeRegistry(env.schema)
	objects, err := codec.ReadGraph(f, env.schema, factory)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	g := graph.New(env.schema, graph.WithFactory(factory), graph.WithLogger(env.logger))
	unresolved, err := g.Load(objects)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, ref := range unresolved {
		env.logger.Warn("reference left unresolved",
			zap.String("document", path),
			zap.String("reference", ref.String()))
	}

	env.logger.Info("graph loaded", zap.String("document", path), zap.Int("objects", g.Len()))
	return g, nil
}

// loadDifferences reads a difference document
func (env *environment) loadDifferences(path string) (*difference.Model, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open difference document: %w", err)
	}
	defer f.Close()

	m, err := codec.ReadDifferences(f, env.schema, difference.WithLogger(env.logger))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func (env *environment) output() codec.Options {
	return codec.Options{Indent: env.cfg.Output.Indent}
}

// reportDetails renders one line per failed entity
func reportDetails(r *difference.Report) []string {
	details := make([]string, 0, r.Count())
	for _, e := range r.Entries {
		if e.Class != "" {
			details = append(details, fmt.Sprintf("%s (%s): %v", e.OID, e.Class, e.Err))
		} else {
			details = append(details, fmt.Sprintf("%s: %v", e.OID, e.Err))
		}
	}
	return details
}
