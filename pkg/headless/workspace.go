package headless

import (
	"context"
	"fmt"

	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/board"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/config"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/graph"
	"github.com/Alpaca542/Launch-Hacks-4-sub000/pkg/tools"
)

// Workspace is one open board with the tool pipeline that edits it.
type Workspace struct {
	BoardID   string
	Store     board.Store
	Loader    *board.Loader
	Persister *board.Persister
	Model     *graph.Model
	Canvas    *tools.Canvas
	Executor  *tools.Executor
}

// OpenStore opens the board store named by cfg.
func OpenStore(cfg config.BoardConfig) (board.Store, error) {
	switch cfg.Store {
	case "", "sqlite":
		return board.NewSQLiteStore(cfg.DataDir)
	case "memory":
		return board.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown board store %q", cfg.Store)
	}
}

// OpenWorkspace loads the configured board from store and registers the
// canvas tools over it. Closing the workspace flushes pending writes and
// closes store.
func OpenWorkspace(ctx context.Context, cfg *config.Config, store board.Store) (*Workspace, error) {
	boardID := cfg.Board.ID
	if boardID == "" {
		boardID = "default"
	}

	loader := board.NewLoader(store, board.NewCache(cfg.Board.CacheTTL))
	model, err := loader.Model(ctx, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to load board %s: %w", boardID, err)
	}

	persister := board.NewPersister(store, cfg.Board.Debounce)
	persister.OnSaved = loader.Invalidate
	persister.OnError = func(id string, err error) {
		log.Error("board %s not saved: %v", id, err)
	}

	canvas := tools.NewCanvas(model, boardID, persister)
	canvas.DefaultLayout = cfg.Layout.Default
	canvas.Positioner = positioner(cfg.Layout)

	registry := tools.NewRegistry()
	if err := tools.RegisterCanvasTools(registry, canvas); err != nil {
		return nil, fmt.Errorf("failed to register canvas tools: %w", err)
	}

	nodes, edges := model.Len()
	log.Info("opened board %s (%d nodes, %d edges)", boardID, nodes, edges)

	return &Workspace{
		BoardID:   boardID,
		Store:     store,
		Loader:    loader,
		Persister: persister,
		Model:     model,
		Canvas:    canvas,
		Executor:  tools.NewExecutor(registry),
	}, nil
}

func positioner(cfg config.LayoutConfig) *graph.Positioner {
	p := graph.NewPositioner()
	if cfg.BaseOffset > 0 {
		p.BaseOffset = cfg.BaseOffset
	}
	if cfg.SearchRadius > 0 {
		p.SearchRadius = cfg.SearchRadius
	}
	if cfg.Jitter > 0 {
		p.Jitter = cfg.Jitter
	}
	return p
}

// Close writes pending board changes and closes the store.
func (w *Workspace) Close() error {
	w.Persister.Close()
	return w.Store.Close()
}
