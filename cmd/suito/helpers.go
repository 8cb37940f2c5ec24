package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/suito/internal/cli"
	"github.com/Veraticus/suito/internal/common"
	"github.com/Veraticus/suito/internal/config"
	"github.com/Veraticus/suito/internal/engine"
	"github.com/Veraticus/suito/internal/layer"
	"github.com/Veraticus/suito/internal/model"
	"github.com/Veraticus/suito/internal/prediction"
	"github.com/Veraticus/suito/internal/service"
	"github.com/Veraticus/suito/internal/storage"
	"github.com/Veraticus/suito/internal/wfs"
)

// session is an opened workspace plus what must be closed afterwards.
type session struct {
	ws    *engine.Workspace
	store *storage.SQLiteStorage
	cfg   *config.Config
}

func (s *session) Close() {
	if err := s.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// openSession loads config, storage and the user's workspace state.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := config.Load(nil)
	if err != nil {
		return nil, err
	}
	if err := cfg.RequireUser(); err != nil {
		return nil, common.NewUserError("No user configured. Pass --user or set SUITO_USER", err)
	}

	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	geometry, err := wfs.NewClient(wfs.Config{
		BaseURL:   cfg.GeometryURL,
		Timeout:   cfg.GeometryTimeout,
		ChunkSize: cfg.GeometryChunkSize,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	deps := engine.Deps{
		Storage:  store,
		Geometry: geometry,
		User:     cfg.User,
	}
	if cfg.PredictionURL != "" {
		predictor, err := prediction.NewClient(prediction.Config{
			URL:     cfg.PredictionURL,
			Timeout: cfg.PredictionTimeout,
		})
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		deps.Predictor = predictor
	}

	ws, err := engine.New(deps)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	if err := ws.Open(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	return &session{ws: ws, store: store, cfg: cfg}, nil
}

// loadLayer selects layerID and reports the outcome. An empty layer is not an
// error; a stale result cannot happen in a single-shot command.
func loadLayer(ctx context.Context, ws *engine.Workspace, layerID string) error {
	if _, ok := model.LookupMunicipality(layerID); !ok {
		slog.Warn("Layer is not in the municipality catalog", "layer", layerID)
	}

	res, err := ws.SelectLayer(ctx, layerID)
	if err != nil {
		return err
	}
	switch res.Status {
	case layer.StatusFailed:
		return res.Err
	case layer.StatusEmpty:
		fmt.Println(cli.FormatWarning(res.Err.Error()))
	case layer.StatusLoaded:
		common.LogDebug("Layer loaded", common.Fields{
			"layer":    layerID,
			"features": res.Features,
			"skipped":  res.Skipped,
		})
	}
	return nil
}

// selectParcels toggles ids on, or every loaded parcel when all is set.
// Unknown ids are reported and skipped.
func selectParcels(ws *engine.Workspace, ids []string, all bool) error {
	if all {
		for _, f := range ws.Layer().Features() {
			ws.Toggle(f.ID)
		}
	} else {
		for _, id := range ids {
			if _, ok := ws.Layer().Feature(id); !ok {
				fmt.Println(cli.FormatWarning(fmt.Sprintf("parcel %s is not in this layer", id)))
				continue
			}
			if !ws.Layer().IsSelected(id) {
				ws.Toggle(id)
			}
		}
	}
	if len(ws.Layer().Selection()) == 0 {
		return common.ErrNoSelection
	}
	return nil
}

func addLayerFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "layer", "l", model.DefaultLayerID, "municipality layer id (see suito layers)")
}

func addSelectionFlags(cmd *cobra.Command, ids *[]string, all *bool) {
	cmd.Flags().StringSliceVar(ids, "ids", nil, "parcel polygon_uuid values")
	cmd.Flags().BoolVar(all, "all", false, "use every parcel in the layer")
}

// printItemResults prints per-parcel outcomes and returns an error when any
// failed.
func printItemResults(verb string, results []service.ItemResult) error {
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			common.LogError(r.Err, verb+" failed", common.Fields{"parcel": r.ID})
			var pe *common.PersistenceError
			if errors.As(r.Err, &pe) {
				fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", r.ID, pe.Err)))
			} else {
				fmt.Println(cli.FormatError(fmt.Sprintf("%s: %v", r.ID, r.Err)))
			}
		}
	}
	ok := len(results) - failed
	fmt.Println(cli.FormatSuccess(fmt.Sprintf("%s %d parcel(s)", verb, ok)))
	if failed > 0 {
		return fmt.Errorf("%s failed for %d parcel(s)", strings.ToLower(verb), failed)
	}
	return nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(d.Hours()))
	default:
		return t.Format("2006-01-02 15:04")
	}
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
