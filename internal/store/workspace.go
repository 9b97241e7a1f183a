package store

import (
	"context"

	"github.com/unkn0wn-root/restbench/internal/collection"
	"github.com/unkn0wn-root/restbench/internal/config"
	"github.com/unkn0wn-root/restbench/internal/errdef"
	"github.com/unkn0wn-root/restbench/internal/history"
)

const (
	KeyCollections  = "collections"
	KeyEnvironments = "environments"
	KeySettings     = "settings"
	KeyHistory      = "history"
	KeyDefaultEnvID = "defaultEnvId"
)

// Workspace gives typed access to the documents a workspace is made of.
// Missing keys read as their zero value; settings read with defaults
// applied.
type Workspace struct {
	store Store
}

func NewWorkspace(s Store) *Workspace {
	return &Workspace{store: s}
}

func (w *Workspace) Store() Store { return w.store }

func (w *Workspace) Collections(ctx context.Context) ([]collection.Item, error) {
	var items []collection.Item
	if _, err := w.store.Get(ctx, KeyCollections, &items); err != nil {
		return nil, err
	}
	collection.AssignParents(items, "")
	return items, nil
}

func (w *Workspace) SetCollections(ctx context.Context, items []collection.Item) error {
	if items == nil {
		items = []collection.Item{}
	}
	if err := collection.Validate(items); err != nil {
		return errdef.Wrap(errdef.CodeStore, err, "invalid collections")
	}
	return w.store.Set(ctx, KeyCollections, items)
}

func (w *Workspace) Environments(ctx context.Context) ([]collection.Environment, error) {
	var envs []collection.Environment
	if _, err := w.store.Get(ctx, KeyEnvironments, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (w *Workspace) SetEnvironments(ctx context.Context, envs []collection.Environment) error {
	if envs == nil {
		envs = []collection.Environment{}
	}
	return w.store.Set(ctx, KeyEnvironments, envs)
}

func (w *Workspace) Settings(ctx context.Context) (config.Settings, error) {
	var p config.Partial
	if _, err := w.store.Get(ctx, KeySettings, &p); err != nil {
		return config.Settings{}, err
	}
	return config.WithDefaults(p), nil
}

func (w *Workspace) SetSettings(ctx context.Context, s config.Settings) error {
	return w.store.Set(ctx, KeySettings, s.ToPartial())
}

func (w *Workspace) History(ctx context.Context) ([]history.Entry, error) {
	var entries []history.Entry
	if _, err := w.store.Get(ctx, KeyHistory, &entries); err != nil {
		return nil, err
	}
	return history.Normalize(entries, history.MaxEntries), nil
}

func (w *Workspace) SetHistory(ctx context.Context, entries []history.Entry) error {
	return w.store.Set(ctx, KeyHistory, history.Normalize(entries, history.MaxEntries))
}

func (w *Workspace) DefaultEnvID(ctx context.Context) (string, error) {
	var id string
	if _, err := w.store.Get(ctx, KeyDefaultEnvID, &id); err != nil {
		return "", err
	}
	return id, nil
}

func (w *Workspace) SetDefaultEnvID(ctx context.Context, id string) error {
	return w.store.Set(ctx, KeyDefaultEnvID, id)
}
