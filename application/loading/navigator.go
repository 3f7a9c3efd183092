package loading

import (
	"context"
	"sync"

	"fieldui/application/inputs"
	"fieldui/application/ports"
	"fieldui/application/render"
	"fieldui/domain/config"

	"go.uber.org/zap"
)

// Screen is a fully prepared screen: definition resolved, bindings
// substituted, ready to serialize to the device
type Screen struct {
	Name          string       `json:"name"`
	Title         string       `json:"title,omitempty"`
	SchemaVersion int          `json:"schemaVersion"`
	Fallback      bool         `json:"fallback"`
	Root          *render.Node `json:"root"`
}

// Navigator is the top-level use case for opening a screen: it loads
// the definition, gathers the entity snapshots in scope, and
// materializes the tree. A device shows one screen at a time, so a new
// OpenScreen cancels whichever load is still in flight.
type Navigator struct {
	loader       *Loader
	provider     ports.EntityProvider
	inputs       *inputs.Store
	materializer *render.Materializer
	scopes       []string
	logger       *zap.Logger

	mu       sync.Mutex
	inflight *inflightLoad
}

// inflightLoad identifies one in-flight screen load so a superseding
// open can cancel it
type inflightLoad struct {
	cancel context.CancelFunc
}

// NewNavigator creates a navigator
func NewNavigator(
	loader *Loader,
	provider ports.EntityProvider,
	store *inputs.Store,
	materializer *render.Materializer,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *Navigator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &Navigator{
		loader:       loader,
		provider:     provider,
		inputs:       store,
		materializer: materializer,
		scopes:       cfg.EntityScopePrefixes,
		logger:       logger,
	}
}

// OpenScreen prepares a screen for an entity. Missing entity snapshots
// do not fail the open; their bindings resolve empty. A later
// OpenScreen cancels this one's load mid-flight, and the superseded
// call returns the cancellation error.
func (n *Navigator) OpenScreen(ctx context.Context, screenName, entityID string, maxVersion int) (*Screen, error) {
	loadCtx, token := n.supersede(ctx)
	defer n.release(token)

	result, err := n.loader.LoadScreen(loadCtx, screenName, maxVersion)
	if err != nil {
		return nil, err
	}

	renderCtx := n.BuildContext(ctx, screenName, entityID)
	root := n.materializer.Materialize(result.Definition, renderCtx)

	return &Screen{
		Name:          result.Definition.Screen,
		Title:         result.Definition.Title,
		SchemaVersion: result.ServedVersion,
		Fallback:      result.Fallback,
		Root:          root,
	}, nil
}

// BuildContext assembles the render context for a screen: one snapshot
// per configured entity scope, all keyed by the same entity ID
func (n *Navigator) BuildContext(ctx context.Context, screenName, entityID string) *render.Context {
	renderCtx := render.NewContext(screenName, entityID, n.inputs)

	if n.provider == nil || entityID == "" {
		return renderCtx
	}

	for _, scope := range n.scopes {
		snapshot, ok := n.provider.Snapshot(ctx, scope, entityID)
		if !ok {
			continue
		}
		renderCtx.WithEntity(scope, snapshot)
	}

	return renderCtx
}

// supersede cancels any load still in flight and registers this one
func (n *Navigator) supersede(ctx context.Context) (context.Context, *inflightLoad) {
	loadCtx, cancel := context.WithCancel(ctx)
	token := &inflightLoad{cancel: cancel}

	n.mu.Lock()
	if n.inflight != nil {
		n.inflight.cancel()
	}
	n.inflight = token
	n.mu.Unlock()

	return loadCtx, token
}

// release clears the registration unless a newer load already took it
func (n *Navigator) release(token *inflightLoad) {
	n.mu.Lock()
	if n.inflight == token {
		n.inflight = nil
	}
	n.mu.Unlock()
	token.cancel()
}

// Screens lists the screen names the loader's source knows about
func (n *Navigator) Screens(ctx context.Context) ([]string, error) {
	return n.loader.source.List(ctx)
}
