package app

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"bitchat/internal/domain"
	"bitchat/internal/eventbus"
	"bitchat/internal/identitystore"
	"bitchat/internal/logging"
	"bitchat/internal/meshtransport"
	"bitchat/internal/messagerouter"
	"bitchat/internal/pendingfile"
	"bitchat/internal/pipeline"
	"bitchat/internal/relay"
	"bitchat/internal/relaytransport"
)

// Wire bundles every component the CLI needs, already constructed and
// cross-wired, but not yet started.
type Wire struct {
	Log *slog.Logger

	Identity  *identitystore.IdentityFileStore
	Favorites *identitystore.FavoritesFileStore

	Events *eventbus.Bus

	Mesh  *meshtransport.Mesh
	Relay *relaytransport.Relay // nil when cfg.RelayURL == ""

	Router   *messagerouter.Router
	Pipeline *pipeline.Pipeline
	Pending  *pendingfile.Manager

	resolver *identityResolver
	relayCli *relay.WSClient
}

// pipelineEnqueuer adapts the Mesh Transport's direct delivery call onto
// the Public Message Pipeline's batching queue: it is what Mesh calls
// domain.PipelineSink, even though the real sink only sees messages after
// the pipeline has sorted and deduplicated a batch.
type pipelineEnqueuer struct {
	pl *pipeline.Pipeline
}

func (e pipelineEnqueuer) DeliverPublicMessage(msg domain.PublicMessage) {
	e.pl.Enqueue(msg)
}

// publicMessageLogger is the Pipeline's actual sink: delivering a public
// message to a chat view is the host application's job (out of scope per
// spec.md §1), so the core's own responsibility ends at logging the
// delivery and emitting nothing further.
type publicMessageLogger struct {
	log *slog.Logger
}

func (s publicMessageLogger) DeliverPublicMessage(msg domain.PublicMessage) {
	s.log.Debug("public message delivered",
		"from", msg.SenderPeerID.String(), "sender", msg.SenderNickname, "message_id", msg.ID)
}

// pendingFileEmitter adapts domain.PendingFileSink onto the event bus.
type pendingFileEmitter struct {
	events *eventbus.Bus
}

func (e *pendingFileEmitter) OnPendingFileAdded(transfer domain.PendingFileTransfer) {
	e.events.Emit(domain.Event{PendingFileAdded: &domain.PendingFileAddedEvent{Transfer: transfer}})
}

func (e *pendingFileEmitter) OnPendingFileRemoved(id string, reason string) {
	e.events.Emit(domain.Event{PendingFileRemoved: &domain.PendingFileRemovedEvent{ID: id, Reason: reason}})
}

// NewWire constructs the dependency graph from cfg and id. It does not
// start any background loop; call Start for that.
func NewWire(ctx context.Context, cfg Config, id domain.Identity) (*Wire, error) {
	log := logging.New(logging.Config{ServiceName: "bitchat", Level: cfg.LogLevel})

	identityStore := identitystore.NewIdentityFileStore(cfg.Home)
	favoritesStore := identitystore.NewFavoritesFileStore(cfg.Home)

	events := eventbus.New()
	resolver := newIdentityResolver()
	pending := pendingfile.New(pendingfile.Config{}, nil, &pendingFileEmitter{events: events})
	pl := pipeline.New(pipeline.Config{}, nil, publicMessageLogger{log: log.With("component", "pipeline")})

	mesh := meshtransport.NewMesh(
		meshtransport.Config{Nickname: cfg.Nickname, Identity: id, MTU: cfg.MTU, BroadcastTTL: cfg.BroadcastTTL},
		events,
		pipelineEnqueuer{pl: pl},
		newApplicationSink(log, pending),
	)

	transports := []domain.Transport{mesh}

	var rt *relaytransport.Relay
	var cli *relay.WSClient
	if cfg.RelayURL != "" {
		var err error
		cli, err = relay.NewWSClient(ctx, cfg.RelayURL, hex.EncodeToString(id.XPub.Slice()))
		if err != nil {
			return nil, fmt.Errorf("dial relay %s: %w", cfg.RelayURL, err)
		}
		rt = relaytransport.NewRelay(
			relaytransport.Config{Identity: id, Favorites: favoritesStore},
			cli,
			newApplicationSink(log, pending),
		)
		transports = append(transports, rt)
	}

	mesh.OnIdentityLearned(func(peer domain.PeerID, pub domain.X25519Public) {
		fp := resolver.learn(peer, pub)
		if rt != nil {
			rt.LearnIdentity(peer, fp)
		}
	})
	mesh.SetBlockedCheck(favoritesStore, resolver.resolve)

	router := messagerouter.New(
		messagerouter.Config{OutboxTTL: cfg.OutboxTTL},
		transports,
		favoritesStore,
		resolver.resolve,
		events,
		events,
		nil,
	)

	return &Wire{
		Log:       log,
		Identity:  identityStore,
		Favorites: favoritesStore,
		Events:    events,
		Mesh:      mesh,
		Relay:     rt,
		Router:    router,
		Pipeline:  pl,
		Pending:   pending,
		resolver:  resolver,
		relayCli:  cli,
	}, nil
}

// Start launches every background loop: the mesh's housekeeping, the
// relay's subscribe loop (if configured), the public message pipeline's
// batch/flush ticker, the pending file manager's expiry sweep, and the
// message router's outbox sweep.
func (w *Wire) Start(ctx context.Context) {
	w.Mesh.Start(ctx)
	if w.Relay != nil {
		w.Relay.Start(ctx)
	}
	w.Pipeline.Start(ctx)
	w.Pending.Start(ctx)
	w.Router.Start(ctx)
}

// Stop shuts every background loop down, in reverse start order.
func (w *Wire) Stop() {
	w.Router.Close()
	w.Pending.Stop()
	w.Pipeline.Stop()
	if w.Relay != nil {
		w.Relay.Stop()
	}
	w.Mesh.Stop()
}

// PanicClear wipes every piece of state the core persists or holds in
// memory: the identity file, the favorites file, and all pending file
// transfers. It does not stop background loops; callers that want a full
// teardown should call Stop first.
func (w *Wire) PanicClear() error {
	w.Pending.ClearAll()
	if err := w.Favorites.Clear(); err != nil {
		return err
	}
	return w.Identity.Clear()
}
