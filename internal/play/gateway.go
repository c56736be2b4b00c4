// Package play owns action submission and automated turn advancement: the
// path from a decoded client action through the rule engine into the ledger.
package play

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"math"
	"math/big"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/caravangame/caravan-server/internal/apperr"
	"github.com/caravangame/caravan-server/internal/game"
	"github.com/caravangame/caravan-server/internal/store"
)

// Event types written to the audit log.
const (
	EventGameCreated     = "GAME_CREATED"
	EventActionApplied   = "ACTION_APPLIED"
	EventAutoResponse    = "AUTO_TRADE_RESPONSE"
	EventAdviceRequested = "NEGOTIATION_ADVICE_REQUEST"
)

// Gateway validates and applies submitted actions under optimistic
// concurrency, appends the resulting snapshots, and invokes the advancer
// after every state change.
type Gateway struct {
	store store.Store
	eng   game.Engine
	adv   *Advancer
	log   *zap.Logger
}

func NewGateway(st store.Store, eng game.Engine, log *zap.Logger) *Gateway {
	return &Gateway{
		store: st,
		eng:   eng,
		adv:   NewAdvancer(eng, log),
		log:   log,
	}
}

func (gw *Gateway) Advancer() *Advancer { return gw.adv }

// CreateGame builds a fresh game and appends its version-0 snapshot.
func (gw *Gateway) CreateGame(ctx context.Context, participants []game.Participant, seed int64) (*game.Game, *store.Snapshot, error) {
	if len(participants) < 2 {
		return nil, nil, apperr.New(apperr.Validation, "a game needs at least two participants")
	}
	g := game.New(uuid.NewString(), participants, seed)
	snap, err := gw.persist(ctx, g)
	if err != nil {
		return nil, nil, err
	}
	gw.logEvent(ctx, g.ID, &snap.Version, EventGameCreated, map[string]any{
		"colors": g.State.Colors,
	})
	return g, snap, nil
}

// Load returns the game decoded from the stored snapshot at version, along
// with the snapshot itself. Use store.Latest for the newest.
func (gw *Gateway) Load(ctx context.Context, gameID string, version int) (*game.Game, *store.Snapshot, error) {
	snap, err := gw.store.GetSnapshot(ctx, gameID, version)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, apperr.Newf(apperr.NotFound, "game %s not found", gameID)
		}
		return nil, nil, apperr.Wrap(apperr.Internal, "load game", err)
	}
	g, err := game.Decode(snap.State)
	if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "decode game state", err)
	}
	return g, snap, nil
}

// Submit realizes the optimistic-concurrency submission path. seat is the
// session's seat color, nil for spectators. expected, when non-nil, must
// equal the store's current latest version or the action is rejected with a
// conflict before it is evaluated.
func (gw *Gateway) Submit(ctx context.Context, gameID string, seat *game.Color, raw json.RawMessage, expected *int) (*store.Snapshot, error) {
	if seat == nil {
		return nil, apperr.New(apperr.Forbidden, "spectators cannot act")
	}

	act, err := game.DecodeAction(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "invalid action", err)
	}

	g, snap, err := gw.Load(ctx, gameID, store.Latest)
	if err != nil {
		return nil, err
	}

	// Every action is declared in the session seat's own color. Only the
	// turn check relaxes for accept/reject while an offer is open: those may
	// come from a seated participant whose turn it is not.
	if act.Actor() != *seat {
		return nil, apperr.New(apperr.Forbidden, "cannot act for another color")
	}
	negotiating := g.State.Prompt == game.PromptDecideTrade && game.IsTradeResponse(act.Type())
	if g.State.CurrentColor() != *seat && !negotiating {
		return nil, apperr.New(apperr.Forbidden, "not this seat's turn")
	}

	if expected != nil && *expected != snap.Version {
		return nil, apperr.Newf(apperr.Conflict, "expected version %d, latest is %d", *expected, snap.Version)
	}

	next, err := gw.eng.Apply(g.State, act)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "illegal action", err)
	}
	g.State = next

	gw.adv.Drive(ctx, g)

	out, err := gw.persist(ctx, g)
	if err != nil {
		return nil, err
	}
	gw.logEvent(ctx, g.ID, &out.Version, EventActionApplied, map[string]any{
		"type":  act.Type(),
		"color": act.Actor(),
	})
	return out, nil
}

// Apply evaluates a directly submitted action for a standalone game: there
// is no session to authorize against, only engine validation. A game that
// already has a winner returns its latest snapshot unchanged. Note that
// nothing serializes concurrent Apply calls for the same standalone game;
// the room lock only covers room-bound games.
func (gw *Gateway) Apply(ctx context.Context, gameID string, raw json.RawMessage) (*store.Snapshot, error) {
	g, snap, err := gw.Load(ctx, gameID, store.Latest)
	if err != nil {
		return nil, err
	}
	if g.State.Winner != nil {
		return snap, nil
	}
	act, err := game.DecodeAction(raw)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "invalid action", err)
	}
	next, err := gw.eng.Apply(g.State, act)
	if err != nil {
		return nil, apperr.Wrap(apperr.Validation, "illegal action", err)
	}
	g.State = next
	gw.adv.Drive(ctx, g)
	out, err := gw.persist(ctx, g)
	if err != nil {
		return nil, err
	}
	gw.logEvent(ctx, g.ID, &out.Version, EventActionApplied, map[string]any{
		"type":  act.Type(),
		"color": act.Actor(),
	})
	return out, nil
}

// Tick advances a standalone game without a client action: the current
// automated participant plays one decision, or pending automated negotiation
// responses are absorbed. Returns the unchanged latest snapshot when the
// game is already decided.
func (gw *Gateway) Tick(ctx context.Context, gameID string) (*store.Snapshot, error) {
	g, snap, err := gw.Load(ctx, gameID, store.Latest)
	if err != nil {
		return nil, err
	}
	if g.State.Winner != nil {
		return snap, nil
	}

	current := g.Participants[g.State.Turn]
	switch {
	case g.State.Prompt == game.PromptPlay && current.Bot():
		agent := gw.adv.agents(g, g.State.Turn)
		legal := gw.eng.LegalActions(g.State)
		act, err := agent.Decide(ctx, g, legal)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "automated decision failed", err)
		}
		next, err := gw.eng.Apply(g.State, act)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "automated action rejected", err)
		}
		g.State = next
		gw.adv.Drive(ctx, g)

	case gw.adv.Drive(ctx, g):
		gw.logEvent(ctx, g.ID, nil, EventAutoResponse, nil)

	default:
		return nil, apperr.New(apperr.Validation, "action payload required when it's a human participant's turn")
	}

	return gw.persist(ctx, g)
}

// persist appends the game's current state as the next snapshot together
// with its refreshed summary.
func (gw *Gateway) persist(ctx context.Context, g *game.Game) (*store.Snapshot, error) {
	blob, err := game.Encode(g)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode game", err)
	}
	projection, err := json.Marshal(ProjectGame(g))
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "encode projection", err)
	}
	snap := &store.Snapshot{GameID: g.ID, State: blob, Projection: projection}
	if _, err := gw.store.AppendSnapshot(ctx, snap, SummaryOf(g)); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "append snapshot", err)
	}
	return snap, nil
}

func (gw *Gateway) logEvent(ctx context.Context, gameID string, version *int, eventType string, payload map[string]any) {
	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			gw.log.Warn("encode event payload", zap.String("game_id", gameID), zap.Error(err))
			return
		}
		body = b
	}
	ev := &store.Event{GameID: gameID, Version: version, Type: eventType, Payload: body}
	if err := gw.store.AppendEvent(ctx, ev); err != nil {
		gw.log.Warn("append event", zap.String("game_id", gameID), zap.Error(err))
	}
}

// RandomSeed draws an unguessable positive board seed from the system RNG.
func RandomSeed() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64-1))
	if err != nil {
		return 0, apperr.Wrap(apperr.Internal, "board seed", err)
	}
	return n.Int64() + 1, nil
}

// ParticipantsFromKeys maps player kind keys (HUMAN, RANDOM, GREEDY) onto
// canonical seat colors.
func ParticipantsFromKeys(keys []string) ([]game.Participant, error) {
	if len(keys) > len(game.SeatOrder) {
		return nil, apperr.Newf(apperr.Validation, "at most %d players", len(game.SeatOrder))
	}
	out := make([]game.Participant, len(keys))
	for i, k := range keys {
		kind, ok := game.ParseKind(k)
		if !ok {
			return nil, apperr.Newf(apperr.Validation, "unknown player kind %q", k)
		}
		out[i] = game.Participant{Color: game.SeatOrder[i], Kind: kind}
	}
	return out, nil
}
