package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Chain phases.
const (
	PhaseIdle           = "idle"
	PhaseAwaitingType   = "awaiting_type"
	PhaseEntitySelected = "entity_selected"
	PhaseActionPending  = "action_pending"
	PhaseAwaitingTarget = "awaiting_target"
)

// Action codes carried in scanned tokens.
const (
	tokenOpAdd     = "OP:ADD"
	tokenOpTake    = "OP:TAKE"
	tokenOpMove    = "OP:MOVE"
	tokenOpChange  = "OP:CHANGE"
	tokenActOK     = "ACT:OK"
	tokenActCancel = "ACT:CANCEL"

	actionAdd    = "add"
	actionTake   = "take"
	actionMove   = "move"
	actionChange = "change"
)

// typeTokens maps scanner type codes to entity type codes.
var typeTokens = map[string]string{
	"TYPE:ITEM":    model.TypeItem,
	"TYPE:BOX":     model.TypeContainer,
	"TYPE:PACKAGE": model.TypePackage,
}

var chainOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inventory_chain_outcomes_total",
	Help: "Chain token outcomes by status.",
}, []string{"status"})

// ChainService is the scanner-driven state machine. Each scanner session owns
// an independent chain; sessions never share state. Tokens within one session
// are processed strictly one at a time.
type ChainService interface {
	SubmitToken(ctx context.Context, sessionID, token string, userID *uuid.UUID) *dto.ChainOutcome
	State(sessionID string) dto.ChainStateResponse
	Reset(sessionID string)
}

// chainState is the full per-session machine value. Phase decides which
// fields are meaningful.
type chainState struct {
	Phase          string
	Entity         *model.Entity
	Action         string
	PendingBarcode string
	Target         *model.Entity
}

type chainSession struct {
	mu    sync.Mutex
	state chainState
}

type chainService struct {
	mu       sync.Mutex
	sessions map[string]*chainSession

	entities repository.EntityRepository
	engine   EntityService
	registry TypeRegistry
	queue    Queue
}

// NewChainService builds the engine. queue may be nil; with a queue attached,
// entities created from recognizable retail barcodes get catalog enrichment
// scheduled in the background.
func NewChainService(entities repository.EntityRepository, engine EntityService, registry TypeRegistry, queue Queue) ChainService {
	return &chainService{
		sessions: make(map[string]*chainSession),
		entities: entities,
		engine:   engine,
		registry: registry,
		queue:    queue,
	}
}

func (s *chainService) session(id string) *chainSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		sess = &chainSession{state: chainState{Phase: PhaseIdle}}
		s.sessions[id] = sess
	}
	return sess
}

func (s *chainService) State(sessionID string) dto.ChainStateResponse {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return snapshot(sess.state)
}

func (s *chainService) Reset(sessionID string) {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.state = chainState{Phase: PhaseIdle}
}

// SubmitToken feeds one token through the session's machine. The outcome is
// always well-formed; operation failures reset the chain to idle and surface
// as a rejected outcome rather than an error.
func (s *chainService) SubmitToken(ctx context.Context, sessionID, token string, userID *uuid.UUID) *dto.ChainOutcome {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	token = strings.TrimSpace(token)
	next, outcome := s.advance(ctx, sess.state, token, userID)
	sess.state = next

	chainOutcomes.WithLabelValues(outcome.Status).Inc()
	log.Debug().
		Str("session", sessionID).
		Str("token", token).
		Str("status", outcome.Status).
		Str("phase", next.Phase).
		Msg("chain token processed")
	return outcome
}

// advance is the pure transition function: current state plus one token in,
// next state plus outcome out. All store access goes through the operations
// engine so chain-triggered mutations carry history like any other call.
func (s *chainService) advance(ctx context.Context, st chainState, token string, userID *uuid.UUID) (chainState, *dto.ChainOutcome) {
	idle := chainState{Phase: PhaseIdle}

	if token == tokenActCancel {
		if st.Phase == PhaseIdle {
			return idle, outcome(dto.ChainCancelled, "nothing to cancel", idle, nil)
		}
		return idle, outcome(dto.ChainCancelled, "chain cancelled", idle, nil)
	}

	switch st.Phase {
	case PhaseIdle:
		return s.fromIdle(ctx, token)

	case PhaseAwaitingType:
		typeCode, ok := typeTokens[token]
		if !ok {
			return st, outcome(dto.ChainRejected, "expected a type code for the unknown barcode", st, nil)
		}
		created, err := s.engine.Create(ctx, dto.CreateEntityRequest{
			Barcode:    st.PendingBarcode,
			Name:       st.PendingBarcode,
			EntityType: typeCode,
			Quantity:   1,
		}, userID)
		if err != nil {
			return idle, failure(err, idle)
		}
		if s.queue != nil && DetectFormat(st.PendingBarcode) != FormatUnknown {
			if err := s.queue.Enqueue(ctx, QueueLookup, EnrichEntityJob{EntityID: created.ID}); err != nil {
				log.Warn().Err(err).Str("entity_id", created.ID).Msg("could not schedule catalog enrichment")
			}
		}
		return idle, outcome(dto.ChainCompleted, "entity created", idle, created)

	case PhaseEntitySelected:
		return s.fromSelected(ctx, st, token, userID)

	case PhaseActionPending:
		return s.fromActionPending(ctx, st, token, userID)

	case PhaseAwaitingTarget:
		return s.fromAwaitingTarget(ctx, st, token, userID)
	}

	return idle, outcome(dto.ChainRejected, "chain state corrupted, resetting", idle, nil)
}

func (s *chainService) fromIdle(ctx context.Context, token string) (chainState, *dto.ChainOutcome) {
	idle := chainState{Phase: PhaseIdle}

	if isControlToken(token) {
		return idle, outcome(dto.ChainRejected, "no entity selected", idle, nil)
	}

	e, err := s.entities.FindByBarcode(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		next := chainState{Phase: PhaseAwaitingType, PendingBarcode: token}
		return next, outcome(dto.ChainAdvanced, "unknown barcode, scan a type code to create it", next, nil)
	}
	if err != nil {
		return idle, failure(err, idle)
	}

	next := chainState{Phase: PhaseEntitySelected, Entity: e}
	return next, outcome(dto.ChainAdvanced, "entity selected", next, nil)
}

func (s *chainService) fromSelected(ctx context.Context, st chainState, token string, userID *uuid.UUID) (chainState, *dto.ChainOutcome) {
	idle := chainState{Phase: PhaseIdle}

	if action, ok := actionOf(token); ok {
		if err := s.actionAllowed(ctx, st.Entity, action); err != nil {
			// Invalid action leaves the selection intact.
			return st, outcome(dto.ChainRejected, err.Error(), st, nil)
		}
		next := chainState{Phase: PhaseActionPending, Entity: st.Entity, Action: action}
		return next, outcome(dto.ChainAdvanced, "action "+action+" pending", next, nil)
	}

	if token == tokenActOK {
		// OK on a claims holder marks it packed without further input.
		if !s.isClaimsHolder(ctx, st.Entity) {
			return st, outcome(dto.ChainRejected, "OK is only valid for a package", st, nil)
		}
		packed := "packed"
		updated, err := s.engine.Update(ctx, st.Entity.ID, dto.UpdateEntityRequest{Status: &packed}, userID)
		if err != nil {
			return idle, failure(err, idle)
		}
		return idle, outcome(dto.ChainCompleted, "package packed", idle, updated)
	}

	if _, isType := typeTokens[token]; isType {
		return st, outcome(dto.ChainRejected, "no conversion in progress", st, nil)
	}

	// Any other scan starts a fresh lookup.
	return s.fromIdle(ctx, token)
}

func (s *chainService) fromActionPending(ctx context.Context, st chainState, token string, userID *uuid.UUID) (chainState, *dto.ChainOutcome) {
	idle := chainState{Phase: PhaseIdle}

	switch st.Action {
	case actionMove:
		target, err := s.entities.FindByBarcode(ctx, token)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return st, outcome(dto.ChainRejected, "destination barcode not found", st, nil)
		}
		if err != nil {
			return idle, failure(err, idle)
		}
		tid := target.ID.String()
		moved, err := s.engine.Move(ctx, st.Entity.ID, dto.MoveEntityRequest{TargetParentID: &tid}, userID)
		if err != nil {
			return idle, failure(err, idle)
		}
		return idle, outcome(dto.ChainCompleted, "moved into "+target.Barcode, idle, moved)

	case actionAdd, actionTake:
		if s.isClaimsHolder(ctx, st.Entity) {
			return s.packageChildStep(ctx, st, token, userID)
		}
		qty, err := strconv.Atoi(token)
		if err != nil || qty <= 0 {
			return st, outcome(dto.ChainRejected, "expected a positive quantity", st, nil)
		}
		delta := qty
		if st.Action == actionTake {
			delta = -qty
		}
		updated, err := s.engine.AdjustQuantity(ctx, st.Entity.ID, dto.AdjustQuantityRequest{Delta: delta}, userID)
		if err != nil {
			return idle, failure(err, idle)
		}
		return idle, outcome(dto.ChainCompleted, "quantity adjusted", idle, updated)

	case actionChange:
		typeCode, ok := typeTokens[token]
		if !ok {
			return st, outcome(dto.ChainRejected, "expected a type code", st, nil)
		}
		converted, err := s.engine.Convert(ctx, st.Entity.ID, dto.ConvertEntityRequest{NewType: typeCode}, userID)
		if err != nil {
			return idle, failure(err, idle)
		}
		return idle, outcome(dto.ChainCompleted, "converted to "+typeCode, idle, converted)
	}

	return idle, outcome(dto.ChainRejected, "chain state corrupted, resetting", idle, nil)
}

// packageChildStep handles add/take on a claims holder. Add is a two-step
// sub-chain (child scan, then quantity); take resolves on the child scan
// alone and returns the claimed units to the child's stock.
func (s *chainService) packageChildStep(ctx context.Context, st chainState, token string, userID *uuid.UUID) (chainState, *dto.ChainOutcome) {
	idle := chainState{Phase: PhaseIdle}

	child, err := s.entities.FindByBarcode(ctx, token)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return st, outcome(dto.ChainRejected, "item barcode not found", st, nil)
	}
	if err != nil {
		return idle, failure(err, idle)
	}

	if st.Action == actionTake {
		if err := s.engine.RemoveChild(ctx, st.Entity.ID, child.ID, true, userID); err != nil {
			return idle, failure(err, idle)
		}
		result, err := s.engine.Get(ctx, st.Entity.ID)
		if err != nil {
			return idle, failure(err, idle)
		}
		return idle, outcome(dto.ChainCompleted, "item removed from package", idle, result)
	}

	next := chainState{Phase: PhaseAwaitingTarget, Entity: st.Entity, Action: st.Action, Target: child}
	return next, outcome(dto.ChainAdvanced, "scan or type the quantity", next, nil)
}

func (s *chainService) fromAwaitingTarget(ctx context.Context, st chainState, token string, userID *uuid.UUID) (chainState, *dto.ChainOutcome) {
	idle := chainState{Phase: PhaseIdle}

	qty, err := strconv.Atoi(token)
	if err != nil || qty <= 0 {
		return st, outcome(dto.ChainRejected, "expected a positive quantity", st, nil)
	}

	if _, err := s.engine.AddChild(ctx, st.Entity.ID, dto.AddChildRequest{
		ChildBarcode:     st.Target.Barcode,
		Quantity:         qty,
		RemoveFromSource: true,
	}, userID); err != nil {
		return idle, failure(err, idle)
	}

	result, err := s.engine.Get(ctx, st.Entity.ID)
	if err != nil {
		return idle, failure(err, idle)
	}
	return idle, outcome(dto.ChainCompleted, "item added to package", idle, result)
}

// actionAllowed derives action validity from the type's capability table:
// leaf types adjust their own quantity, claims holders manage children, and
// nestable types move.
func (s *chainService) actionAllowed(ctx context.Context, e *model.Entity, action string) error {
	t, err := s.registry.Resolve(ctx, e.EntityType)
	if err != nil {
		return err
	}
	switch action {
	case actionMove:
		if !t.CanBeChild {
			return ErrInvalidTarget("%s cannot be moved", e.EntityType)
		}
	case actionAdd, actionTake:
		// Physical containers receive contents via move, not add/take.
		if t.CanContainChildren && t.CanBeChild {
			return ErrInvalidTarget("%s does not support %s", e.EntityType, action)
		}
	case actionChange:
		if !t.CanContainChildren {
			return ErrInvalidTarget("%s cannot be converted by chain", e.EntityType)
		}
	}
	return nil
}

// isClaimsHolder reports whether the entity holds contents through relation
// claims (the package pattern: contains children, never nested itself).
func (s *chainService) isClaimsHolder(ctx context.Context, e *model.Entity) bool {
	t, err := s.registry.Resolve(ctx, e.EntityType)
	if err != nil {
		return false
	}
	return t.CanContainChildren && !t.CanBeChild
}

func actionOf(token string) (string, bool) {
	switch token {
	case tokenOpAdd:
		return actionAdd, true
	case tokenOpTake:
		return actionTake, true
	case tokenOpMove:
		return actionMove, true
	case tokenOpChange:
		return actionChange, true
	}
	return "", false
}

func isControlToken(token string) bool {
	if _, ok := actionOf(token); ok {
		return true
	}
	if _, ok := typeTokens[token]; ok {
		return true
	}
	return token == tokenActOK || token == tokenActCancel
}

func outcome(status, message string, st chainState, result *dto.EntityResponse) *dto.ChainOutcome {
	return &dto.ChainOutcome{Status: status, Message: message, State: snapshot(st), Result: result}
}

func failure(err error, idle chainState) *dto.ChainOutcome {
	return &dto.ChainOutcome{Status: dto.ChainRejected, Message: err.Error(), State: snapshot(idle)}
}

func snapshot(st chainState) dto.ChainStateResponse {
	resp := dto.ChainStateResponse{
		Phase:          st.Phase,
		Action:         st.Action,
		PendingBarcode: st.PendingBarcode,
	}
	if st.Entity != nil {
		id := st.Entity.ID.String()
		resp.EntityID = &id
		resp.EntityBarcode = &st.Entity.Barcode
		resp.EntityType = &st.Entity.EntityType
	}
	if st.Target != nil {
		resp.TargetBarcode = &st.Target.Barcode
	}
	return resp
}
