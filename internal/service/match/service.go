package match

import (
	"context"
	"errors"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/resona/match-engine/internal/app"
	"github.com/resona/match-engine/internal/db"
	svcErr "github.com/resona/match-engine/internal/errors"
	"github.com/resona/match-engine/internal/repository"
	"github.com/resona/match-engine/internal/scoring"
	"github.com/resona/match-engine/internal/utils/pagination"
)

// Display reasons written on confirmation. SuperLike state is carried by
// the explicit flag on the row; these strings are display-only.
const (
	reasonMutual    = "mutual confirmation"
	reasonSuperLike = "quantum resonance"
)

// Outcome tells the caller what an Accept call actually did. Repeated
// proposals are successful no-ops, so the outcome flag is the only signal
// distinguishing them from fresh mutations.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeConfirmed Outcome = "confirmed"
	OutcomeUnchanged Outcome = "unchanged"
)

// AcceptResult is the post-mutation state of the pair's canonical row.
type AcceptResult struct {
	Match   db.Match
	Outcome Outcome
}

// RejectResult reports a reject call. Match is nil when there was nothing
// to reject; Info carries the informational message for that case.
type RejectResult struct {
	Match *db.Match
	Info  string
}

// Entry is one deduplicated per-counterparty row of a user's match list.
type Entry struct {
	CounterpartID   uint64
	Match           db.Match
	HasConversation bool
	ConversationID  string
}

// InteractionSource tells whose row backs a status view: the caller's own
// proposal, the counterpart's, or neither.
type InteractionSource string

const (
	SourceSelf  InteractionSource = "self"
	SourceOther InteractionSource = "other"
	SourceNone  InteractionSource = "none"
)

// Display actions derived from the caller's own row.
const (
	ActionAccept      = "accept"
	ActionSuperAccept = "super-accept"
	ActionReject      = "reject"
)

// StatusView is the read-only resolved interaction status between two users.
type StatusView struct {
	Source  InteractionSource
	Status  db.MatchStatus
	Action  string
	MatchID uint64
}

// Service implements the match lifecycle: the propose/confirm handshake over
// ordered pairs, reject and super-like paths, conversation materialization
// on confirmation, and the consolidated per-counterparty views.
type Service struct {
	appCtx        *app.AppContext
	matches       *repository.MatchRepository
	users         *repository.UserRepository
	blocks        *repository.BlockRepository
	conversations *repository.ConversationRepository
}

// NewService creates a match service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:        appCtx,
		matches:       repository.NewMatchRepository(appCtx.DB),
		users:         repository.NewUserRepository(appCtx.DB),
		blocks:        repository.NewBlockRepository(appCtx.DB),
		conversations: repository.NewConversationRepository(appCtx.DB),
	}
}

// Accept is the propose/confirm operation keyed by (actor, counterpart).
//
// Behavior:
//   - Self-match and blocked pairs fail with a forbidden error.
//   - A pending mirror row (counterpart proposed first) is confirmed:
//     flipped to ACCEPTED transactionally with its conversation ensured.
//     A super-like confirming call adds the bonus on top of the stored score.
//   - An existing row in either direction otherwise makes the call a no-op
//     returning that row unchanged; there is no "already exists" error.
//   - With no history at all a new row is created with the computed
//     compatibility score: PENDING normally, ACCEPTED immediately (with
//     conversation) on a super-like.
func (s *Service) Accept(ctx context.Context, actorID, counterpartID uint64, superLike bool) (AcceptResult, error) {
	s.appCtx.Logger.Debug("Accept called", "actor", actorID, "counterpart", counterpartID, "super_like", superLike)

	if actorID == 0 || counterpartID == 0 {
		return AcceptResult{}, svcErr.InvalidArgument("user ids must be non-zero")
	}
	if actorID == counterpartID {
		return AcceptResult{}, svcErr.Forbidden("cannot match with yourself")
	}

	blocked, err := s.blocks.IsBlocked(ctx, actorID, counterpartID)
	if err != nil {
		return AcceptResult{}, svcErr.Map(err)
	}
	if blocked {
		return AcceptResult{}, svcErr.Forbidden("blocked relationship")
	}

	self, mirror, err := s.matches.PairRows(ctx, actorID, counterpartID)
	if err != nil {
		return AcceptResult{}, svcErr.Map(err)
	}

	// Confirming call: the counterpart proposed and is still waiting.
	// Checked before the actor's own row so the dual-pending state (both
	// sides proposed before either confirmed) settles instead of no-opping.
	if mirror != nil && mirror.Status == db.MatchPending {
		score := mirror.Score
		reason := reasonMutual
		if superLike {
			score = scoring.Clamp(score + scoring.SuperLikeBonus)
			reason = reasonSuperLike
		}
		confirmed, conv, err := s.matches.Confirm(ctx, mirror.ID, score, reason, superLike)
		if err != nil {
			return AcceptResult{}, svcErr.Map(err)
		}
		// A reject racing ahead of the confirm leaves the row terminal;
		// that is a no-op for this caller, not a confirmation.
		if confirmed.Status != db.MatchAccepted {
			return AcceptResult{Match: confirmed, Outcome: OutcomeUnchanged}, nil
		}
		s.appCtx.Logger.Info("match confirmed",
			"match_id", confirmed.ID, "conversation_id", conv.ID, "super_like", superLike)
		return AcceptResult{Match: confirmed, Outcome: OutcomeConfirmed}, nil
	}

	// Any other existing row makes this a no-op: repeating your own
	// proposal, accepting an already settled pair, or accepting after a
	// terminal status. Nothing new is ever created while history exists.
	if self != nil {
		return AcceptResult{Match: *self, Outcome: OutcomeUnchanged}, nil
	}
	if mirror != nil {
		return AcceptResult{Match: *mirror, Outcome: OutcomeUnchanged}, nil
	}

	return s.propose(ctx, actorID, counterpartID, superLike)
}

// propose creates the fresh ordered row for a pair with no history.
func (s *Service) propose(ctx context.Context, actorID, counterpartID uint64, superLike bool) (AcceptResult, error) {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return AcceptResult{}, svcErr.Map(err)
	}
	counterpart, err := s.users.GetByID(ctx, counterpartID)
	if err != nil {
		return AcceptResult{}, svcErr.Map(err)
	}

	points, reason := scoring.Score(actor.Profile(), counterpart.Profile())
	status := db.MatchPending
	if superLike {
		points = scoring.Clamp(points + scoring.SuperLikeBonus)
		reason = reasonSuperLike
		status = db.MatchAccepted
	}

	m := db.Match{
		UserAID:     actorID,
		UserBID:     counterpartID,
		Score:       points,
		MatchReason: reason,
		SuperLike:   superLike,
		Status:      status,
	}
	if err := s.matches.Create(ctx, &m); err != nil {
		// A concurrent proposal may have won the ordered-pair constraint;
		// the existing row is then the canonical answer, not a failure.
		if self, _, lookupErr := s.matches.PairRows(ctx, actorID, counterpartID); lookupErr == nil && self != nil {
			return AcceptResult{Match: *self, Outcome: OutcomeUnchanged}, nil
		}
		return AcceptResult{}, svcErr.Map(err)
	}

	s.appCtx.Logger.Info("match proposed",
		"match_id", m.ID, "actor", actorID, "counterpart", counterpartID,
		"score", m.Score, "status", string(m.Status))
	return AcceptResult{Match: m, Outcome: OutcomeCreated}, nil
}

// Reject refuses contact with the counterpart. It is always safe to call:
// blocked pairs and missing matches are informational no-ops, never errors.
// Existing rows in both directions are swept to REJECTED.
func (s *Service) Reject(ctx context.Context, actorID, counterpartID uint64) (RejectResult, error) {
	s.appCtx.Logger.Debug("Reject called", "actor", actorID, "counterpart", counterpartID)

	rows, err := s.matches.RejectPair(ctx, actorID, counterpartID)
	if err != nil {
		return RejectResult{}, svcErr.Map(err)
	}
	if len(rows) == 0 {
		return RejectResult{Info: "no match to reject"}, nil
	}

	// Prefer the actor's own row as the representative result.
	rep := rows[0]
	for _, row := range rows {
		if row.UserAID == actorID {
			rep = row
			break
		}
	}
	s.appCtx.Logger.Info("match rejected", "match_id", rep.ID, "rows", len(rows))
	return RejectResult{Match: &rep}, nil
}

// EnsureConversation is the idempotent create-or-get used on confirmation
// and exposed to the chat and admin collaborators. The bool reports whether
// this call created the conversation.
func (s *Service) EnsureConversation(ctx context.Context, matchID uint64) (string, bool, error) {
	if _, err := s.matches.GetByID(ctx, matchID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", false, svcErr.NotFound("match not found")
		}
		return "", false, svcErr.Map(err)
	}
	conv, created, err := s.conversations.Ensure(ctx, matchID)
	if err != nil {
		return "", false, svcErr.Map(err)
	}
	return conv.ID, created, nil
}

// ListMatches returns one entry per distinct counterparty for the user,
// most recently updated first, with cursor-based pagination.
//
// Blocked counterparties are excluded at the query level. When both
// directional rows exist for a counterparty the best representative wins
// per the (status rank, has conversation, updated at) tie-break.
func (s *Service) ListMatches(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]Entry, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, svcErr.InvalidArgument(err.Error())
	}

	rows, err := s.matches.ListForUser(ctx, userID)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	matchIDs := make([]uint64, len(rows))
	for i := range rows {
		matchIDs[i] = rows[i].ID
	}
	convs, err := s.conversations.ForMatchIDs(ctx, matchIDs)
	if err != nil {
		return nil, nil, svcErr.Map(err)
	}

	entries := dedupeByCounterparty(userID, rows, convs)
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Match.UpdatedAt.Equal(entries[j].Match.UpdatedAt) {
			return entries[i].Match.UpdatedAt.After(entries[j].Match.UpdatedAt)
		}
		return entries[i].CounterpartID > entries[j].CounterpartID
	})

	// Apply cursor over the in-memory deduplicated list.
	if cursor.CounterpartID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		filtered := entries[:0]
		for _, e := range entries {
			if e.Match.UpdatedAt.Before(ts) ||
				(e.Match.UpdatedAt.Equal(ts) && e.CounterpartID < cursor.CounterpartID) {
				filtered = append(filtered, e)
			}
		}
		entries = filtered
	}

	var nextToken *string
	if limit > 0 && len(entries) > limit {
		last := entries[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			CounterpartID: last.CounterpartID,
			UpdatedUnix:   last.Match.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		entries = entries[:limit]
	}

	return entries, nextToken, nil
}

// InteractionStatus resolves the caller's relationship with one counterpart.
// Read-only: it never mutates state.
//
// The caller's own row wins when present and carries a derived display
// action; otherwise the counterpart's row is reported without attributing
// an action to the caller; with no rows the status is neutral.
func (s *Service) InteractionStatus(ctx context.Context, userID, counterpartID uint64) (StatusView, error) {
	self, mirror, err := s.matches.PairRows(ctx, userID, counterpartID)
	if err != nil {
		return StatusView{}, svcErr.Map(err)
	}

	if self != nil {
		action := ActionAccept
		switch {
		case self.Status == db.MatchRejected:
			action = ActionReject
		case self.Status == db.MatchAccepted && self.SuperLike:
			action = ActionSuperAccept
		}
		return StatusView{Source: SourceSelf, Status: self.Status, Action: action, MatchID: self.ID}, nil
	}
	if mirror != nil {
		return StatusView{Source: SourceOther, Status: mirror.Status, MatchID: mirror.ID}, nil
	}
	return StatusView{Source: SourceNone}, nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
