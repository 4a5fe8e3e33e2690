package match

import "github.com/resona/match-engine/internal/db"

// statusRank orders lifecycle states for best-record selection.
var statusRank = map[db.MatchStatus]int{
	db.MatchAccepted: 3,
	db.MatchPending:  2,
	db.MatchRejected: 1,
	db.MatchExpired:  0,
}

// betterEntry reports whether a should represent its counterparty over b.
// Tie-break order: higher status rank, then having a conversation, then the
// more recently updated row. Pure so the dedup rule stays unit-testable on
// its own.
func betterEntry(a, b Entry) bool {
	ra, rb := statusRank[a.Match.Status], statusRank[b.Match.Status]
	if ra != rb {
		return ra > rb
	}
	if a.HasConversation != b.HasConversation {
		return a.HasConversation
	}
	return a.Match.UpdatedAt.After(b.Match.UpdatedAt)
}

// dedupeByCounterparty collapses the user's match rows to one best entry per
// distinct counterparty. Rows for the same unordered pair can legitimately
// coexist while both directions are unconfirmed; readers only ever see the
// winner.
func dedupeByCounterparty(userID uint64, rows []db.Match, convs map[uint64]db.Conversation) []Entry {
	best := make(map[uint64]Entry, len(rows))
	for _, row := range rows {
		counterpart := row.UserBID
		if row.UserBID == userID {
			counterpart = row.UserAID
		}
		conv, hasConv := convs[row.ID]
		entry := Entry{
			CounterpartID:   counterpart,
			Match:           row,
			HasConversation: hasConv,
			ConversationID:  conv.ID,
		}
		if current, ok := best[counterpart]; !ok || betterEntry(entry, current) {
			best[counterpart] = entry
		}
	}

	entries := make([]Entry, 0, len(best))
	for _, e := range best {
		entries = append(entries, e)
	}
	return entries
}
