package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/quailyquaily/mira/db/models"
	"github.com/quailyquaily/mira/store"
)

// Match priority tiers. Exact beats prefix beats substring; ties break on
// mention count, then name.
const (
	matchExact     = 3
	matchPrefix    = 2
	matchSubstring = 1
)

// RankedEntity is an entity hit with its computed match priority.
type RankedEntity struct {
	store.EntityHit
	Priority int
}

// QueryParser produces keyword buckets from a raw query. The LLM-backed
// parser satisfies this; rule parsing is the fallback.
type QueryParser interface {
	Parse(ctx context.Context, query string) (ParsedQuery, error)
}

// Engine runs multi-strategy entity and entry search over the store.
type Engine struct {
	Store  *store.Store
	Lex    *Lexicon
	Parser QueryParser // optional
	Logger *slog.Logger
}

func NewEngine(st *store.Store, lex *Lexicon, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{Store: st, Lex: lex, Logger: logger}
}

// SearchEntities finds entities matching any keyword, ranked by
// (match priority desc, mention count desc, name asc) and deduplicated by
// id. Search is advisory to the conversation, so store errors log and
// return an empty list.
func (e *Engine) SearchEntities(ctx context.Context, userID int64, keywords []string, entityType string) []RankedEntity {
	keywords = ExpandCompound(e.Lex, keywords)
	if len(keywords) == 0 {
		return nil
	}

	hits, err := e.Store.FindEntitiesByKeywords(ctx, userID, keywords, entityType)
	if err != nil {
		e.Logger.Error("entity search failed", "error", err, "user_id", userID)
		return nil
	}

	ranked := make([]RankedEntity, 0, len(hits))
	for _, h := range hits {
		ranked = append(ranked, RankedEntity{EntityHit: h, Priority: matchPriority(h.Name, keywords)})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		if ranked[i].MentionCount != ranked[j].MentionCount {
			return ranked[i].MentionCount > ranked[j].MentionCount
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

func matchPriority(name string, keywords []string) int {
	best := 0
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		switch {
		case name == kw:
			return matchExact
		case strings.HasPrefix(name, kw):
			if best < matchPrefix {
				best = matchPrefix
			}
		case strings.Contains(name, kw):
			if best < matchSubstring {
				best = matchSubstring
			}
		}
	}
	return best
}

// Bundle is everything one query turned up, ready for response
// composition.
type Bundle struct {
	Query           string
	Parsed          ParsedQuery
	Entities        []RankedEntity
	Entries         []models.Entry
	RelatedEntities []store.EntityHit
	RecentEntries   []models.Entry
	Stats           BundleStats
}

type BundleStats struct {
	TotalEntities   int
	TotalEntries    int
	SearchTypesUsed []string
}

// Comprehensive runs the full search pipeline: parse, typed entity search,
// general entity search, entries via entities, entries via text, related
// entities of the top hit, plus recent entries for context.
func (e *Engine) Comprehensive(ctx context.Context, userID int64, query string) Bundle {
	parsed := e.parse(ctx, query)
	b := Bundle{Query: query, Parsed: parsed}

	seenEntity := make(map[int64]bool)
	addEntities := func(hits []RankedEntity, searchType string) {
		added := false
		for _, h := range hits {
			if seenEntity[h.ID] {
				continue
			}
			seenEntity[h.ID] = true
			b.Entities = append(b.Entities, h)
			added = true
		}
		if added {
			b.Stats.SearchTypesUsed = append(b.Stats.SearchTypesUsed, searchType)
		}
	}

	for _, typ := range EntityTypes {
		if kws := parsed[typ]; len(kws) > 0 {
			addEntities(e.SearchEntities(ctx, userID, kws, typ), "entities_"+typ)
		}
	}
	if kws := parsed[GeneralBucket]; len(kws) > 0 {
		addEntities(e.SearchEntities(ctx, userID, kws, ""), "entities_general")
	}

	seenEntry := make(map[int64]bool)
	if len(b.Entities) > 0 {
		ids := make([]int64, 0, len(b.Entities))
		for _, ent := range b.Entities {
			ids = append(ids, ent.ID)
		}
		entries, err := e.Store.EntriesByEntities(ctx, userID, ids, 10)
		if err != nil {
			e.Logger.Error("entry search by entities failed", "error", err, "user_id", userID)
		} else {
			for _, en := range entries {
				seenEntry[en.ID] = true
				b.Entries = append(b.Entries, en)
			}
			b.Stats.SearchTypesUsed = append(b.Stats.SearchTypesUsed, "entries_by_entities")
		}
	}

	if all := parsed.AllKeywords(); len(all) > 0 {
		entries, err := e.Store.EntriesByText(ctx, userID, all, 10)
		if err != nil {
			e.Logger.Error("entry search by text failed", "error", err, "user_id", userID)
		} else {
			for _, en := range entries {
				if seenEntry[en.ID] {
					continue
				}
				seenEntry[en.ID] = true
				b.Entries = append(b.Entries, en)
			}
			b.Stats.SearchTypesUsed = append(b.Stats.SearchTypesUsed, "entries_by_text")
		}
	}

	if len(b.Entities) > 0 {
		related, err := e.Store.RelatedEntities(ctx, userID, b.Entities[0].ID, 5)
		if err != nil {
			e.Logger.Error("related entity lookup failed", "error", err, "user_id", userID)
		} else {
			b.RelatedEntities = related
		}
	}

	recent, err := e.Store.RecentEntries(ctx, userID, 7, 3)
	if err != nil {
		e.Logger.Error("recent entries lookup failed", "error", err, "user_id", userID)
	} else {
		b.RecentEntries = recent
	}

	b.Stats.TotalEntities = len(b.Entities)
	b.Stats.TotalEntries = len(b.Entries)
	return b
}

func (e *Engine) parse(ctx context.Context, query string) ParsedQuery {
	if e.Parser != nil {
		parsed, err := e.Parser.Parse(ctx, query)
		if err == nil && len(parsed) > 0 {
			return parsed
		}
		if err != nil {
			e.Logger.Warn("query parser failed, using rules", "error", err)
		}
	}
	return ParseQuery(e.Lex, query)
}
