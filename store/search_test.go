package store

import (
	"context"
	"testing"
)

func seedSearchData(t *testing.T, s *Store) (vasyaID int64) {
	t.Helper()
	ctx := context.Background()

	vasya, err := s.UpsertEntity(ctx, 1, "вася", "person", nil)
	if err != nil {
		t.Fatal(err)
	}
	car, err := s.UpsertEntity(ctx, 1, "машина", "object", nil)
	if err != nil {
		t.Fatal(err)
	}
	work, err := s.UpsertEntity(ctx, 1, "работа", "place", nil)
	if err != nil {
		t.Fatal(err)
	}

	e1, err := s.AddEntry(ctx, 1, "встретил васю в автосервисе", EntryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	e2, err := s.AddEntry(ctx, 1, "вася починил машину", EntryOptions{})
	if err != nil {
		t.Fatal(err)
	}
	e3, err := s.AddEntry(ctx, 1, "был на работе", EntryOptions{})
	if err != nil {
		t.Fatal(err)
	}

	for _, link := range []struct {
		entry, entity int64
	}{
		{e1.ID, vasya.ID},
		{e2.ID, vasya.ID},
		{e2.ID, car.ID},
		{e3.ID, work.ID},
	} {
		if err := s.LinkEntryEntity(ctx, link.entry, link.entity, "", 0.9); err != nil {
			t.Fatal(err)
		}
	}
	return vasya.ID
}

func TestFindEntitiesByKeywords(t *testing.T) {
	s := openTestStore(t)
	seedSearchData(t, s)
	ctx := context.Background()

	hits, err := s.FindEntitiesByKeywords(ctx, 1, []string{"вася"}, "")
	if err != nil {
		t.Fatalf("FindEntitiesByKeywords: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("hits = %d, want 1", len(hits))
	}
	if hits[0].Name != "вася" || hits[0].MentionCount != 2 {
		t.Fatalf("hit = %+v", hits[0])
	}

	// Type filter excludes non-matching types.
	hits, err = s.FindEntitiesByKeywords(ctx, 1, []string{"вася"}, "place")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Fatalf("typed hits = %d, want 0", len(hits))
	}

	// Substring match over multiple keywords, mention count ordering.
	hits, err = s.FindEntitiesByKeywords(ctx, 1, []string{"маш", "работ"}, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Fatalf("hits = %d, want 2", len(hits))
	}
}

func TestEntriesByEntitiesAndText(t *testing.T) {
	s := openTestStore(t)
	vasyaID := seedSearchData(t, s)
	ctx := context.Background()

	entries, err := s.EntriesByEntities(ctx, 1, []int64{vasyaID}, 10)
	if err != nil {
		t.Fatalf("EntriesByEntities: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}

	byText, err := s.EntriesByText(ctx, 1, []string{"работе"}, 10)
	if err != nil {
		t.Fatalf("EntriesByText: %v", err)
	}
	if len(byText) != 1 {
		t.Fatalf("byText = %d, want 1", len(byText))
	}
}

func TestRelatedEntities(t *testing.T) {
	s := openTestStore(t)
	vasyaID := seedSearchData(t, s)
	ctx := context.Background()

	related, err := s.RelatedEntities(ctx, 1, vasyaID, 5)
	if err != nil {
		t.Fatalf("RelatedEntities: %v", err)
	}
	if len(related) != 1 || related[0].Name != "машина" {
		t.Fatalf("related = %+v", related)
	}
}

func TestRecentEntries(t *testing.T) {
	s := openTestStore(t)
	seedSearchData(t, s)
	ctx := context.Background()

	recent, err := s.RecentEntries(ctx, 1, 7, 5)
	if err != nil {
		t.Fatalf("RecentEntries: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("recent = %d, want 3", len(recent))
	}
	// Limit applies.
	recent, err = s.RecentEntries(ctx, 1, 7, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 {
		t.Fatalf("recent limited = %d, want 2", len(recent))
	}
}
