package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

func seedUser(t *testing.T, s *Store, username string) models.User {
	t.Helper()
	now := time.Now().UTC()
	u := models.User{ID: uuid.NewString(), Username: username, Email: username + "@example.com", CreatedAt: now, UpdatedAt: now}
	if err := s.Users().Create(context.Background(), u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}

func seedVideo(t *testing.T, s *Store, owner string, at time.Time, published bool) models.Video {
	t.Helper()
	v := models.Video{ID: uuid.NewString(), OwnerID: owner, Title: "video " + at.Format(time.RFC3339Nano), IsPublished: published, CreatedAt: at, UpdatedAt: at}
	if err := s.Videos().Create(context.Background(), v); err != nil {
		t.Fatalf("create video: %v", err)
	}
	return v
}

func TestUserConflicts(t *testing.T) {
	s := New()
	seedUser(t, s, "ada")

	dup := models.User{ID: uuid.NewString(), Username: "ada", Email: "other@example.com"}
	if err := s.Users().Create(context.Background(), dup); !errors.Is(err, repositories.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestWatchHistoryBoundedAndDeduplicated(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := seedUser(t, s, "ada")
	base := time.Now().UTC()

	var ids []string
	for i := 0; i < 60; i++ {
		v := seedVideo(t, s, user.ID, base.Add(time.Duration(i)*time.Second), true)
		ids = append(ids, v.ID)
		if err := s.Users().AddToWatchHistory(ctx, user.ID, v.ID, base.Add(time.Duration(i)*time.Second)); err != nil {
			t.Fatalf("add history: %v", err)
		}
	}

	history, _ := s.Users().WatchHistory(ctx, user.ID)
	if len(history) != repositories.WatchHistoryLimit {
		t.Fatalf("expected %d entries, got %d", repositories.WatchHistoryLimit, len(history))
	}
	if history[0] != ids[59] || history[49] != ids[10] {
		t.Fatal("expected most recent 50 videos, most recent first")
	}

	if err := s.Users().AddToWatchHistory(ctx, user.ID, ids[30], base.Add(time.Hour)); err != nil {
		t.Fatalf("re-add history: %v", err)
	}
	history, _ = s.Users().WatchHistory(ctx, user.ID)
	if history[0] != ids[30] || len(history) != repositories.WatchHistoryLimit {
		t.Fatalf("expected re-inserted video first, got %v", history[:3])
	}
	seen := map[string]bool{}
	for _, id := range history {
		if seen[id] {
			t.Fatalf("duplicate %s in history", id)
		}
		seen[id] = true
	}
}

func TestVideoListVisibilityAndPaging(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := seedUser(t, s, "owner")
	base := time.Now().UTC()
	for i := 0; i < 25; i++ {
		seedVideo(t, s, owner.ID, base.Add(time.Duration(i)*time.Minute), true)
	}
	hidden := seedVideo(t, s, owner.ID, base.Add(time.Hour), false)

	page, total, err := s.Videos().List(ctx, models.VideoFilter{}, models.NewListOptions(2, 10, "", ""))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 25 || len(page) != 10 {
		t.Fatalf("expected 10 of 25, got %d of %d", len(page), total)
	}
	if !page[0].CreatedAt.Equal(base.Add(14 * time.Minute)) {
		t.Fatalf("expected 11th newest video first on page 2, got %s", page[0].CreatedAt)
	}

	_, total, _ = s.Videos().List(ctx, models.VideoFilter{OwnerID: owner.ID, ViewerID: owner.ID}, models.NewListOptions(1, 100, "", ""))
	if total != 26 {
		t.Fatalf("expected owner to see unpublished video, total %d", total)
	}
	if _, err := s.Videos().FindByID(ctx, hidden.ID); err != nil {
		t.Fatalf("find hidden: %v", err)
	}
}

func TestRelationToggleConcurrent(t *testing.T) {
	s := New()
	ctx := context.Background()
	rel := models.Relation{ActorID: "a", Kind: models.RelationVideoLike, TargetID: "v", CreatedAt: time.Now()}

	const callers = 9
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Relations().Toggle(ctx, rel); err != nil {
				t.Errorf("toggle: %v", err)
			}
		}()
	}
	wg.Wait()

	counts, _ := s.Relations().CountByTargets(ctx, models.RelationVideoLike, []string{"v"})
	if counts["v"] != 1 {
		t.Fatalf("expected exactly one relation after odd toggles, got %d", counts["v"])
	}
}

func TestRelationListOrder(t *testing.T) {
	s := New()
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		rel := models.Relation{ActorID: "a", Kind: models.RelationSubscription, TargetID: fmt.Sprintf("c%d", i)}
		if _, err := s.Relations().Toggle(ctx, rel); err != nil {
			t.Fatalf("toggle: %v", err)
		}
	}
	targets, _ := s.Relations().ListTargets(ctx, "a", models.RelationSubscription)
	if len(targets) != 3 || targets[0] != "c2" || targets[2] != "c0" {
		t.Fatalf("expected newest first, got %v", targets)
	}
}

func TestSessionStoreRotate(t *testing.T) {
	s := New()
	ctx := context.Background()
	user := seedUser(t, s, "ada")
	sessions := s.Sessions()

	if err := sessions.Save(ctx, user.ID, "one"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := sessions.Rotate(ctx, user.ID, "stale", "two"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected mismatch to fail, got %v", err)
	}
	if err := sessions.Rotate(ctx, user.ID, "one", "two"); err != nil {
		t.Fatalf("rotate: %v", err)
	}
	if err := sessions.Clear(ctx, user.ID); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := sessions.Rotate(ctx, user.ID, "two", "three"); !errors.Is(err, auth.ErrSessionNotFound) {
		t.Fatalf("expected cleared slot to reject rotation, got %v", err)
	}
}
