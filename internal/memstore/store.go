// Package memstore keeps every repository contract in process memory. It backs
// the "memory" database driver and the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type relationKey struct {
	actor  string
	kind   models.RelationKind
	target string
}

type historyEntry struct {
	videoID   string
	watchedAt time.Time
}

// Store holds all records behind a single mutex.
type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	history       map[string][]historyEntry
	videos        map[string]models.Video
	comments      map[string]models.Comment
	tweets        map[string]models.Tweet
	playlists     map[string]models.Playlist
	relations     map[relationKey]time.Time
	relationOrder []relationKey
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:     make(map[string]models.User),
		history:   make(map[string][]historyEntry),
		videos:    make(map[string]models.Video),
		comments:  make(map[string]models.Comment),
		tweets:    make(map[string]models.Tweet),
		playlists: make(map[string]models.Playlist),
		relations: make(map[relationKey]time.Time),
	}
}

// Users returns the user repository view of the store.
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Videos returns the video repository view of the store.
func (s *Store) Videos() *VideoRepository { return &VideoRepository{s: s} }

// Comments returns the comment repository view of the store.
func (s *Store) Comments() *CommentRepository { return &CommentRepository{s: s} }

// Tweets returns the tweet repository view of the store.
func (s *Store) Tweets() *TweetRepository { return &TweetRepository{s: s} }

// Playlists returns the playlist repository view of the store.
func (s *Store) Playlists() *PlaylistRepository { return &PlaylistRepository{s: s} }

// Relations returns the relation repository view of the store.
func (s *Store) Relations() *RelationRepository { return &RelationRepository{s: s} }

// Sessions returns the refresh token store backed by the user records.
func (s *Store) Sessions() *SessionStore { return &SessionStore{s: s} }

var (
	_ repositories.UserRepository     = (*UserRepository)(nil)
	_ repositories.VideoRepository    = (*VideoRepository)(nil)
	_ repositories.CommentRepository  = (*CommentRepository)(nil)
	_ repositories.TweetRepository    = (*TweetRepository)(nil)
	_ repositories.PlaylistRepository = (*PlaylistRepository)(nil)
	_ repositories.RelationRepository = (*RelationRepository)(nil)
	_ auth.SessionStore               = (*SessionStore)(nil)
)

// UserRepository implements repositories.UserRepository.
type UserRepository struct{ s *Store }

// Create stores a new user. A taken username or email is a conflict.
func (r *UserRepository) Create(_ context.Context, user models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[user.ID]; ok {
		return repositories.ErrConflict
	}
	for _, existing := range r.s.users {
		if strings.EqualFold(existing.Username, user.Username) || strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrConflict
		}
	}
	r.s.users[user.ID] = user
	return nil
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	user, ok := r.s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

// FindByUsername loads a user by lower-cased username.
func (r *UserRepository) FindByUsername(_ context.Context, username string) (models.User, error) {
	return r.findBy(func(u models.User) bool { return u.Username == username })
}

// FindByEmail loads a user by lower-cased email.
func (r *UserRepository) FindByEmail(_ context.Context, email string) (models.User, error) {
	return r.findBy(func(u models.User) bool { return u.Email == email })
}

func (r *UserRepository) findBy(match func(models.User) bool) (models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

// FindByIDs loads every existing user among ids.
func (r *UserRepository) FindByIDs(_ context.Context, ids []string) (map[string]models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

// UpdateProfile replaces the full name and email.
func (r *UserRepository) UpdateProfile(_ context.Context, id, fullName, email string, at time.Time) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for otherID, u := range r.s.users {
		if otherID != id && u.Email == email {
			return models.User{}, repositories.ErrConflict
		}
	}
	return r.update(id, at, func(u *models.User) {
		u.FullName = fullName
		u.Email = email
	})
}

// UpdateAvatar stores a new avatar URL.
func (r *UserRepository) UpdateAvatar(_ context.Context, id, url string, at time.Time) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.update(id, at, func(u *models.User) { u.Avatar = url })
}

// UpdateCoverImage stores a new cover image URL.
func (r *UserRepository) UpdateCoverImage(_ context.Context, id, url string, at time.Time) (models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.update(id, at, func(u *models.User) { u.CoverImage = url })
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(_ context.Context, id, passwordHash string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, err := r.update(id, at, func(u *models.User) { u.PasswordHash = passwordHash })
	return err
}

// update must be called with the write lock held.
func (r *UserRepository) update(id string, at time.Time, apply func(*models.User)) (models.User, error) {
	u, ok := r.s.users[id]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	apply(&u)
	u.UpdatedAt = at
	r.s.users[id] = u
	return u, nil
}

// AddToWatchHistory moves videoID to the front of the history and trims it.
func (r *UserRepository) AddToWatchHistory(_ context.Context, userID, videoID string, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.users[userID]; !ok {
		return repositories.ErrNotFound
	}
	if _, ok := r.s.videos[videoID]; !ok {
		return repositories.ErrNotFound
	}

	entries := make([]historyEntry, 0, repositories.WatchHistoryLimit)
	entries = append(entries, historyEntry{videoID: videoID, watchedAt: at})
	for _, e := range r.s.history[userID] {
		if len(entries) == repositories.WatchHistoryLimit {
			break
		}
		if e.videoID != videoID {
			entries = append(entries, e)
		}
	}
	r.s.history[userID] = entries
	return nil
}

// WatchHistory returns watched video ids, most recent first.
func (r *UserRepository) WatchHistory(_ context.Context, userID string) ([]string, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	ids := make([]string, 0, len(r.s.history[userID]))
	for _, e := range r.s.history[userID] {
		ids = append(ids, e.videoID)
	}
	return ids, nil
}

// SessionStore implements auth.SessionStore over the user records.
type SessionStore struct{ s *Store }

// Save fills the user's refresh-token slot.
func (ss *SessionStore) Save(_ context.Context, userID, refreshToken string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	u, ok := ss.s.users[userID]
	if !ok {
		return auth.ErrSessionNotFound
	}
	u.RefreshToken = refreshToken
	ss.s.users[userID] = u
	return nil
}

// Rotate swaps the slot from presented to next only if it still holds presented.
func (ss *SessionStore) Rotate(_ context.Context, userID, presented, next string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	u, ok := ss.s.users[userID]
	if !ok || u.RefreshToken == "" || u.RefreshToken != presented {
		return auth.ErrSessionNotFound
	}
	u.RefreshToken = next
	ss.s.users[userID] = u
	return nil
}

// Clear empties the user's refresh-token slot.
func (ss *SessionStore) Clear(_ context.Context, userID string) error {
	ss.s.mu.Lock()
	defer ss.s.mu.Unlock()
	u, ok := ss.s.users[userID]
	if !ok {
		return auth.ErrSessionNotFound
	}
	u.RefreshToken = ""
	ss.s.users[userID] = u
	return nil
}

// paginate slices items for opts and returns the page with the full count.
func paginate[T any](items []T, opts models.ListOptions) ([]T, int64) {
	total := int64(len(items))
	start := opts.Offset()
	if start >= len(items) {
		return []T{}, total
	}
	end := start + opts.Limit
	if end > len(items) {
		end = len(items)
	}
	return append([]T(nil), items[start:end]...), total
}

// newestFirst orders by creation time, then id, both descending.
func newestFirst(aTime, bTime time.Time, aID, bID string) bool {
	if !aTime.Equal(bTime) {
		return aTime.After(bTime)
	}
	return aID > bID
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, string)) {
	sort.SliceStable(items, func(i, j int) bool {
		at, aid := key(items[i])
		bt, bid := key(items[j])
		return newestFirst(at, bt, aid, bid)
	})
}
