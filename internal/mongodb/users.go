package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

type userDoc struct {
	ID           string    `bson:"_id"`
	Username     string    `bson:"username"`
	Email        string    `bson:"email"`
	FullName     string    `bson:"full_name"`
	Avatar       string    `bson:"avatar"`
	CoverImage   string    `bson:"cover_image"`
	PasswordHash string    `bson:"password_hash"`
	RefreshToken string    `bson:"refresh_token,omitempty"`
	WatchHistory []string  `bson:"watch_history"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

func (d userDoc) model() models.User {
	return models.User{
		ID:           d.ID,
		Username:     d.Username,
		Email:        d.Email,
		FullName:     d.FullName,
		Avatar:       d.Avatar,
		CoverImage:   d.CoverImage,
		PasswordHash: d.PasswordHash,
		RefreshToken: d.RefreshToken,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

// UserRepository stores users, their refresh token slot and watch history
// in one document.
type UserRepository struct {
	coll *mongo.Collection
}

// Create stores a new user. A taken username or email is a conflict.
func (r *UserRepository) Create(ctx context.Context, user models.User) error {
	_, err := r.coll.InsertOne(ctx, userDoc{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		FullName:     user.FullName,
		Avatar:       user.Avatar,
		CoverImage:   user.CoverImage,
		PasswordHash: user.PasswordHash,
		WatchHistory: []string{},
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
	return mapError(err, "insert user")
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var doc userDoc
	opts := options.FindOne().SetProjection(bson.M{"watch_history": 0})
	if err := r.coll.FindOne(ctx, filter, opts).Decode(&doc); err != nil {
		return models.User{}, mapError(err, "find user")
	}
	return doc.model(), nil
}

// FindByID loads a user by id.
func (r *UserRepository) FindByID(ctx context.Context, id string) (models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

// FindByUsername loads a user by lower-cased username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

// FindByEmail loads a user by lower-cased email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

// FindByIDs loads every existing user among ids.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[userDoc](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, "find users",
		options.Find().SetProjection(bson.M{"watch_history": 0}))
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.model()
	}
	return out, nil
}

func (r *UserRepository) update(ctx context.Context, id string, set bson.M, op string) (models.User, error) {
	var doc userDoc
	opts := afterUpdate().SetProjection(bson.M{"watch_history": 0})
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&doc); err != nil {
		return models.User{}, mapError(err, op)
	}
	return doc.model(), nil
}

// UpdateProfile replaces the full name and email.
func (r *UserRepository) UpdateProfile(ctx context.Context, id, fullName, email string, at time.Time) (models.User, error) {
	return r.update(ctx, id, bson.M{"full_name": fullName, "email": email, "updated_at": at}, "update profile")
}

// UpdateAvatar stores a new avatar URL.
func (r *UserRepository) UpdateAvatar(ctx context.Context, id, url string, at time.Time) (models.User, error) {
	return r.update(ctx, id, bson.M{"avatar": url, "updated_at": at}, "update avatar")
}

// UpdateCoverImage stores a new cover image URL.
func (r *UserRepository) UpdateCoverImage(ctx context.Context, id, url string, at time.Time) (models.User, error) {
	return r.update(ctx, id, bson.M{"cover_image": url, "updated_at": at}, "update cover image")
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, at time.Time) error {
	_, err := r.update(ctx, id, bson.M{"password_hash": passwordHash, "updated_at": at}, "update password")
	return err
}

// AddToWatchHistory rewrites the history in a single pipeline update:
// prepend videoID, drop its older occurrence, cap the length.
func (r *UserRepository) AddToWatchHistory(ctx context.Context, userID, videoID string, at time.Time) error {
	existing := bson.M{"$filter": bson.M{
		"input": bson.M{"$ifNull": bson.A{"$watch_history", bson.A{}}},
		"cond":  bson.M{"$ne": bson.A{"$$this", videoID}},
	}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"watch_history": bson.M{"$slice": bson.A{
				bson.M{"$concatArrays": bson.A{bson.A{videoID}, existing}},
				repositories.WatchHistoryLimit,
			}},
			"updated_at": at,
		}}},
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": userID}, pipeline)
	if err != nil {
		return mapError(err, "add to watch history")
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// WatchHistory returns watched video ids, most recent first.
func (r *UserRepository) WatchHistory(ctx context.Context, userID string) ([]string, error) {
	var doc struct {
		WatchHistory []string `bson:"watch_history"`
	}
	opts := options.FindOne().SetProjection(bson.M{"watch_history": 1})
	if err := r.coll.FindOne(ctx, bson.M{"_id": userID}, opts).Decode(&doc); err != nil {
		return nil, mapError(err, "load watch history")
	}
	if doc.WatchHistory == nil {
		return []string{}, nil
	}
	return doc.WatchHistory, nil
}

// SessionStore keeps the refresh token slot on the user document.
type SessionStore struct {
	coll *mongo.Collection
}

// Save fills the user's refresh-token slot.
func (s *SessionStore) Save(ctx context.Context, userID, refreshToken string) error {
	return s.apply(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"refresh_token": refreshToken}}, "save session")
}

// Rotate only matches while presented is still the stored token.
func (s *SessionStore) Rotate(ctx context.Context, userID, presented, next string) error {
	filter := bson.M{"_id": userID, "refresh_token": presented}
	return s.apply(ctx, filter, bson.M{"$set": bson.M{"refresh_token": next}}, "rotate session")
}

// Clear empties the user's refresh-token slot.
func (s *SessionStore) Clear(ctx context.Context, userID string) error {
	return s.apply(ctx, bson.M{"_id": userID}, bson.M{"$unset": bson.M{"refresh_token": ""}}, "clear session")
}

func (s *SessionStore) apply(ctx context.Context, filter, update bson.M, op string) error {
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return mapError(err, op)
	}
	if res.MatchedCount == 0 {
		return auth.ErrSessionNotFound
	}
	return nil
}
