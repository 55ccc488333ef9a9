// Package mongodb implements the repository contracts on MongoDB. Documents
// use the application's UUID strings as _id.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/repositories"
)

const (
	usersCollection     = "users"
	videosCollection    = "videos"
	commentsCollection  = "comments"
	tweetsCollection    = "tweets"
	playlistsCollection = "playlists"
	relationsCollection = "relations"
)

// Store owns the client and hands out repositories bound to one database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ repositories.UserRepository     = (*UserRepository)(nil)
	_ repositories.VideoRepository    = (*VideoRepository)(nil)
	_ repositories.CommentRepository  = (*CommentRepository)(nil)
	_ repositories.TweetRepository    = (*TweetRepository)(nil)
	_ repositories.PlaylistRepository = (*PlaylistRepository)(nil)
	_ repositories.RelationRepository = (*RelationRepository)(nil)
	_ auth.SessionStore               = (*SessionStore)(nil)
)

// Connect dials uri and verifies the primary is reachable.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if database == "" {
		return nil, errors.New("mongodb: database name is required")
	}
	opts := options.Client().
		ApplyURI(uri).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return &Store{client: client, db: client.Database(database)}, nil
}

// Ping checks connectivity for health probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Users returns the user repository.
func (s *Store) Users() *UserRepository {
	return &UserRepository{coll: s.db.Collection(usersCollection)}
}

// Videos returns the video repository.
func (s *Store) Videos() *VideoRepository {
	return &VideoRepository{
		coll:      s.db.Collection(videosCollection),
		relations: s.db.Collection(relationsCollection),
	}
}

// Comments returns the comment repository.
func (s *Store) Comments() *CommentRepository {
	return &CommentRepository{coll: s.db.Collection(commentsCollection)}
}

// Tweets returns the tweet repository.
func (s *Store) Tweets() *TweetRepository {
	return &TweetRepository{coll: s.db.Collection(tweetsCollection)}
}

// Playlists returns the playlist repository.
func (s *Store) Playlists() *PlaylistRepository {
	return &PlaylistRepository{coll: s.db.Collection(playlistsCollection)}
}

// Relations returns the like and subscription repository.
func (s *Store) Relations() *RelationRepository {
	return &RelationRepository{coll: s.db.Collection(relationsCollection)}
}

// Sessions returns the refresh-token slot store.
func (s *Store) Sessions() *SessionStore {
	return &SessionStore{coll: s.db.Collection(usersCollection)}
}

// mapError translates driver errors into repository errors.
func mapError(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repositories.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repositories.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}

// findAll decodes every document matched by filter.
func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, op string, opts ...*options.FindOptions) ([]T, error) {
	cur, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, mapError(err, op)
	}
	var docs []T
	if err := cur.All(ctx, &docs); err != nil {
		return nil, mapError(err, op)
	}
	return docs, nil
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
