package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}

func deleteByID(ctx context.Context, coll *mongo.Collection, id, op string) error {
	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err, op)
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

type commentDoc struct {
	ID        string    `bson:"_id"`
	VideoID   string    `bson:"video_id"`
	OwnerID   string    `bson:"owner_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// CommentRepository stores comments.
type CommentRepository struct {
	coll *mongo.Collection
}

// Create stores a new comment.
func (r *CommentRepository) Create(ctx context.Context, comment models.Comment) error {
	_, err := r.coll.InsertOne(ctx, commentDoc(comment))
	return mapError(err, "insert comment")
}

// FindByID loads a comment by id.
func (r *CommentRepository) FindByID(ctx context.Context, id string) (models.Comment, error) {
	var doc commentDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return models.Comment{}, mapError(err, "find comment")
	}
	return models.Comment(doc), nil
}

// UpdateContent rewrites the comment text.
func (r *CommentRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) (models.Comment, error) {
	var doc commentDoc
	update := bson.M{"$set": bson.M{"content": content, "updated_at": at}}
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&doc); err != nil {
		return models.Comment{}, mapError(err, "update comment")
	}
	return models.Comment(doc), nil
}

// Delete hard-deletes a comment.
func (r *CommentRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id, "delete comment")
}

// ListByVideo returns a page of a video's comments, newest first, and the total.
func (r *CommentRepository) ListByVideo(ctx context.Context, videoID string, opts models.ListOptions) ([]models.Comment, int64, error) {
	opts = opts.Normalize()
	filter := bson.M{"video_id": videoID}
	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, mapError(err, "count comments")
	}
	findOpts := options.Find().SetSort(newestFirst).SetSkip(int64(opts.Offset())).SetLimit(int64(opts.Limit))
	docs, err := findAll[commentDoc](ctx, r.coll, filter, "list comments", findOpts)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.Comment, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.Comment(d))
	}
	return out, total, nil
}

type tweetDoc struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// TweetRepository stores tweets.
type TweetRepository struct {
	coll *mongo.Collection
}

// Create stores a new tweet.
func (r *TweetRepository) Create(ctx context.Context, tweet models.Tweet) error {
	_, err := r.coll.InsertOne(ctx, tweetDoc(tweet))
	return mapError(err, "insert tweet")
}

// FindByID loads a tweet by id.
func (r *TweetRepository) FindByID(ctx context.Context, id string) (models.Tweet, error) {
	var doc tweetDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return models.Tweet{}, mapError(err, "find tweet")
	}
	return models.Tweet(doc), nil
}

// UpdateContent rewrites the tweet text.
func (r *TweetRepository) UpdateContent(ctx context.Context, id, content string, at time.Time) (models.Tweet, error) {
	var doc tweetDoc
	update := bson.M{"$set": bson.M{"content": content, "updated_at": at}}
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&doc); err != nil {
		return models.Tweet{}, mapError(err, "update tweet")
	}
	return models.Tweet(doc), nil
}

// Delete hard-deletes a tweet.
func (r *TweetRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id, "delete tweet")
}

// ListByOwner returns a user's tweets, newest first.
func (r *TweetRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Tweet, error) {
	docs, err := findAll[tweetDoc](ctx, r.coll, bson.M{"owner_id": ownerID}, "list tweets", options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	out := make([]models.Tweet, 0, len(docs))
	for _, d := range docs {
		out = append(out, models.Tweet(d))
	}
	return out, nil
}

type playlistDoc struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	VideoIDs    []string  `bson:"video_ids"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d playlistDoc) model() models.Playlist {
	p := models.Playlist(d)
	if p.VideoIDs == nil {
		p.VideoIDs = []string{}
	}
	return p
}

// PlaylistRepository stores playlists with their member ids embedded in
// insertion order.
type PlaylistRepository struct {
	coll *mongo.Collection
}

// Create stores a new, empty playlist.
func (r *PlaylistRepository) Create(ctx context.Context, playlist models.Playlist) error {
	doc := playlistDoc(playlist)
	if doc.VideoIDs == nil {
		doc.VideoIDs = []string{}
	}
	_, err := r.coll.InsertOne(ctx, doc)
	return mapError(err, "insert playlist")
}

// FindByID loads a playlist and its ordered video ids.
func (r *PlaylistRepository) FindByID(ctx context.Context, id string) (models.Playlist, error) {
	var doc playlistDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return models.Playlist{}, mapError(err, "find playlist")
	}
	return doc.model(), nil
}

func (r *PlaylistRepository) modify(ctx context.Context, id string, update bson.M, op string) (models.Playlist, error) {
	var doc playlistDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&doc); err != nil {
		return models.Playlist{}, mapError(err, op)
	}
	return doc.model(), nil
}

// UpdateDetails replaces the name and description.
func (r *PlaylistRepository) UpdateDetails(ctx context.Context, id, name, description string, at time.Time) (models.Playlist, error) {
	return r.modify(ctx, id, bson.M{"$set": bson.M{"name": name, "description": description, "updated_at": at}}, "update playlist")
}

// Delete removes a playlist.
func (r *PlaylistRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, r.coll, id, "delete playlist")
}

// ListByOwner returns a user's playlists, newest first.
func (r *PlaylistRepository) ListByOwner(ctx context.Context, ownerID string) ([]models.Playlist, error) {
	docs, err := findAll[playlistDoc](ctx, r.coll, bson.M{"owner_id": ownerID}, "list playlists", options.Find().SetSort(newestFirst))
	if err != nil {
		return nil, err
	}
	out := make([]models.Playlist, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, nil
}

// AddVideo appends videoID unless it is already present.
func (r *PlaylistRepository) AddVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	return r.modify(ctx, playlistID, bson.M{
		"$addToSet": bson.M{"video_ids": videoID},
		"$set":      bson.M{"updated_at": at},
	}, "add playlist video")
}

// RemoveVideo drops videoID. Removing an absent video is a no-op.
func (r *PlaylistRepository) RemoveVideo(ctx context.Context, playlistID, videoID string, at time.Time) (models.Playlist, error) {
	return r.modify(ctx, playlistID, bson.M{
		"$pull": bson.M{"video_ids": videoID},
		"$set":  bson.M{"updated_at": at},
	}, "remove playlist video")
}
