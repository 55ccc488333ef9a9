package mongodb

import (
	"context"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

var videoSortFields = map[string]string{
	models.SortCreatedAt: "created_at",
	models.SortUpdatedAt: "updated_at",
	models.SortViews:     "views",
	models.SortTitle:     "title",
	models.SortDuration:  "duration",
}

type videoDoc struct {
	ID          string    `bson:"_id"`
	OwnerID     string    `bson:"owner_id"`
	Title       string    `bson:"title"`
	Description string    `bson:"description"`
	VideoFile   string    `bson:"video_file"`
	Thumbnail   string    `bson:"thumbnail"`
	Duration    float64   `bson:"duration"`
	Views       int64     `bson:"views"`
	IsPublished bool      `bson:"is_published"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func (d videoDoc) model() models.Video {
	return models.Video(d)
}

// VideoRepository stores videos. Like totals are read from the relations
// collection.
type VideoRepository struct {
	coll      *mongo.Collection
	relations *mongo.Collection
}

// Create stores a new video.
func (r *VideoRepository) Create(ctx context.Context, video models.Video) error {
	_, err := r.coll.InsertOne(ctx, videoDoc(video))
	return mapError(err, "insert video")
}

// FindByID loads a video by id.
func (r *VideoRepository) FindByID(ctx context.Context, id string) (models.Video, error) {
	var doc videoDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		return models.Video{}, mapError(err, "find video")
	}
	return doc.model(), nil
}

// FindByIDs loads every existing video among ids.
func (r *VideoRepository) FindByIDs(ctx context.Context, ids []string) (map[string]models.Video, error) {
	out := make(map[string]models.Video, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	docs, err := findAll[videoDoc](ctx, r.coll, bson.M{"_id": bson.M{"$in": ids}}, "find videos")
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		out[d.ID] = d.model()
	}
	return out, nil
}

func videoFilter(filter models.VideoFilter) bson.M {
	query := bson.M{}
	if filter.OwnerID != "" {
		query["owner_id"] = filter.OwnerID
	}
	if filter.Query != "" {
		query["title"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Query), Options: "i"}
	}
	if filter.ViewerID != "" {
		query["$or"] = bson.A{bson.M{"is_published": true}, bson.M{"owner_id": filter.ViewerID}}
	} else {
		query["is_published"] = true
	}
	return query
}

// List returns a filtered, sorted page of videos and the total match count.
func (r *VideoRepository) List(ctx context.Context, filter models.VideoFilter, opts models.ListOptions) ([]models.Video, int64, error) {
	opts = opts.Normalize()
	query := videoFilter(filter)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, mapError(err, "count videos")
	}

	direction := 1
	if opts.SortDesc {
		direction = -1
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: videoSortFields[opts.SortBy], Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(opts.Offset())).
		SetLimit(int64(opts.Limit))

	docs, err := findAll[videoDoc](ctx, r.coll, query, "list videos", findOpts)
	if err != nil {
		return nil, 0, err
	}
	out := make([]models.Video, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.model())
	}
	return out, total, nil
}

// Update rewrites the title, description and thumbnail.
func (r *VideoRepository) Update(ctx context.Context, video models.Video) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": video.ID}, bson.M{"$set": bson.M{
		"title":       video.Title,
		"description": video.Description,
		"thumbnail":   video.Thumbnail,
		"updated_at":  video.UpdatedAt,
	}})
	if err != nil {
		return mapError(err, "update video")
	}
	if res.MatchedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// Delete removes a video. References to it are left in place.
func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err, "delete video")
	}
	if res.DeletedCount == 0 {
		return repositories.ErrNotFound
	}
	return nil
}

// IncrementViews adds one view and returns the new total.
func (r *VideoRepository) IncrementViews(ctx context.Context, id string) (int64, error) {
	var doc videoDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$inc": bson.M{"views": 1}}, afterUpdate()).Decode(&doc)
	if err != nil {
		return 0, mapError(err, "increment views")
	}
	return doc.Views, nil
}

// TogglePublish negates the flag server-side so concurrent toggles do not
// lose updates.
func (r *VideoRepository) TogglePublish(ctx context.Context, id string, at time.Time) (bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"is_published": bson.M{"$not": bson.A{"$is_published"}},
			"updated_at":   at,
		}}},
	}
	var doc videoDoc
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, pipeline, afterUpdate()).Decode(&doc); err != nil {
		return false, mapError(err, "toggle publish")
	}
	return doc.IsPublished, nil
}

// ChannelTotals aggregates video, view and like totals for a channel.
func (r *VideoRepository) ChannelTotals(ctx context.Context, ownerID string) (models.ChannelStats, error) {
	cur, err := r.coll.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"owner_id": ownerID}}},
		{{Key: "$group", Value: bson.M{
			"_id":    nil,
			"videos": bson.M{"$sum": 1},
			"views":  bson.M{"$sum": "$views"},
			"ids":    bson.M{"$push": "$_id"},
		}}},
	})
	if err != nil {
		return models.ChannelStats{}, mapError(err, "aggregate channel videos")
	}
	var rows []struct {
		Videos int64    `bson:"videos"`
		Views  int64    `bson:"views"`
		IDs    []string `bson:"ids"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return models.ChannelStats{}, mapError(err, "decode channel totals")
	}
	if len(rows) == 0 {
		return models.ChannelStats{}, nil
	}

	likes, err := r.relations.CountDocuments(ctx, active(bson.M{
		"kind":      string(models.RelationVideoLike),
		"target_id": bson.M{"$in": rows[0].IDs},
	}))
	if err != nil {
		return models.ChannelStats{}, mapError(err, "count channel likes")
	}
	return models.ChannelStats{TotalVideos: rows[0].Videos, TotalViews: rows[0].Views, TotalLikes: likes}, nil
}
