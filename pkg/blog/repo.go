package blog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrDuplicateSlug = errors.New("blog: duplicate slug")

type Repo struct {
	blogs IMongoCollection
}

func NewBlogRepo(blogsCol *mongo.Collection) *Repo {
	blogs := &MongoCollection{
		Coll: blogsCol,
	}
	return &Repo{
		blogs: blogs,
	}
}

// EnsureIndexes creates the unique slug index, the (title, text) read index
// and the (userId, blogType) index used by the statistics count.
func (r *Repo) EnsureIndexes(ctx context.Context) error {
	_, err := r.blogs.CreateIndexes(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "title", Value: 1}, {Key: "text", Value: 1}}},
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "blogType", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("blog/repo: failed creating indexes: %w", err)
	}
	return nil
}

func (r *Repo) Insert(ctx context.Context, b *Blog) error {
	_, err := r.blogs.InsertOne(ctx, b)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("blog/repo: slug %s: %w", b.Slug, ErrDuplicateSlug)
		}
		return fmt.Errorf("blog/repo: failed inserting a blog: %w", err)
	}
	return nil
}

func (r *Repo) GetById(ctx context.Context, id primitive.ObjectID) (*Blog, error) {
	b := new(Blog)
	err := r.blogs.FindOne(ctx, bson.M{"_id": id}).Decode(b)
	if err != nil {
		return nil, notFound(id, err)
	}
	return b, nil
}

func (r *Repo) Find(ctx context.Context, f Filter) ([]*Blog, error) {
	filter := bson.D{}
	if f.Type != "" {
		filter = append(filter, bson.E{Key: "blogType", Value: f.Type})
	}
	if f.Status != "" {
		filter = append(filter, bson.E{Key: "blogStatus", Value: f.Status})
	}
	if f.UserId != "" {
		filter = append(filter, bson.E{Key: "userId", Value: f.UserId})
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.blogs.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("blog/repo: failed finding blogs: %w", err)
	}
	defer cursor.Close(ctx)

	blogs := []*Blog{}
	if err := cursor.All(ctx, &blogs); err != nil {
		return nil, fmt.Errorf("blog/repo: failed geting blogs from cursor: %w", err)
	}
	return blogs, nil
}

// Update sets the patched fields and changedAt. Slug, type and owner are
// never part of the update.
func (r *Repo) Update(ctx context.Context, id primitive.ObjectID, p Patch, at time.Time) (*Blog, error) {
	set := bson.D{}
	if p.Title != nil {
		set = append(set, bson.E{Key: "title", Value: *p.Title})
	}
	if p.Text != nil {
		set = append(set, bson.E{Key: "text", Value: *p.Text})
	}
	if p.Tags != nil {
		set = append(set, bson.E{Key: "tags", Value: *p.Tags})
	}
	if p.Status != nil {
		set = append(set, bson.E{Key: "blogStatus", Value: *p.Status})
	}
	set = append(set, bson.E{Key: "changedAt", Value: at})

	return r.findAndUpdate(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (r *Repo) Upvote(ctx context.Context, id primitive.ObjectID) (*Blog, error) {
	return r.findAndUpdate(ctx, id, bson.D{{Key: "$inc", Value: bson.D{{Key: "upvotes", Value: 1}}}})
}

func (r *Repo) findAndUpdate(ctx context.Context, id primitive.ObjectID, update bson.D) (*Blog, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	b := new(Blog)
	err := r.blogs.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(b)
	if err != nil {
		return nil, notFound(id, err)
	}
	return b, nil
}

// Delete removes the blog and returns what was stored.
func (r *Repo) Delete(ctx context.Context, id primitive.ObjectID) (*Blog, error) {
	b := new(Blog)
	err := r.blogs.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(b)
	if err != nil {
		return nil, notFound(id, err)
	}
	return b, nil
}

type countResult struct {
	N int `bson:"n"`
}

// CountByOwnerAndType counts the blogs of one type created by ownerId.
func (r *Repo) CountByOwnerAndType(ctx context.Context, ownerId string, t Type) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "userId", Value: ownerId}, {Key: "blogType", Value: t}}}},
		{{Key: "$count", Value: "n"}},
	}
	cursor, err := r.blogs.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("blog/repo: failed aggregating blogs: %w", err)
	}
	defer cursor.Close(ctx)

	stats := []countResult{}
	if err := cursor.All(ctx, &stats); err != nil {
		return 0, fmt.Errorf("blog/repo: failed geting stats from cursor: %w", err)
	}
	// $count emits nothing when no document matched.
	if len(stats) == 0 {
		return 0, nil
	}
	return stats[0].N, nil
}

// Owners lists every distinct owner id present in the collection.
func (r *Repo) Owners(ctx context.Context) ([]string, error) {
	values, err := r.blogs.Distinct(ctx, "userId", bson.D{})
	if err != nil {
		return nil, fmt.Errorf("blog/repo: failed listing owners: %w", err)
	}
	owners := make([]string, 0, len(values))
	for _, v := range values {
		if s, ok := v.(string); ok && s != "" {
			owners = append(owners, s)
		}
	}
	return owners, nil
}

func notFound(id primitive.ObjectID, err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("blog/repo: blog %s: %w", id.Hex(), ErrNotFound)
	}
	return fmt.Errorf("blog/repo: failed loading blog %s: %w", id.Hex(), err)
}
