package invoices

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is the MongoDB collection holding invoice records.
const CollectionName = "invoices"

// MongoRepo implements Repo on a MongoDB collection keyed by fileId.
type MongoRepo struct {
	Coll *mongo.Collection
}

// NewMongoRepo returns a repo on db's invoices collection.
func NewMongoRepo(db *mongo.Database) *MongoRepo {
	return &MongoRepo{Coll: db.Collection(CollectionName)}
}

// EnsureIndexes creates the unique fileId index and the listing index.
func (r *MongoRepo) EnsureIndexes(ctx context.Context) error {
	_, err := r.Coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "fileId", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("ensure invoice indexes: %w", err)
	}
	return nil
}

func (r *MongoRepo) GetByFileID(ctx context.Context, fileID string) (Record, error) {
	var rec Record
	err := r.Coll.FindOne(ctx, bson.M{"fileId": fileID}).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return withItems(rec), nil
}

func (r *MongoRepo) Create(ctx context.Context, rec Record) error {
	if rec.Invoice.LineItems == nil {
		rec.Invoice.LineItems = []LineItem{}
	}
	if _, err := r.Coll.InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *MongoRepo) Update(ctx context.Context, fileID string, p Patch) (Record, error) {
	p = p.normalized()
	set := bson.M{"updatedAt": p.UpdatedAt}
	if p.FileName != nil {
		set["fileName"] = *p.FileName
	}
	if p.Vendor != nil {
		set["vendor"] = *p.Vendor
	}
	if p.Invoice != nil {
		set["invoice"] = *p.Invoice
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var rec Record
	err := r.Coll.FindOneAndUpdate(ctx, bson.M{"fileId": fileID}, bson.M{"$set": set}, opts).Decode(&rec)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return withItems(rec), nil
}

func (r *MongoRepo) List(ctx context.Context, f Filter) ([]Record, error) {
	filter := bson.M{}
	if needle := strings.TrimSpace(f.VendorName); needle != "" {
		filter["vendor.name"] = primitive.Regex{Pattern: regexp.QuoteMeta(needle), Options: "i"}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "fileId", Value: 1}})

	cur, err := r.Coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	for i := range out {
		out[i] = withItems(out[i])
	}
	return out, nil
}

func (r *MongoRepo) Delete(ctx context.Context, fileID string) error {
	res, err := r.Coll.DeleteOne(ctx, bson.M{"fileId": fileID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func withItems(rec Record) Record {
	if rec.Invoice.LineItems == nil {
		rec.Invoice.LineItems = []LineItem{}
	}
	return rec
}

var _ Repo = (*MongoRepo)(nil)
