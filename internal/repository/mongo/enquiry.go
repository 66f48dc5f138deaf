package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/database"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

const enquiryCollection = "enquiries"

// EnquiryRepository implements repository.EnquiryRepository using MongoDB.
type EnquiryRepository struct {
	coll *mongo.Collection
}

func NewEnquiryRepository(db *mongo.Database) *EnquiryRepository {
	return &EnquiryRepository{coll: db.Collection(enquiryCollection)}
}

// EnsureIndexes creates the listing index. It is safe to call on every start.
func (r *EnquiryRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create enquiry index: %w", err)
	}
	return nil
}

func (r *EnquiryRepository) Create(ctx context.Context, e *domain.Enquiry) (err error) {
	ctx, end := database.TraceOp(ctx, "mongodb", "CreateEnquiry", "enquiries.insertOne")
	defer func() { end(err) }()

	if _, err = r.coll.InsertOne(ctx, e); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperrors.AlreadyExists("enquiry", "id", e.ID)
		}
		return fmt.Errorf("insert enquiry: %w", err)
	}
	return nil
}

func (r *EnquiryRepository) GetByID(ctx context.Context, id string) (*domain.Enquiry, error) {
	var e domain.Enquiry
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("enquiry", id)
		}
		return nil, fmt.Errorf("get enquiry: %w", err)
	}
	return &e, nil
}

// List returns one page of enquiries, newest first, and the total count.
func (r *EnquiryRepository) List(ctx context.Context, page pagination.Params) (items []domain.Enquiry, total int, err error) {
	ctx, end := database.TraceOp(ctx, "mongodb", "ListEnquiries", "enquiries.find")
	defer func() { end(err) }()

	count, err := r.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("count enquiries: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(page.Offset)).
		SetLimit(int64(page.Limit))

	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find enquiries: %w", err)
	}
	defer cursor.Close(ctx)

	items = make([]domain.Enquiry, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, 0, fmt.Errorf("decode enquiries: %w", err)
	}
	return items, int(count), nil
}

func (r *EnquiryRepository) UpdateStatus(ctx context.Context, id, status string) (*domain.Enquiry, error) {
	update := bson.M{
		"$set": bson.M{
			"status":     status,
			"updated_at": time.Now().UTC(),
		},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var e domain.Enquiry
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperrors.NotFound("enquiry", id)
		}
		return nil, fmt.Errorf("update enquiry status: %w", err)
	}
	return &e, nil
}

func (r *EnquiryRepository) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete enquiry: %w", err)
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("enquiry", id)
	}
	return nil
}
