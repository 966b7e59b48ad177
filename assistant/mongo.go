package assistant

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Store = &MongoStore{}

// MongoStore is a MongoDB-backed implementation of Store. Every write is a
// single-document update, so readers never see a half-written binding.
type MongoStore struct {
	assistants *mongo.Collection
}

// NewMongoStore creates a new store backed by the given DB.
func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		assistants: db.Collection("assistants"),
	}
}

func (s *MongoStore) Get(ctx context.Context, assistantID string) (*Assistant, error) {
	return s.findOne(ctx, bson.M{"_id": assistantID})
}

func (s *MongoStore) GetByBusiness(ctx context.Context, businessID string) (*Assistant, error) {
	return s.findOne(ctx, bson.M{"businessId": businessID})
}

func (s *MongoStore) findOne(ctx context.Context, filter bson.M) (*Assistant, error) {
	var a Assistant
	err := s.assistants.FindOne(ctx, filter).Decode(&a)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// Connect checks that the assistant belongs to the business, releases the
// phone number from any previous holder, then writes the binding.
func (s *MongoStore) Connect(ctx context.Context, assistantID, businessID string, b Binding) error {
	filter := bson.M{"_id": assistantID, "businessId": businessID}
	err := s.assistants.FindOne(ctx, filter, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return ErrNotFound
		}
		return err
	}

	release := bson.M{
		"phoneNumberId": b.PhoneNumberID,
		"_id":           bson.M{"$ne": assistantID},
	}
	if _, err := s.assistants.UpdateMany(ctx, release, bson.M{"$set": clearedFields()}); err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{
		"token":                     b.Token,
		"phoneNumberId":             b.PhoneNumberID,
		"whatsappBusinessAccountId": b.WhatsappBusinessAccountID,
		"whatsappDisplayName":       b.WhatsappDisplayName,
		"whatsappBusiness":          b.WhatsappBusiness,
		"whatsappQualityRating":     b.WhatsappQualityRating,
		"whatsappConnectionStatus":  StatusConnected,
		"whatsappTokenLastSet":      b.ConnectedAt.UTC(),
	}}
	res, err := s.assistants.UpdateOne(ctx, filter, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Disconnect(ctx context.Context, assistantID string) error {
	res, err := s.assistants.UpdateOne(ctx, bson.M{"_id": assistantID}, bson.M{"$set": clearedFields()})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func clearedFields() bson.M {
	return bson.M{
		"token":                     nil,
		"phoneNumberId":             nil,
		"whatsappBusinessAccountId": nil,
		"whatsappDisplayName":       nil,
		"whatsappBusiness":          nil,
		"whatsappQualityRating":     nil,
		"whatsappConnectionStatus":  StatusNotConnected,
		"whatsappTokenLastSet":      nil,
	}
}
