package data

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// dogDocument is the BSON shape of the dogs collection.
type dogDocument struct {
	ID          bson.ObjectID `bson:"_id,omitempty"`
	Name        string        `bson:"name"`
	Description string        `bson:"description"`
	Owner       bson.ObjectID `bson:"owner"`
	Status      string        `bson:"status"`
	// AdoptedBy and AdoptedAt are stored as null until adoption so that
	// {adopted_by: null} matches available listings
	AdoptedBy       *bson.ObjectID `bson:"adopted_by"`
	AdoptedAt       *time.Time     `bson:"adopted_at"`
	ThankYouMessage string         `bson:"thank_you_message,omitempty"`
	CreatedAt       time.Time      `bson:"created_at"`
	UpdatedAt       time.Time      `bson:"updated_at"`
}

func (d *dogDocument) toDog() *Dog {
	dog := &Dog{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Description:     d.Description,
		OwnerID:         d.Owner.Hex(),
		Status:          DogStatus(d.Status),
		AdoptedAt:       d.AdoptedAt,
		ThankYouMessage: d.ThankYouMessage,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
	if d.AdoptedBy != nil {
		dog.AdopterID = d.AdoptedBy.Hex()
	}
	return dog
}

// DogsStore provides listing database operations.
type DogsStore struct {
	// coll is reference to "dogs" collection in MongoDB
	coll *mongo.Collection
}

// NewDogsStore returns a DogsStore using given collection.
func NewDogsStore(coll *mongo.Collection) *DogsStore {
	return &DogsStore{coll: coll}
}

// CreateDog inserts a new listing and returns it with its generated id.
// Status, adopter and timestamps are set here regardless of the input.
func (s *DogsStore) CreateDog(ctx context.Context, dog *Dog) (*Dog, error) {
	owner, err := bson.ObjectIDFromHex(dog.OwnerID)
	if err != nil {
		return nil, ErrInvalidID
	}

	now := time.Now().UTC()
	doc := &dogDocument{
		Name:        dog.Name,
		Description: dog.Description,
		Owner:       owner,
		Status:      string(StatusAvailable), // every listing starts available
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	result, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		return nil, err
	}
	doc.ID = result.InsertedID.(bson.ObjectID)
	return doc.toDog(), nil
}

// GetDogByID finds a listing by its hex ObjectID.
func (s *DogsStore) GetDogByID(ctx context.Context, id string) (*Dog, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var doc dogDocument
	if err := s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.toDog(), nil
}

// AdoptDog performs the available -> adopted transition as one conditional
// update. The filter only matches a listing that is still available and not
// owned by the adopter, so two concurrent claims can never both succeed.
// ErrConflict means the filter matched nothing; the caller re-reads the
// listing to find out why.
func (s *DogsStore) AdoptDog(ctx context.Context, id, adopterID, message string, at time.Time) (*Dog, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}
	adopter, err := bson.ObjectIDFromHex(adopterID)
	if err != nil {
		return nil, ErrInvalidID
	}

	filter := bson.D{
		{Key: "_id", Value: oid},
		{Key: "status", Value: string(StatusAvailable)},
		{Key: "owner", Value: bson.D{{Key: "$ne", Value: adopter}}},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "status", Value: string(StatusAdopted)},
		{Key: "adopted_by", Value: adopter},
		{Key: "adopted_at", Value: at},
		{Key: "thank_you_message", Value: message},
		{Key: "updated_at", Value: at},
	}}}

	// ReturnDocument(After) hands back the adopted listing in the same round trip
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc dogDocument
	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrConflict
		}
		return nil, err
	}
	return doc.toDog(), nil
}

// DeleteAvailableDog removes a listing only while it is still available and
// owned by ownerID. ErrConflict means nothing matched.
func (s *DogsStore) DeleteAvailableDog(ctx context.Context, id, ownerID string) error {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return ErrInvalidID
	}
	owner, err := bson.ObjectIDFromHex(ownerID)
	if err != nil {
		return ErrInvalidID
	}

	res, err := s.coll.DeleteOne(ctx, bson.D{
		{Key: "_id", Value: oid},
		{Key: "owner", Value: owner},
		{Key: "status", Value: string(StatusAvailable)},
	})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrConflict
	}
	return nil
}

// ListDogs returns one page of listings matching q plus the total number of
// matches across all pages.
func (s *DogsStore) ListDogs(ctx context.Context, q DogQuery) ([]*Dog, int64, error) {
	filter, err := dogFilter(q)
	if err != nil {
		return nil, 0, err
	}

	// bson.D keeps key order, so the tie-breaker on _id is applied second
	sortKey := "created_at"
	if q.Sort == SortNewestAdopted {
		sortKey = "adopted_at"
	}
	opts := options.Find().
		SetSort(bson.D{{Key: sortKey, Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(q.Skip)
	if q.Limit > 0 {
		opts.SetLimit(q.Limit)
	}

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cursor.Close(ctx)

	var docs []dogDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, 0, err
	}

	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	dogs := make([]*Dog, 0, len(docs))
	for i := range docs {
		dogs = append(dogs, docs[i].toDog())
	}
	return dogs, total, nil
}

// dogFilter translates a DogQuery into a MongoDB filter document.
func dogFilter(q DogQuery) (bson.D, error) {
	filter := bson.D{}
	if q.OwnerID != "" {
		owner, err := bson.ObjectIDFromHex(q.OwnerID)
		if err != nil {
			return nil, ErrInvalidID
		}
		filter = append(filter, bson.E{Key: "owner", Value: owner})
	}
	if q.AdopterID != "" {
		adopter, err := bson.ObjectIDFromHex(q.AdopterID)
		if err != nil {
			return nil, ErrInvalidID
		}
		filter = append(filter, bson.E{Key: "adopted_by", Value: adopter})
	}
	if q.Status != "" {
		filter = append(filter, bson.E{Key: "status", Value: string(q.Status)})
	}
	if q.HasAdopter != nil {
		if *q.HasAdopter {
			filter = append(filter, bson.E{Key: "adopted_by", Value: bson.D{{Key: "$ne", Value: nil}}})
		} else {
			// matches both explicit null and a missing field
			filter = append(filter, bson.E{Key: "adopted_by", Value: nil})
		}
	}
	return filter, nil
}
