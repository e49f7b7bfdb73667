// Package data provides the domain records and the stores that persist them.
package data

import (
	"context" // Used for cancellation and timeouts
	"errors"  // Error handling
	"time"    // Timestamps

	"go.mongodb.org/mongo-driver/v2/bson"          // MongoDB document queries
	"go.mongodb.org/mongo-driver/v2/mongo"         // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options" // Projections
)

// userDocument is the BSON shape of the users collection.
type userDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	Username  string        `bson:"username"`
	Password  string        `bson:"password"`
	CreatedAt time.Time     `bson:"created_at"`
	UpdatedAt time.Time     `bson:"updated_at"`
}

func (d *userDocument) toUser() *User {
	return &User{
		ID:        d.ID.Hex(),
		Username:  d.Username,
		Password:  d.Password,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

// UsersStore performs user DB operations.
type UsersStore struct {
	// coll is reference to "users" collection in MongoDB
	// Set via NewUsersStore() and used in all methods below
	coll *mongo.Collection
}

// NewUsersStore returns a UsersStore using the provided collection.
func NewUsersStore(coll *mongo.Collection) *UsersStore {
	return &UsersStore{coll: coll} // Store reference to MongoDB collection
}

// CreateUser inserts a new user document with hashed password.
func (u *UsersStore) CreateUser(ctx context.Context, username, hashedPassword string) (*User, error) {
	now := time.Now().UTC()
	doc := &userDocument{
		Username:  username,       // Already normalized by the identity service
		Password:  hashedPassword, // Already hashed by auth.HashPassword()
		CreatedAt: now,
		UpdatedAt: now, // Initially same as CreatedAt
	}

	// InsertOne adds the document; the unique index on username rejects duplicates
	result, err := u.coll.InsertOne(ctx, doc)
	if err != nil {
		// Two concurrent registrations for one username both pass the existence
		// check; the index makes the second one fail here
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicate
		}
		return nil, err
	}

	// MongoDB auto-generates the _id field; extract it so the token can carry it
	doc.ID = result.InsertedID.(bson.ObjectID)
	return doc.toUser(), nil
}

// GetUserByUsername finds a user by exact username.
func (u *UsersStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var doc userDocument

	// bson.M{"username": username} creates MongoDB query filter: {username: "..."}
	err := u.coll.FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Handler will use Password field to verify with auth.CheckPassword()
	return doc.toUser(), nil
}

// GetUserByID finds a user by its hex ObjectID.
func (u *UsersStore) GetUserByID(ctx context.Context, id string) (*User, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrInvalidID
	}

	var doc userDocument
	err = u.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc)
	if err != nil {
		// No document found (user was deleted)
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return doc.toUser(), nil
}

// UserExists checks if a username is already registered.
func (u *UsersStore) UserExists(ctx context.Context, username string) (bool, error) {
	// CountDocuments returns number of documents matching the filter
	// Much faster than FindOne when you only need to know if it exists
	count, err := u.coll.CountDocuments(ctx, bson.M{"username": username})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetUsernames resolves user ids to usernames in one query. Ids that are
// malformed or no longer exist are absent from the result.
func (u *UsersStore) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := bson.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	names := make(map[string]string, len(oids))
	if len(oids) == 0 {
		return names, nil
	}

	// Only username is needed for the display join; never load password hashes
	opts := options.Find().SetProjection(bson.M{"username": 1})
	cursor, err := u.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []userDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	for _, d := range docs {
		names[d.ID.Hex()] = d.Username
	}
	return names, nil
}
