// Package db manages MongoDB connections and collections.
package db

import (
	"context" // For connection timeout/cancellation
	"fmt"     // Error formatting
	"time"    // Duration for timeouts

	"go.mongodb.org/mongo-driver/v2/bson"           // Index key documents
	"go.mongodb.org/mongo-driver/v2/mongo"          // MongoDB driver
	"go.mongodb.org/mongo-driver/v2/mongo/options"  // MongoDB options
	"go.mongodb.org/mongo-driver/v2/mongo/readpref" // MongoDB read preference
)

// DefaultDatabase is used when no database name is configured.
const DefaultDatabase = "dog_adoption"

// Client wraps mongo.Client and exposes collections.
type Client struct {
	// client is the underlying MongoDB connection (thread-safe, can be reused)
	client *mongo.Client

	// db is the application database; collections ("users", "dogs") are
	// accessed via this reference
	db *mongo.Database
}

// New connects to MongoDB and returns a Client bound to database dbName.
func New(ctx context.Context, mongoURI, dbName string) (*Client, error) {
	if dbName == "" {
		dbName = DefaultDatabase
	}

	// SetConnectTimeout: fail fast if MongoDB is unreachable
	opts := options.Client().
		ApplyURI(mongoURI).                 // Parse connection string
		SetConnectTimeout(10 * time.Second) // Max time to connect

	// This doesn't actually connect yet, just creates the client
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// If ping doesn't complete in 5 seconds, fail
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	// Ping MongoDB to verify connection is working
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	// Lazy-loaded: actual DB not created until first write
	return &Client{
		client: client,
		db:     client.Database(dbName),
	}, nil
}

// UsersCollection returns the users collection.
func (c *Client) UsersCollection() *mongo.Collection {
	return c.db.Collection("users")
}

// DogsCollection returns the dogs collection.
func (c *Client) DogsCollection() *mongo.Collection {
	return c.db.Collection("dogs")
}

// Ping checks that the primary is reachable. Used by the health server.
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects from MongoDB.
func (c *Client) Close(ctx context.Context) error {
	// ctx can have timeout if you want to force shutdown after N seconds
	return c.client.Disconnect(ctx)
}

// CreateIndexes creates necessary indexes for users and dogs collections.
func (c *Client) CreateIndexes(ctx context.Context) error {
	// ===== USERS COLLECTION INDEX =====
	// Unique index on username: no two users can share a username, and two
	// racing registrations cannot both be inserted
	usersIndexModel := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := c.UsersCollection().Indexes().CreateOne(ctx, usersIndexModel); err != nil {
		return fmt.Errorf("failed to create users index: %w", err)
	}

	// ===== DOGS COLLECTION INDEXES =====
	dogIndexes := []mongo.IndexModel{
		{
			// Used by: ListOwned (owner, optional status filter)
			Keys: bson.D{{Key: "owner", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			// Used by: ListClaimed, sorted by adoption time
			Keys: bson.D{{Key: "adopted_by", Value: 1}, {Key: "adopted_at", Value: -1}},
		},
		{
			// Used by: ListAll status filter
			Keys: bson.D{{Key: "status", Value: 1}},
		},
		{
			// Used by: newest-first sorting
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}
	if _, err := c.DogsCollection().Indexes().CreateMany(ctx, dogIndexes); err != nil {
		return fmt.Errorf("failed to create dog indexes: %w", err)
	}

	return nil
}
