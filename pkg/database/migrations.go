package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Migration struct {
	Version     int
	Description string
	Up          func(*mongo.Database) error
	Down        func(*mongo.Database) error
}

type Migrator struct {
	db         *mongo.Database
	migrations []Migration
}

func NewMigrator(db *mongo.Database) *Migrator {
	return &Migrator{
		db:         db,
		migrations: getMigrations(),
	}
}

func (m *Migrator) Up() error {
	err := m.createMigrationsCollection()
	if err != nil {
		return err
	}

	currentVersion, err := m.getCurrentVersion()
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if migration.Version > currentVersion {
			log.Printf("Running migration %d: %s", migration.Version, migration.Description)

			err := migration.Up(m.db)
			if err != nil {
				return fmt.Errorf("migration %d failed: %w", migration.Version, err)
			}

			err = m.updateVersion(migration.Version)
			if err != nil {
				return fmt.Errorf("failed to update migration version: %w", err)
			}

			log.Printf("Migration %d completed successfully", migration.Version)
		}
	}

	return nil
}

func (m *Migrator) createMigrationsCollection() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	collections, err := m.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return err
	}

	for _, name := range collections {
		if name == "migrations" {
			return nil
		}
	}

	return m.db.CreateCollection(ctx, "migrations")
}

func (m *Migrator) getCurrentVersion() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var result struct {
		Version int `bson:"version"`
	}

	err := m.db.Collection("migrations").FindOne(ctx, bson.D{}).Decode(&result)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return 0, nil
		}
		return 0, err
	}

	return result.Version, nil
}

func (m *Migrator) updateVersion(version int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := m.db.Collection("migrations").ReplaceOne(
		ctx,
		bson.D{},
		bson.D{{Key: "version", Value: version}, {Key: "updated_at", Value: time.Now()}},
		options.Replace().SetUpsert(true),
	)

	return err
}

func getMigrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "Create users collection with conditional uniqueness indexes",
			Up: func(db *mongo.Database) error {
				return createUsersIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("users").Drop(context.Background())
			},
		},
		{
			Version:     2,
			Description: "Create otps collection with indexes",
			Up: func(db *mongo.Database) error {
				return createOTPsIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("otps").Drop(context.Background())
			},
		},
		{
			Version:     3,
			Description: "Create ride_offers and ride_requests collections with indexes",
			Up: func(db *mongo.Database) error {
				if err := createRideOffersIndexes(db); err != nil {
					return err
				}
				return createRideRequestsIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				if err := db.Collection("ride_offers").Drop(context.Background()); err != nil {
					return err
				}
				return db.Collection("ride_requests").Drop(context.Background())
			},
		},
		{
			Version:     4,
			Description: "Create ratings collection with unique (ride, rater, ratee) index",
			Up: func(db *mongo.Database) error {
				return createRatingsIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("ratings").Drop(context.Background())
			},
		},
		{
			Version:     5,
			Description: "Create chat_messages collection with indexes",
			Up: func(db *mongo.Database) error {
				return createChatMessagesIndexes(db)
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("chat_messages").Drop(context.Background())
			},
		},
		{
			Version:     6,
			Description: "Create registration_locks collection",
			Up: func(db *mongo.Database) error {
				// Created up front so the lock upserts inside the
				// registration transaction never hit an implicit
				// collection creation.
				return db.CreateCollection(context.Background(), "registration_locks")
			},
			Down: func(db *mongo.Database) error {
				return db.Collection("registration_locks").Drop(context.Background())
			},
		},
	}
}

func createUsersIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("users")

	indexes := []mongo.IndexModel{
		// Uniqueness holds over confirmed rows only; pending rows may
		// collide while coexisting inside the grace window.
		{
			Keys: bson.D{{Key: "email", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"registration_pending": false}),
		},
		{
			Keys: bson.D{{Key: "phone_number", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"registration_pending": false}),
		},
		// Reclamation sweeps pending rows by age.
		{
			Keys: bson.D{{Key: "registration_pending", Value: 1}, {Key: "created_at", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "email", Value: 1}, {Key: "registration_pending", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "phone_number", Value: 1}, {Key: "registration_pending", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createOTPsIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("otps")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "purpose", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createRideOffersIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("ride_offers")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "start_time", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "driver_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "start_point", Value: "2dsphere"}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createRideRequestsIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("ride_requests")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "status", Value: 1}, {Key: "ride_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "passenger_id", Value: 1}, {Key: "status", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "created_at", Value: -1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createRatingsIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("ratings")

	indexes := []mongo.IndexModel{
		// A user rates another at most once per ride.
		{
			Keys:    bson.D{{Key: "ride_id", Value: 1}, {Key: "from_user_id", Value: 1}, {Key: "to_user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "to_user_id", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}

func createChatMessagesIndexes(db *mongo.Database) error {
	ctx := context.Background()
	collection := db.Collection("chat_messages")

	indexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "ride_id", Value: 1}, {Key: "timestamp", Value: 1}},
		},
	}

	_, err := collection.Indexes().CreateMany(ctx, indexes)
	return err
}
