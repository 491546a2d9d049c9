package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"funora/internal/model"
)

// GameRepo archives terminal game snapshots for finished games
type GameRepo interface {
	Save(ctx context.Context, record *model.GameRecord) error
	ListByRoom(ctx context.Context, roomCode string) ([]model.GameRecord, error)
}

type gameRepo struct {
	collection *mongo.Collection
}

// NewGameRepo creates a new game archive repository
func NewGameRepo(db *mongo.Database) GameRepo {
	return &gameRepo{
		collection: db.Collection("game_records"),
	}
}

func (r *gameRepo) Save(ctx context.Context, record *model.GameRecord) error {
	_, err := r.collection.InsertOne(ctx, record)
	return err
}

func (r *gameRepo) ListByRoom(ctx context.Context, roomCode string) ([]model.GameRecord, error) {
	opts := options.Find().SetSort(bson.M{"endedAt": -1})
	cursor, err := r.collection.Find(ctx, bson.M{"roomCode": roomCode}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var records []model.GameRecord
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}
