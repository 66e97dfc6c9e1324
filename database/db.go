package database

import (
	"context"
	"fmt"
	"time"

	"reelfeed/config"
	"reelfeed/utils"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

var (
	// MongoClient is the global MongoDB client, pinged by the health monitor.
	MongoClient *mongo.Client
	// historyDB holds viewer watch history.
	historyDB *mongo.Database
)

// Connect dials uri, verifies the connection and selects dbName.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	if dbName == "" {
		return nil, nil, fmt.Errorf("database: no database name configured")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("database: connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("database: ping: %w", err)
	}
	return client, client.Database(dbName), nil
}

// InitDB connects to MongoDB using the loaded configuration.
func InitDB() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, db, err := Connect(ctx, config.AppConfig.DatabaseURL, config.AppConfig.MongoDatabase)
	if err != nil {
		utils.GetLogger().Fatal("failed to initialize MongoDB", zap.Error(err))
	}
	MongoClient, historyDB = client, db
	utils.GetLogger().Info("connected to MongoDB", zap.String("database", db.Name()))
}

// Database returns the database selected by InitDB.
func Database() *mongo.Database {
	return historyDB
}

// Close disconnects the global client.
func Close(ctx context.Context) error {
	if MongoClient == nil {
		return nil
	}
	return MongoClient.Disconnect(ctx)
}
