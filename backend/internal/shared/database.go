// ============================================================================
// backend/internal/shared/database.go
// MongoDB connection lifecycle and BSON value helpers
// ============================================================================

package shared

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig holds MongoDB connection configuration
type MongoConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
	MaxPoolSize    uint64
	MinPoolSize    uint64
	MaxIdleTime    time.Duration
}

// DefaultMongoConfig returns default MongoDB configuration
func DefaultMongoConfig(uri, database string) *MongoConfig {
	return &MongoConfig{
		URI:            uri,
		Database:       database,
		ConnectTimeout: 20 * time.Second,
		MaxPoolSize:    50,
		MinPoolSize:    5,
		MaxIdleTime:    30 * time.Second,
	}
}

// ConnectMongoDB connects, pings the primary and returns the configured database
func ConnectMongoDB(config *MongoConfig) (*mongo.Client, *mongo.Database, error) {
	if config == nil {
		return nil, nil, fmt.Errorf("mongo config cannot be nil")
	}
	if config.URI == "" {
		return nil, nil, fmt.Errorf("mongo URI cannot be empty")
	}

	ctx, cancel := context.WithTimeout(context.Background(), config.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(config.URI).
		SetMaxPoolSize(config.MaxPoolSize).
		SetMinPoolSize(config.MinPoolSize).
		SetMaxConnIdleTime(config.MaxIdleTime).
		SetServerSelectionTimeout(10 * time.Second).
		SetConnectTimeout(config.ConnectTimeout)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	log.Printf("INFO: Connected to MongoDB (Database: %s)", config.Database)
	return client, client.Database(config.Database), nil
}

// DisconnectMongoDB gracefully closes MongoDB connection
func DisconnectMongoDB(client *mongo.Client) error {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect from MongoDB: %w", err)
	}

	log.Println("INFO: Disconnected from MongoDB")
	return nil
}

// ============================================================================
// Type Conversion Helpers
// ============================================================================

// GetFloat64 extracts a float64 from a BSON value stored as any numeric type.
// Category weights are written as doubles but hand-edited data may hold ints.
func GetFloat64(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int:
		return float64(v), nil
	case primitive.Decimal128:
		f, err := strconv.ParseFloat(v.String(), 64)
		if err != nil {
			return 0, fmt.Errorf("cannot convert decimal %s to float64: %w", v.String(), err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", value)
	}
}

// GetString extracts a string from a BSON value
func GetString(value interface{}) (string, error) {
	if str, ok := value.(string); ok {
		return str, nil
	}
	return "", fmt.Errorf("cannot convert %T to string", value)
}

// GetFloatMap extracts a string-to-number subdocument such as a category weight table
func GetFloatMap(value interface{}) (map[string]float64, error) {
	var doc map[string]interface{}
	switch v := value.(type) {
	case bson.M:
		doc = v
	case map[string]interface{}:
		doc = v
	case bson.D:
		doc = make(map[string]interface{}, len(v))
		for _, e := range v {
			doc[e.Key] = e.Value
		}
	default:
		return nil, fmt.Errorf("cannot convert %T to map[string]float64", value)
	}

	result := make(map[string]float64, len(doc))
	for key, raw := range doc {
		f, err := GetFloat64(raw)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", key, err)
		}
		result[key] = f
	}
	return result, nil
}

// ============================================================================
// Query Helpers
// ============================================================================

// BuildFindOptions creates common find options with defaults
func BuildFindOptions(limit int64, sortField string, sortOrder int) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(limit)
	}
	if sortField != "" {
		opts.SetSort(bson.D{{Key: sortField, Value: sortOrder}})
	}
	return opts
}

// CountDocumentsWithTimeout counts documents with timeout
func CountDocumentsWithTimeout(ctx context.Context, col *mongo.Collection, filter bson.M, timeout time.Duration) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	count, err := col.CountDocuments(queryCtx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}

// FindOneWithTimeout finds a single document with timeout
func FindOneWithTimeout(ctx context.Context, col *mongo.Collection, filter bson.M, result interface{}, timeout time.Duration) error {
	queryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	return col.FindOne(queryCtx, filter).Decode(result)
}
