package mongodb

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection and index names shared with the repositories.
const (
	EmployeesCollection  = "employees"
	AttendanceCollection = "attendance"

	IndexEmployeeCode  = "employeeId_unique"
	IndexEmployeeEmail = "email_unique"
	IndexAttendanceDay = "employeeId_date_unique"
)

// Client wraps a MongoDB client bound to one database
type Client struct {
	client *mongo.Client
	db     *mongo.Database
	logger *slog.Logger
}

// NewClient connects to uri and selects database
func NewClient(ctx context.Context, uri, database string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	logger.Info("mongodb connected", slog.String("database", database))
	return &Client{client: client, db: client.Database(database), logger: logger}, nil
}

// Database returns the selected database
func (c *Client) Database() *mongo.Database {
	return c.db
}

// EnsureIndexes creates the unique indexes the invariants depend on.
func (c *Client) EnsureIndexes(ctx context.Context) error {
	_, err := c.db.Collection(EmployeesCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employeeId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexEmployeeCode),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexEmployeeEmail),
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("createdAt_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create employee indexes: %w", err)
	}

	_, err = c.db.Collection(AttendanceCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "employeeId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(IndexAttendanceDay),
		},
		{
			Keys:    bson.D{{Key: "date", Value: -1}},
			Options: options.Index().SetName("date_desc"),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create attendance indexes: %w", err)
	}

	c.logger.Info("mongodb indexes ensured")
	return nil
}

// Ping checks connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (c *Client) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.client.Disconnect(ctx)
}
