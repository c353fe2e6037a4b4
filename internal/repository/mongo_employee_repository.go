package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/infrastructure/mongodb"
)

var mongoIndexKeys = map[string]string{
	mongodb.IndexEmployeeCode:  domain.KeyEmployeeCode,
	mongodb.IndexEmployeeEmail: domain.KeyEmployeeEmail,
	mongodb.IndexAttendanceDay: domain.KeyAttendanceDay,
}

// translateMongoError maps duplicate key errors to domain duplicate errors,
// naming the violated index when the server reports it.
func translateMongoError(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return err
	}
	msg := err.Error()
	for index, key := range mongoIndexKeys {
		if strings.Contains(msg, "index: "+index+" ") {
			return domain.NewDuplicateKeyError(key)
		}
	}
	return fmt.Errorf("%w: %s", domain.ErrDuplicate, msg)
}

type employeeDocument struct {
	ID         primitive.ObjectID `bson:"_id,omitempty"`
	EmployeeID string             `bson:"employeeId"`
	FullName   string             `bson:"fullName"`
	Email      string             `bson:"email"`
	Department string             `bson:"department"`
	CreatedAt  time.Time          `bson:"createdAt"`
	UpdatedAt  time.Time          `bson:"updatedAt"`
}

func (d *employeeDocument) toDomain() *domain.Employee {
	return &domain.Employee{
		ID:         d.ID.Hex(),
		EmployeeID: d.EmployeeID,
		FullName:   d.FullName,
		Email:      d.Email,
		Department: d.Department,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// MongoEmployeeRepository implements domain.EmployeeRepository using MongoDB
type MongoEmployeeRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoEmployeeRepository creates a new employee repository
func NewMongoEmployeeRepository(db *mongo.Database, logger *slog.Logger) *MongoEmployeeRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoEmployeeRepository{
		coll:   db.Collection(mongodb.EmployeesCollection),
		logger: logger,
	}
}

func (r *MongoEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	now := time.Now().UTC()
	doc := employeeDocument{
		ID:         primitive.NewObjectID(),
		EmployeeID: employee.EmployeeID,
		FullName:   employee.FullName,
		Email:      employee.Email,
		Department: employee.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if dup := translateMongoError(err); errors.Is(dup, domain.ErrDuplicate) {
			return dup
		}
		r.logger.Error("failed to insert employee",
			slog.String("employee_id", employee.EmployeeID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to insert employee: %w", err)
	}

	employee.ID = doc.ID.Hex()
	// BSON datetimes keep millisecond precision.
	employee.CreatedAt = now.Truncate(time.Millisecond)
	employee.UpdatedAt = employee.CreatedAt
	return nil
}

func (r *MongoEmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *MongoEmployeeRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	return r.findOne(ctx, bson.M{"employeeId": employeeID})
}

func (r *MongoEmployeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *MongoEmployeeRepository) findOne(ctx context.Context, filter bson.M) (*domain.Employee, error) {
	var doc employeeDocument
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find employee: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *MongoEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		r.logger.Error("failed to list employees", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer cursor.Close(ctx)

	employees := []*domain.Employee{}
	for cursor.Next(ctx) {
		var doc employeeDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode employee: %w", err)
		}
		employees = append(employees, doc.toDomain())
	}
	return employees, cursor.Err()
}

func (r *MongoEmployeeRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.EmployeeRepository = (*MongoEmployeeRepository)(nil)
