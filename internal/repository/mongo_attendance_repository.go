package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/infrastructure/mongodb"
)

// attendanceDocument keeps the employee reference under employeeId, the
// field name shared with the unique index.
type attendanceDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	EmployeeRef primitive.ObjectID `bson:"employeeId"`
	Date        time.Time          `bson:"date"`
	Status      string             `bson:"status"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`

	// Filled by $lookup; empty for orphaned records.
	Employee []employeeDocument `bson:"employee,omitempty"`
}

func (d *attendanceDocument) toView() *domain.AttendanceView {
	view := &domain.AttendanceView{
		AttendanceRecord: domain.AttendanceRecord{
			ID:          d.ID.Hex(),
			EmployeeRef: d.EmployeeRef.Hex(),
			Date:        d.Date,
			Status:      domain.AttendanceStatus(d.Status),
			CreatedAt:   d.CreatedAt,
			UpdatedAt:   d.UpdatedAt,
		},
	}
	if len(d.Employee) > 0 {
		e := d.Employee[0]
		view.Employee = &domain.EmployeeSummary{
			ID:         e.ID.Hex(),
			EmployeeID: e.EmployeeID,
			FullName:   e.FullName,
		}
	}
	return view
}

// MongoAttendanceRepository implements domain.AttendanceRepository using
// MongoDB. The unique {employeeId, date} index is authoritative.
type MongoAttendanceRepository struct {
	coll   *mongo.Collection
	logger *slog.Logger
}

// NewMongoAttendanceRepository creates a new attendance repository
func NewMongoAttendanceRepository(db *mongo.Database, logger *slog.Logger) *MongoAttendanceRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &MongoAttendanceRepository{
		coll:   db.Collection(mongodb.AttendanceCollection),
		logger: logger,
	}
}

func (r *MongoAttendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) error {
	ref, err := primitive.ObjectIDFromHex(record.EmployeeRef)
	if err != nil {
		return fmt.Errorf("invalid employee reference %q: %w", record.EmployeeRef, err)
	}

	now := time.Now().UTC()
	doc := attendanceDocument{
		ID:          primitive.NewObjectID(),
		EmployeeRef: ref,
		Date:        record.Date.UTC(),
		Status:      string(record.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if dup := translateMongoError(err); errors.Is(dup, domain.ErrDuplicate) {
			return dup
		}
		r.logger.Error("failed to insert attendance",
			slog.String("employee_ref", record.EmployeeRef),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to insert attendance: %w", err)
	}

	record.ID = doc.ID.Hex()
	record.CreatedAt = now.Truncate(time.Millisecond)
	record.UpdatedAt = record.CreatedAt
	return nil
}

func (r *MongoAttendanceRepository) ExistsInRange(ctx context.Context, employeeRef string, from, to time.Time) (bool, error) {
	ref, err := primitive.ObjectIDFromHex(employeeRef)
	if err != nil {
		return false, nil
	}

	filter := bson.M{
		"employeeId": ref,
		"date":       bson.M{"$gte": from.UTC(), "$lt": to.UTC()},
	}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return n > 0, nil
}

func (r *MongoAttendanceRepository) GetByID(ctx context.Context, id string) (*domain.AttendanceView, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	views, err := r.aggregate(ctx, bson.M{"_id": oid})
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	if len(views) == 0 {
		return nil, domain.ErrNotFound
	}
	return views[0], nil
}

func (r *MongoAttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]*domain.AttendanceView, error) {
	match, ok := attendanceMatch(filter)
	if !ok {
		return []*domain.AttendanceView{}, nil
	}

	views, err := r.aggregate(ctx, match)
	if err != nil {
		r.logger.Error("failed to list attendance", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}
	return views, nil
}

// attendanceMatch builds the $match stage. ok is false when the employee
// reference cannot exist in this store.
func attendanceMatch(filter domain.AttendanceFilter) (bson.M, bool) {
	match := bson.M{}
	if filter.EmployeeRef != "" {
		ref, err := primitive.ObjectIDFromHex(filter.EmployeeRef)
		if err != nil {
			return nil, false
		}
		match["employeeId"] = ref
	}

	dateRange := bson.M{}
	if !filter.From.IsZero() {
		dateRange["$gte"] = filter.From.UTC()
	}
	if !filter.To.IsZero() {
		dateRange["$lt"] = filter.To.UTC()
	}
	if len(dateRange) > 0 {
		match["date"] = dateRange
	}
	return match, true
}

func (r *MongoAttendanceRepository) aggregate(ctx context.Context, match bson.M) ([]*domain.AttendanceView, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "date", Value: -1}, {Key: "createdAt", Value: -1}}}},
		{{Key: "$lookup", Value: bson.D{
			{Key: "from", Value: mongodb.EmployeesCollection},
			{Key: "localField", Value: "employeeId"},
			{Key: "foreignField", Value: "_id"},
			{Key: "as", Value: "employee"},
		}}},
	}

	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	views := []*domain.AttendanceView{}
	for cursor.Next(ctx) {
		var doc attendanceDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode attendance: %w", err)
		}
		views = append(views, doc.toView())
	}
	return views, cursor.Err()
}

func (r *MongoAttendanceRepository) Delete(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrNotFound
	}

	result, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if result.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

var _ domain.AttendanceRepository = (*MongoAttendanceRepository)(nil)
