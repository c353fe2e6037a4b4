package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/infrastructure/dynamo"
)

// Item types stored in the single table.
const (
	itemEmployee   = "employee"
	itemAttendance = "attendance"
	itemGuard      = "guard"
)

func employeePK(id string) string {
	return "EMPLOYEE#" + id
}

func employeeCodePK(code string) string {
	return "EMPLOYEE_CODE#" + code
}

func employeeEmailPK(email string) string {
	return "EMPLOYEE_EMAIL#" + email
}

func attendancePK(id string) string {
	return "ATTENDANCE#" + id
}

func attendanceDayPK(employeeRef string, day time.Time) string {
	return fmt.Sprintf("ATTENDANCE_DAY#%s#%d", employeeRef, day.Unix())
}

// DynamoAPI is the subset of the DynamoDB client used by the store
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
}

type employeeItem struct {
	PK         string    `dynamodbav:"pk"`
	Type       string    `dynamodbav:"type"`
	ID         string    `dynamodbav:"id"`
	EmployeeID string    `dynamodbav:"employeeId"`
	FullName   string    `dynamodbav:"fullName"`
	Email      string    `dynamodbav:"email"`
	Department string    `dynamodbav:"department"`
	CreatedAt  time.Time `dynamodbav:"createdAt"`
	UpdatedAt  time.Time `dynamodbav:"updatedAt"`
}

func (i *employeeItem) toDomain() *domain.Employee {
	return &domain.Employee{
		ID:         i.ID,
		EmployeeID: i.EmployeeID,
		FullName:   i.FullName,
		Email:      i.Email,
		Department: i.Department,
		CreatedAt:  i.CreatedAt,
		UpdatedAt:  i.UpdatedAt,
	}
}

type attendanceItem struct {
	PK          string    `dynamodbav:"pk"`
	Type        string    `dynamodbav:"type"`
	ID          string    `dynamodbav:"id"`
	EmployeeRef string    `dynamodbav:"employeeRef"`
	Date        int64     `dynamodbav:"date"` // Unix seconds of the day start
	Status      string    `dynamodbav:"status"`
	CreatedAt   time.Time `dynamodbav:"createdAt"`
	UpdatedAt   time.Time `dynamodbav:"updatedAt"`
}

func (i *attendanceItem) toRecord() domain.AttendanceRecord {
	return domain.AttendanceRecord{
		ID:          i.ID,
		EmployeeRef: i.EmployeeRef,
		Date:        time.Unix(i.Date, 0).UTC(),
		Status:      domain.AttendanceStatus(i.Status),
		CreatedAt:   i.CreatedAt,
		UpdatedAt:   i.UpdatedAt,
	}
}

// guardItem reserves a unique value. Its key is the value itself, so a
// conditional put fails when the value is taken.
type guardItem struct {
	PK   string `dynamodbav:"pk"`
	Type string `dynamodbav:"type"`
	Ref  string `dynamodbav:"ref"`
}

// DynamoStore keeps employees and attendance in one DynamoDB table.
// Uniqueness is enforced with guard items written in the same transaction
// as the entity they protect.
type DynamoStore struct {
	api    DynamoAPI
	table  string
	logger *slog.Logger
	now    func() time.Time
}

// NewDynamoStore creates a store over table
func NewDynamoStore(api DynamoAPI, table string, logger *slog.Logger) *DynamoStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &DynamoStore{
		api:    api,
		table:  table,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Employees returns the employee repository
func (s *DynamoStore) Employees() *DynamoEmployeeRepository {
	return &DynamoEmployeeRepository{store: s}
}

// Attendance returns the attendance repository
func (s *DynamoStore) Attendance() *DynamoAttendanceRepository {
	return &DynamoAttendanceRepository{store: s}
}

// Ping checks that the table is reachable
func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(s.table)})
	return err
}

func dynamoKey(pk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		dynamo.PartitionKey: &types.AttributeValueMemberS{Value: pk},
	}
}

// getItem loads pk into out and reports whether it existed.
func (s *DynamoStore) getItem(ctx context.Context, pk string, out any) (bool, error) {
	result, err := s.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            dynamoKey(pk),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return false, fmt.Errorf("failed to get item from DynamoDB: %w", err)
	}
	if result.Item == nil {
		return false, nil
	}
	if err := attributevalue.UnmarshalMap(result.Item, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal item: %w", err)
	}
	return true, nil
}

func (s *DynamoStore) putNew(item any) (types.TransactWriteItem, error) {
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to marshal item: %w", err)
	}
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeNotExists(expression.Name(dynamo.PartitionKey))).
		Build()
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to build expression: %w", err)
	}
	return types.TransactWriteItem{Put: &types.Put{
		TableName:                aws.String(s.table),
		Item:                     av,
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	}}, nil
}

func (s *DynamoStore) deleteExisting(pk string) (types.TransactWriteItem, error) {
	expr, err := expression.NewBuilder().
		WithCondition(expression.AttributeExists(expression.Name(dynamo.PartitionKey))).
		Build()
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("failed to build expression: %w", err)
	}
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName:                aws.String(s.table),
		Key:                      dynamoKey(pk),
		ConditionExpression:      expr.Condition(),
		ExpressionAttributeNames: expr.Names(),
	}}, nil
}

func (s *DynamoStore) deleteAny(pk string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName: aws.String(s.table),
		Key:       dynamoKey(pk),
	}}
}

func (s *DynamoStore) transact(ctx context.Context, items []types.TransactWriteItem) error {
	_, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	return err
}

// failedConditions returns the positions of transaction items whose
// condition check failed. ok is false if err is not a cancellation.
func failedConditions(err error) (positions []int, ok bool) {
	var canceled *types.TransactionCanceledException
	if !errors.As(err, &canceled) {
		return nil, false
	}
	for i, reason := range canceled.CancellationReasons {
		if aws.ToString(reason.Code) == "ConditionalCheckFailed" {
			positions = append(positions, i)
		}
	}
	return positions, true
}

// scanType reads every item of itemType matching conds, following pagination.
func (s *DynamoStore) scanType(ctx context.Context, itemType string, conds ...expression.ConditionBuilder) ([]map[string]types.AttributeValue, error) {
	filter := expression.Name("type").Equal(expression.Value(itemType))
	if len(conds) > 0 {
		filter = filter.And(conds[0], conds[1:]...)
	}
	expr, err := expression.NewBuilder().WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build expression: %w", err)
	}

	paginator := dynamodb.NewScanPaginator(s.api, &dynamodb.ScanInput{
		TableName:                 aws.String(s.table),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ConsistentRead:            aws.Bool(true),
	})

	var items []map[string]types.AttributeValue
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to scan DynamoDB table: %w", err)
		}
		items = append(items, page.Items...)
	}
	return items, nil
}

// DynamoEmployeeRepository implements domain.EmployeeRepository on DynamoDB
type DynamoEmployeeRepository struct {
	store *DynamoStore
}

func (r *DynamoEmployeeRepository) Create(ctx context.Context, employee *domain.Employee) error {
	s := r.store
	now := s.now()
	item := employeeItem{
		Type:       itemEmployee,
		ID:         uuid.NewString(),
		EmployeeID: employee.EmployeeID,
		FullName:   employee.FullName,
		Email:      employee.Email,
		Department: employee.Department,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	item.PK = employeePK(item.ID)

	// Guard order decides which conflict is reported first.
	var writes []types.TransactWriteItem
	for _, entity := range []any{
		guardItem{PK: employeeCodePK(item.EmployeeID), Type: itemGuard, Ref: item.ID},
		guardItem{PK: employeeEmailPK(item.Email), Type: itemGuard, Ref: item.ID},
		item,
	} {
		w, err := s.putNew(entity)
		if err != nil {
			return err
		}
		writes = append(writes, w)
	}

	if err := s.transact(ctx, writes); err != nil {
		if positions, ok := failedConditions(err); ok && len(positions) > 0 {
			switch positions[0] {
			case 0:
				return domain.NewDuplicateKeyError(domain.KeyEmployeeCode)
			case 1:
				return domain.NewDuplicateKeyError(domain.KeyEmployeeEmail)
			}
			return fmt.Errorf("%w: employee id collision", domain.ErrDuplicate)
		}
		s.logger.Error("failed to create employee",
			slog.String("employee_id", employee.EmployeeID),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create employee: %w", err)
	}

	employee.ID = item.ID
	employee.CreatedAt = now
	employee.UpdatedAt = now
	return nil
}

func (r *DynamoEmployeeRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	var item employeeItem
	found, err := r.store.getItem(ctx, employeePK(id), &item)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return item.toDomain(), nil
}

func (r *DynamoEmployeeRepository) GetByEmployeeID(ctx context.Context, employeeID string) (*domain.Employee, error) {
	return r.byGuard(ctx, employeeCodePK(employeeID))
}

func (r *DynamoEmployeeRepository) GetByEmail(ctx context.Context, email string) (*domain.Employee, error) {
	return r.byGuard(ctx, employeeEmailPK(email))
}

func (r *DynamoEmployeeRepository) byGuard(ctx context.Context, pk string) (*domain.Employee, error) {
	var guard guardItem
	found, err := r.store.getItem(ctx, pk, &guard)
	if err != nil {
		return nil, fmt.Errorf("failed to get employee guard: %w", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}
	return r.GetByID(ctx, guard.Ref)
}

func (r *DynamoEmployeeRepository) List(ctx context.Context) ([]*domain.Employee, error) {
	raw, err := r.store.scanType(ctx, itemEmployee)
	if err != nil {
		r.store.logger.Error("failed to list employees", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}

	var items []employeeItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal employee items: %w", err)
	}

	employees := make([]*domain.Employee, 0, len(items))
	for i := range items {
		employees = append(employees, items[i].toDomain())
	}
	sort.Slice(employees, func(i, j int) bool {
		if !employees[i].CreatedAt.Equal(employees[j].CreatedAt) {
			return employees[i].CreatedAt.After(employees[j].CreatedAt)
		}
		return employees[i].ID > employees[j].ID
	})
	return employees, nil
}

// Delete removes the employee and releases its unique values. Attendance
// items are kept.
func (r *DynamoEmployeeRepository) Delete(ctx context.Context, id string) error {
	employee, err := r.GetByID(ctx, id)
	if err != nil {
		return err
	}

	del, err := r.store.deleteExisting(employeePK(id))
	if err != nil {
		return err
	}
	writes := []types.TransactWriteItem{
		del,
		r.store.deleteAny(employeeCodePK(employee.EmployeeID)),
		r.store.deleteAny(employeeEmailPK(employee.Email)),
	}
	if err := r.store.transact(ctx, writes); err != nil {
		if positions, ok := failedConditions(err); ok && len(positions) > 0 {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete employee: %w", err)
	}
	return nil
}

// DynamoAttendanceRepository implements domain.AttendanceRepository on DynamoDB
type DynamoAttendanceRepository struct {
	store *DynamoStore
}

func (r *DynamoAttendanceRepository) Create(ctx context.Context, record *domain.AttendanceRecord) error {
	s := r.store
	now := s.now()
	item := attendanceItem{
		Type:        itemAttendance,
		ID:          uuid.NewString(),
		EmployeeRef: record.EmployeeRef,
		Date:        record.Date.Unix(),
		Status:      string(record.Status),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item.PK = attendancePK(item.ID)

	guard, err := s.putNew(guardItem{
		PK:   attendanceDayPK(record.EmployeeRef, record.Date),
		Type: itemGuard,
		Ref:  item.ID,
	})
	if err != nil {
		return err
	}
	put, err := s.putNew(item)
	if err != nil {
		return err
	}

	if err := s.transact(ctx, []types.TransactWriteItem{guard, put}); err != nil {
		if positions, ok := failedConditions(err); ok && len(positions) > 0 {
			if positions[0] == 0 {
				return domain.NewDuplicateKeyError(domain.KeyAttendanceDay)
			}
			return fmt.Errorf("%w: attendance id collision", domain.ErrDuplicate)
		}
		s.logger.Error("failed to create attendance",
			slog.String("employee_ref", record.EmployeeRef),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create attendance: %w", err)
	}

	record.ID = item.ID
	record.CreatedAt = now
	record.UpdatedAt = now
	return nil
}

func (r *DynamoAttendanceRepository) ExistsInRange(ctx context.Context, employeeRef string, from, to time.Time) (bool, error) {
	raw, err := r.store.scanType(ctx, itemAttendance, attendanceConditions(domain.AttendanceFilter{
		EmployeeRef: employeeRef,
		From:        from,
		To:          to,
	})...)
	if err != nil {
		return false, fmt.Errorf("failed to check attendance: %w", err)
	}
	return len(raw) > 0, nil
}

func attendanceConditions(filter domain.AttendanceFilter) []expression.ConditionBuilder {
	var conds []expression.ConditionBuilder
	if filter.EmployeeRef != "" {
		conds = append(conds, expression.Name("employeeRef").Equal(expression.Value(filter.EmployeeRef)))
	}
	if !filter.From.IsZero() {
		conds = append(conds, expression.Name("date").GreaterThanEqual(expression.Value(filter.From.Unix())))
	}
	if !filter.To.IsZero() {
		conds = append(conds, expression.Name("date").LessThan(expression.Value(filter.To.Unix())))
	}
	return conds
}

func (r *DynamoAttendanceRepository) GetByID(ctx context.Context, id string) (*domain.AttendanceView, error) {
	var item attendanceItem
	found, err := r.store.getItem(ctx, attendancePK(id), &item)
	if err != nil {
		return nil, fmt.Errorf("failed to get attendance: %w", err)
	}
	if !found {
		return nil, domain.ErrNotFound
	}

	views, err := r.join(ctx, []attendanceItem{item})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (r *DynamoAttendanceRepository) List(ctx context.Context, filter domain.AttendanceFilter) ([]*domain.AttendanceView, error) {
	raw, err := r.store.scanType(ctx, itemAttendance, attendanceConditions(filter)...)
	if err != nil {
		r.store.logger.Error("failed to list attendance", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to list attendance: %w", err)
	}

	var items []attendanceItem
	if err := attributevalue.UnmarshalListOfMaps(raw, &items); err != nil {
		return nil, fmt.Errorf("failed to unmarshal attendance items: %w", err)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].Date != items[j].Date {
			return items[i].Date > items[j].Date
		}
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return r.join(ctx, items)
}

// join attaches employee summaries, looking each employee up once.
func (r *DynamoAttendanceRepository) join(ctx context.Context, items []attendanceItem) ([]*domain.AttendanceView, error) {
	employees := map[string]*domain.EmployeeSummary{}
	views := make([]*domain.AttendanceView, 0, len(items))
	for i := range items {
		ref := items[i].EmployeeRef
		summary, seen := employees[ref]
		if !seen {
			var e employeeItem
			found, err := r.store.getItem(ctx, employeePK(ref), &e)
			if err != nil {
				return nil, fmt.Errorf("failed to join employee: %w", err)
			}
			if found {
				summary = &domain.EmployeeSummary{ID: e.ID, EmployeeID: e.EmployeeID, FullName: e.FullName}
			}
			employees[ref] = summary
		}
		views = append(views, &domain.AttendanceView{
			AttendanceRecord: items[i].toRecord(),
			Employee:         summary,
		})
	}
	return views, nil
}

func (r *DynamoAttendanceRepository) Delete(ctx context.Context, id string) error {
	var item attendanceItem
	found, err := r.store.getItem(ctx, attendancePK(id), &item)
	if err != nil {
		return fmt.Errorf("failed to get attendance: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}

	del, err := r.store.deleteExisting(attendancePK(id))
	if err != nil {
		return err
	}
	day := time.Unix(item.Date, 0)
	writes := []types.TransactWriteItem{del, r.store.deleteAny(attendanceDayPK(item.EmployeeRef, day))}
	if err := r.store.transact(ctx, writes); err != nil {
		if positions, ok := failedConditions(err); ok && len(positions) > 0 {
			return domain.ErrNotFound
		}
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	return nil
}

var (
	_ domain.EmployeeRepository   = (*DynamoEmployeeRepository)(nil)
	_ domain.AttendanceRepository = (*DynamoAttendanceRepository)(nil)
)
