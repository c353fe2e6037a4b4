package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/yourorg/hrmslite/internal/domain"
	"github.com/yourorg/hrmslite/internal/handler"
	"github.com/yourorg/hrmslite/internal/infrastructure/dynamo"
	"github.com/yourorg/hrmslite/internal/infrastructure/mongodb"
	"github.com/yourorg/hrmslite/internal/reliability/retry"
	"github.com/yourorg/hrmslite/internal/repository"
	"github.com/yourorg/hrmslite/pkg/config"
	"github.com/yourorg/hrmslite/pkg/database"
)

// store is the persistence backend selected by STORE_DRIVER
type store struct {
	employees  domain.EmployeeRepository
	attendance domain.AttendanceRepository
	check      handler.Pinger
	close      func() error
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (*store, error) {
	backoff := retry.ConnectConfig(cfg.ConnectAttempts)

	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := retry.Do(ctx, backoff, log, "connect postgres", func(ctx context.Context) (*database.ConnectionPool, error) {
			return database.NewConnectionPool(ctx, &database.Config{URL: cfg.DatabaseURL}, log)
		})
		if err != nil {
			return nil, err
		}
		if err := pool.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &store{
			employees:  repository.NewPostgresEmployeeRepository(pool.GetDB(), log),
			attendance: repository.NewPostgresAttendanceRepository(pool.GetDB(), log),
			check:      pool,
			close:      pool.Close,
		}, nil

	case config.DriverMongo:
		client, err := retry.Do(ctx, backoff, log, "connect mongo", func(ctx context.Context) (*mongodb.Client, error) {
			return mongodb.NewClient(ctx, cfg.MongoURI, cfg.MongoDB, log)
		})
		if err != nil {
			return nil, err
		}
		if err := client.EnsureIndexes(ctx); err != nil {
			client.Close()
			return nil, err
		}
		return &store{
			employees:  repository.NewMongoEmployeeRepository(client.Database(), log),
			attendance: repository.NewMongoAttendanceRepository(client.Database(), log),
			check:      client,
			close:      client.Close,
		}, nil

	case config.DriverDynamo:
		dcfg := dynamo.Config{Region: cfg.AWSRegion, Table: cfg.DynamoTable, Endpoint: cfg.DynamoURL}
		client, err := retry.Do(ctx, backoff, log, "connect dynamodb", func(ctx context.Context) (*dynamodb.Client, error) {
			client, err := dynamo.NewClient(ctx, dcfg)
			if err != nil {
				return nil, err
			}
			if err := dynamo.EnsureTable(ctx, client, dcfg.Table, log); err != nil {
				return nil, err
			}
			return client, nil
		})
		if err != nil {
			return nil, err
		}
		ds := repository.NewDynamoStore(client, dcfg.Table, log)
		return &store{
			employees:  ds.Employees(),
			attendance: ds.Attendance(),
			check:      ds,
			close:      func() error { return nil },
		}, nil

	case config.DriverMemory:
		log.Warn("using in-memory store; data is lost on restart")
		ms := repository.NewMemoryStore()
		return &store{
			employees:  ms.Employees(),
			attendance: ms.Attendance(),
			check:      ms,
			close:      func() error { return nil },
		}, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
