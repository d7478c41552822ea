package db

// DCSO HOSTNAMER
// Copyright (c) 2020, 2021, DCSO GmbH

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/DCSO/hostnamer/types"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"
)

var maxRetries = 20

const (
	// PostgresTimestampFormat is the format of timestamps in COPY input.
	PostgresTimestampFormat = "2006-01-02 15:04:05.999999-07"
	defaultFlushInterval    = 5 * time.Second
	defaultExpireInterval   = 1 * time.Hour
)

// PostgresSlurper is a Slurper that archives resolutions in a PostgreSQL
// database.
type PostgresSlurper struct {
	DB     *pgxpool.Pool
	DBUser string
	// CopyFn allows injecting a custom COPY executor for testing.
	// It should execute a COPY FROM STDIN using the provided SQL and reader and return rows copied.
	CopyFn func(ctx context.Context, pool *pgxpool.Pool, sql string, r io.Reader) (int64, error)
	// ExecFn allows injecting execution for DDL statements (e.g., CREATE TABLE ... GRANT ...)
	ExecFn         func(ctx context.Context, sql string) error
	TableName      string
	Retention      time.Duration
	ChunkSize      int
	FlushInterval  time.Duration
	ExpireInterval time.Duration
	Clock          clockwork.Clock
	Logger         *log.Entry
	StopChan       chan bool
	StoppedChan    chan bool
	cancel         context.CancelFunc
}

func newPostgresSlurper(user string, retention time.Duration, chunkSize int) *PostgresSlurper {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &PostgresSlurper{
		DBUser:         user,
		TableName:      DefaultTableName,
		Retention:      retention,
		ChunkSize:      chunkSize,
		FlushInterval:  defaultFlushInterval,
		ExpireInterval: defaultExpireInterval,
		Clock:          clockwork.NewRealClock(),
		Logger: log.WithFields(log.Fields{
			"domain":  "slurper",
			"slurper": "postgres",
		}),
	}
}

// MakePostgresSlurper connects to the given database and prepares the
// resolution table. A zero retention keeps resolutions forever.
func MakePostgresSlurper(ctx context.Context, host string, database string,
	user string, password string, retention time.Duration,
	chunkSize int) (*PostgresSlurper, error) {
	s := newPostgresSlurper(user, retention, chunkSize)
	dsn := fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable", user, password, host, database)
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pgx config: %w", err)
	}
	s.DB, err = pgxpool.ConnectConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	s.Logger.WithFields(log.Fields{
		"user":     user,
		"host":     host,
		"database": database,
	}).Info("connected to database")
	for i := 0; ; i++ {
		_, err = s.DB.Exec(ctx, SQLPing)
		if err == nil || i > maxRetries || !strings.Contains(err.Error(), "system is starting up") {
			break
		}
		s.Logger.Warnf("database not ready: %s -- retrying %d/%d",
			err.Error(), i, maxRetries)
		time.Sleep(10 * time.Second)
	}
	if err != nil {
		s.DB.Close()
		return nil, fmt.Errorf("permanent error checking database: %w", err)
	}
	if err = s.Prepare(ctx); err != nil {
		s.DB.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresSlurper) exec(ctx context.Context, sql string) error {
	if s.ExecFn != nil {
		return s.ExecFn(ctx, sql)
	}
	_, err := s.DB.Exec(ctx, sql)
	return err
}

func (s *PostgresSlurper) copy(ctx context.Context, sql string, r io.Reader) (int64, error) {
	if s.CopyFn != nil {
		return s.CopyFn(ctx, s.DB, sql, r)
	}
	conn, err := s.DB.Acquire(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to acquire connection for COPY: %w", err)
	}
	defer conn.Release()
	tag, err := conn.Conn().PgConn().CopyFrom(ctx, r, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Prepare creates the resolution table and its indexes if needed.
func (s *PostgresSlurper) Prepare(ctx context.Context) error {
	t := s.TableName
	if err := s.exec(ctx, fmt.Sprintf(SQLCreate, t, t, s.DBUser)); err != nil {
		return fmt.Errorf("error creating table %s: %w", t, err)
	}
	if err := s.exec(ctx, fmt.Sprintf(SQLIndex, t, t, t, t, t, t)); err != nil {
		return fmt.Errorf("error creating indexes on %s: %w", t, err)
	}
	return nil
}

func (s *PostgresSlurper) expire(ctx context.Context) {
	if s.Retention <= 0 {
		return
	}
	err := s.exec(ctx, fmt.Sprintf(SQLExpire, s.TableName, int64(s.Retention.Seconds())))
	if err != nil {
		s.Logger.WithError(err).Warn("error expiring old resolutions")
		return
	}
	s.Logger.Debug("old resolutions expired")
}

func (s *PostgresSlurper) flush(ctx context.Context, copybuf *bytes.Buffer, cnt int) {
	if cnt == 0 {
		return
	}
	defer copybuf.Reset()
	n, err := s.copy(ctx, fmt.Sprintf(SQLCopy, s.TableName), strings.NewReader(copybuf.String()))
	if err != nil {
		s.Logger.Warn(err)
		return
	}
	s.Logger.WithFields(log.Fields{
		"rows":  n,
		"table": s.TableName,
	}).Debug("COPY complete")
}

func (s *PostgresSlurper) slurpPostgres(ctx context.Context, hostchan chan types.Host) {
	defer close(s.StoppedChan)
	cnt := 0
	var copybuf bytes.Buffer
	flushTicker := s.Clock.NewTicker(s.FlushInterval)
	defer flushTicker.Stop()
	expireTicker := s.Clock.NewTicker(s.ExpireInterval)
	defer expireTicker.Stop()
	for {
		select {
		case <-s.StopChan:
			s.flush(ctx, &copybuf, cnt)
			return
		case <-flushTicker.Chan():
			s.flush(ctx, &copybuf, cnt)
			cnt = 0
		case <-expireTicker.Chan():
			s.expire(ctx)
		case h, ok := <-hostchan:
			if !ok {
				s.flush(ctx, &copybuf, cnt)
				return
			}
			if !h.Resolved || h.Name == "" {
				continue
			}
			copybuf.WriteString(s.Clock.Now().Format(PostgresTimestampFormat))
			copybuf.WriteString("\t")
			copybuf.WriteString(h.Address)
			copybuf.WriteString("\t")
			copybuf.WriteString(h.Name)
			copybuf.WriteString("\n")
			cnt++
			if cnt >= s.ChunkSize {
				s.flush(ctx, &copybuf, cnt)
				cnt = 0
			}
		}
	}
}

// Run starts a PostgresSlurper.
func (s *PostgresSlurper) Run(hostchan chan types.Host) {
	var ctx context.Context
	ctx, s.cancel = context.WithCancel(context.Background())
	s.StopChan = make(chan bool)
	s.StoppedChan = make(chan bool)
	go s.slurpPostgres(ctx, hostchan)
}

// Finish writes out buffered resolutions and stops the PostgresSlurper.
func (s *PostgresSlurper) Finish() {
	if s.StopChan == nil {
		return
	}
	close(s.StopChan)
	<-s.StoppedChan
	s.cancel()
	s.StopChan = nil
	if s.DB != nil {
		s.DB.Close()
	}
}
