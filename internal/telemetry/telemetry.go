// Package telemetry exports bot accuracy and aim decisions to InfluxDB.
// When the server cannot be reached, points are appended in line protocol
// to a gzip backup file instead.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/OCAP2/combatbot/internal/config"
	"github.com/OCAP2/combatbot/internal/dispatcher"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
)

// ErrDisabled is returned by Connect when InfluxDB export is turned off.
var ErrDisabled = errors.New("influx telemetry disabled")

// CommandSample is the dispatcher command samples are submitted under.
const CommandSample = "telemetry:sample"

// DecisionBucket receives one point per aim decision.
const DecisionBucket = "bot_decisions"

const retentionSeconds = 60 * 60 * 24 * 30

// Manager handles InfluxDB connections and writes.
type Manager struct {
	cfg        config.InfluxConfig
	logger     zerolog.Logger
	backupPath string

	mu         sync.Mutex
	client     influxdb2.Client
	writers    map[string]influxdb2_api.WriteAPI
	backupFile *os.File
	backup     *gzip.Writer
	valid      bool
}

// NewManager creates a manager for cfg. backupPath is where points go when
// the server is unreachable.
func NewManager(log zerolog.Logger, cfg config.InfluxConfig, backupPath string) *Manager {
	return &Manager{
		cfg:        cfg,
		logger:     log,
		backupPath: backupPath,
		writers:    make(map[string]influxdb2_api.WriteAPI),
	}
}

// Buckets lists the buckets points are written to.
func (m *Manager) Buckets() []string {
	return []string{m.cfg.Bucket, DecisionBucket}
}

// Valid reports whether points go to a live server.
func (m *Manager) Valid() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.valid
}

// Connect pings the server, creating the organization and buckets when it
// answers. Otherwise the backup file is opened.
func (m *Manager) Connect(ctx context.Context) error {
	if !m.cfg.Enabled {
		return ErrDisabled
	}

	m.client = influxdb2.NewClientWithOptions(
		fmt.Sprintf("%s://%s:%s", m.cfg.Protocol, m.cfg.Host, m.cfg.Port),
		m.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := m.client.Ping(ctx)
	if err != nil || !running {
		m.logger.Warn().Str("backupPath", m.backupPath).
			Msg("InfluxDB unreachable, writing to backup file")
		return m.OpenBackup()
	}

	if err := m.setupOrganizationAndBuckets(ctx); err != nil {
		return err
	}
	m.createWriters()

	m.mu.Lock()
	m.valid = true
	m.mu.Unlock()
	m.logger.Info().Msg("InfluxDB client initialized")
	return nil
}

// OpenBackup opens the gzip backup file for appending.
func (m *Manager) OpenBackup() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.backup != nil {
		return nil
	}

	file, err := os.OpenFile(m.backupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	m.backupFile = file
	m.backup = gzip.NewWriter(file)
	return nil
}

func (m *Manager) setupOrganizationAndBuckets(ctx context.Context) error {
	orgs := m.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, m.cfg.Org)
	if err != nil {
		m.logger.Info().Str("org", m.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, m.cfg.Org)
		if err != nil {
			return fmt.Errorf("error creating organization %s: %w", m.cfg.Org, err)
		}
	}

	buckets := m.client.BucketsAPI()
	for _, bucket := range m.Buckets() {
		if _, err := buckets.FindBucketByName(ctx, bucket); err == nil {
			continue
		}
		m.logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

		rule := domain.RetentionRuleTypeExpire
		_, err = buckets.CreateBucketWithName(ctx, org, bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionSeconds,
		})
		if err != nil {
			return fmt.Errorf("error creating bucket %s: %w", bucket, err)
		}
	}
	return nil
}

func (m *Manager) createWriters() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bucket := range m.Buckets() {
		w := m.client.WriteAPI(m.cfg.Org, bucket)
		m.writers[bucket] = w

		go func(bucket string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.logger.Error().Err(writeErr).Str("bucket", bucket).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, w.Errors())
	}
	m.logger.Debug().Int("buckets", len(m.writers)).Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or to the backup file.
func (m *Manager) WritePoint(bucket string, point *influxdb2_write.Point) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.valid {
		w, ok := m.writers[bucket]
		if !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		w.WritePoint(point)
		return nil
	}

	if m.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := m.backup.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

// Register subscribes the manager to samples on d. Samples are written
// from a buffered worker so the frame loop never waits on the network.
// Without a live server the worker only appends to the backup file, so a
// full queue holds the sender back instead of dropping samples.
func (m *Manager) Register(d *dispatcher.Dispatcher, queue int) {
	opts := []dispatcher.Option{dispatcher.Buffered(queue)}
	if !m.Valid() {
		opts = append(opts, dispatcher.Blocking())
	}
	d.Register(CommandSample, m.handle, opts...)
}

func (m *Manager) handle(e dispatcher.Event) (any, error) {
	switch s := e.Payload.(type) {
	case AccuracySample:
		return nil, m.WritePoint(m.cfg.Bucket, s.Point())
	case DecisionSample:
		return nil, m.WritePoint(DecisionBucket, s.Point())
	default:
		return nil, fmt.Errorf("unsupported telemetry payload %T", e.Payload)
	}
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, w := range m.writers {
		w.Flush()
	}
	if m.client != nil {
		m.client.Close()
	}

	var errs []error
	if m.backup != nil {
		errs = append(errs, m.backup.Close())
		errs = append(errs, m.backupFile.Close())
		m.backup = nil
		m.backupFile = nil
	}
	m.valid = false
	return errors.Join(errs...)
}
