package datasource

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/router-for-me/CodegenAdmin/internal/db"
	"github.com/router-for-me/CodegenAdmin/internal/introspect"
	"github.com/router-for-me/CodegenAdmin/internal/models"
	"github.com/router-for-me/CodegenAdmin/internal/tenant"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Lookup resolves a data source visible to scope.
type Lookup interface {
	DataSourceByID(ctx context.Context, scope tenant.Scope, id uint64) (*models.DataSource, error)
}

// OpenFunc opens a connection for a DSN.
type OpenFunc func(dsn string) (*gorm.DB, error)

type cachedConn struct {
	conn *gorm.DB
	dsn  string
}

// Manager keeps one pooled connection per data source.
// A nil data source id means the primary application database.
type Manager struct {
	primary *gorm.DB
	lookup  Lookup
	open    OpenFunc

	mu    sync.Mutex
	conns map[uint64]cachedConn
}

// NewManager creates a manager over the primary connection.
func NewManager(primary *gorm.DB, lookup Lookup) *Manager {
	return &Manager{
		primary: primary,
		lookup:  lookup,
		open:    db.Open,
		conns:   make(map[uint64]cachedConn),
	}
}

// WithOpener replaces the connection opener.
func (m *Manager) WithOpener(open OpenFunc) *Manager {
	if open != nil {
		m.open = open
	}
	return m
}

// Conn returns the connection for dataSourceID.
func (m *Manager) Conn(ctx context.Context, scope tenant.Scope, dataSourceID *uint64) (*gorm.DB, error) {
	if dataSourceID == nil || *dataSourceID == 0 {
		if m.primary == nil {
			return nil, errors.New("datasource: primary connection is not configured")
		}
		return m.primary, nil
	}
	if m.lookup == nil {
		return nil, errors.New("datasource: lookup is not configured")
	}
	ds, errFind := m.lookup.DataSourceByID(ctx, scope, *dataSourceID)
	if errFind != nil {
		return nil, errFind
	}
	dsn, errDSN := BuildDSN(*ds)
	if errDSN != nil {
		return nil, errDSN
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.conns[ds.ID]; ok {
		if cached.dsn == dsn {
			return cached.conn, nil
		}
		closeConn(ds.ID, cached.conn)
		delete(m.conns, ds.ID)
	}
	conn, errOpen := m.open(dsn)
	if errOpen != nil {
		return nil, fmt.Errorf("datasource: open %s: %w", ds.Name, errOpen)
	}
	m.conns[ds.ID] = cachedConn{conn: conn, dsn: dsn}
	log.WithFields(log.Fields{"data_source_id": ds.ID, "type": ds.Type}).Info("data source connection opened")
	return conn, nil
}

// Introspector returns an introspector for dataSourceID.
func (m *Manager) Introspector(ctx context.Context, scope tenant.Scope, dataSourceID *uint64) (introspect.Introspector, error) {
	conn, errConn := m.Conn(ctx, scope, dataSourceID)
	if errConn != nil {
		return nil, errConn
	}
	schema := ""
	if dataSourceID != nil && *dataSourceID != 0 {
		if ds, errFind := m.lookup.DataSourceByID(ctx, scope, *dataSourceID); errFind == nil {
			schema = ds.Schema
		}
	}
	return introspect.New(conn, schema), nil
}

// Evict closes and forgets the cached connection of a data source.
func (m *Manager) Evict(dataSourceID uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cached, ok := m.conns[dataSourceID]; ok {
		closeConn(dataSourceID, cached.conn)
		delete(m.conns, dataSourceID)
	}
}

// Close closes every cached data source connection. The primary connection is left open.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, cached := range m.conns {
		closeConn(id, cached.conn)
	}
	m.conns = make(map[uint64]cachedConn)
}

func closeConn(id uint64, conn *gorm.DB) {
	if conn == nil {
		return
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return
	}
	if errClose := sqlDB.Close(); errClose != nil {
		log.WithError(errClose).WithField("data_source_id", id).Warn("close data source connection failed")
	}
}

// CheckConnection opens ds, pings it and closes it again.
func CheckConnection(ctx context.Context, ds models.DataSource) error {
	if errValidate := Validate(&ds); errValidate != nil {
		return errValidate
	}
	dsn, errDSN := BuildDSN(ds)
	if errDSN != nil {
		return errDSN
	}
	if !dialectMatches(ds.Type, dsn) {
		return fmt.Errorf("datasource: dsn does not match type %s", ds.Type)
	}
	conn, errOpen := db.Open(dsn)
	if errOpen != nil {
		return fmt.Errorf("datasource: failed to connect to database: %w", errOpen)
	}
	sqlDB, errDB := conn.DB()
	if errDB != nil {
		return fmt.Errorf("datasource: failed to get sql db: %w", errDB)
	}
	defer func() {
		if errClose := sqlDB.Close(); errClose != nil {
			log.Errorf("sql db close error: %v", errClose)
		}
	}()
	return sqlDB.PingContext(ctx)
}
