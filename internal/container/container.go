// Package container provides dependency injection for the myadmin engine.
// It centralizes the creation and wiring of the logger, the ledger store and
// the engine service, making them explicit and testable.
package container

import (
	"errors"
	"fmt"

	"github.com/PeterGeers/myAdmin-sub005/internal/config"
	"github.com/PeterGeers/myAdmin-sub005/internal/engine"
	"github.com/PeterGeers/myAdmin-sub005/internal/ledger"
	"github.com/PeterGeers/myAdmin-sub005/internal/logging"
	"github.com/PeterGeers/myAdmin-sub005/internal/tenant"
)

// Container holds all application dependencies and provides methods to access them.
//
// Container is immutable after creation: all fields are private and can only
// be accessed through getter methods.
type Container struct {
	logger   logging.Logger
	config   *config.Config
	store    ledger.Store
	resolver tenant.Resolver
	service  *engine.Service
}

// NewContainer creates and wires all application dependencies. The ledger
// store is opened from cfg.Store and tenants are authorized from the request
// context.
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}

	// Create logger first as it's needed by other components
	logger := logging.NewLogrusAdapter(cfg.Log.Level, cfg.Log.Format)

	store, err := ledger.Open(cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open ledger store: %w", err)
	}

	return NewContainerWithStore(cfg, store, tenant.ContextResolver{}, logger)
}

// NewContainerWithStore wires the service around an already opened store.
// The container takes ownership of store and closes it in Close.
func NewContainerWithStore(cfg *config.Config, store ledger.Store, resolver tenant.Resolver, logger logging.Logger) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	if store == nil {
		return nil, fmt.Errorf("ledger store cannot be nil")
	}
	logger = logging.OrNop(logger)

	service := engine.NewService(store, resolver, engine.Options{Config: cfg}, logger)

	logger.Info("Container initialized successfully",
		logging.Field{Key: logging.FieldStoreDriver, Value: cfg.Store.Driver},
		logging.Field{Key: "cache_ttl", Value: cfg.Cache.TTL.String()})

	return &Container{
		logger:   logger,
		config:   cfg,
		store:    store,
		resolver: resolver,
		service:  service,
	}, nil
}

// GetLogger returns the container's logger instance.
func (c *Container) GetLogger() logging.Logger {
	return c.logger
}

// GetConfig returns the container's configuration instance.
func (c *Container) GetConfig() *config.Config {
	return c.config
}

// GetStore returns the ledger store.
func (c *Container) GetStore() ledger.Store {
	return c.store
}

// GetService returns the engine service.
func (c *Container) GetService() *engine.Service {
	return c.service
}

// Close stops the service caches and closes the ledger store.
func (c *Container) Close() error {
	err := errors.Join(c.service.Close(), c.store.Close())
	c.logger.Info("Container closed")
	return err
}
