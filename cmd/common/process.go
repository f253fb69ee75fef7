// Package common contains shared functionality for command handlers
package common

import (
	"context"
	"fmt"
	"io"

	"github.com/PeterGeers/myAdmin-sub005/cmd/root"
	"github.com/PeterGeers/myAdmin-sub005/internal/container"
	"github.com/PeterGeers/myAdmin-sub005/internal/tenant"

	"gopkg.in/yaml.v3"
)

// OpenContainer wires the application from the loaded configuration. The
// caller must Close the returned container.
func OpenContainer() (*container.Container, error) {
	if root.AppConfig == nil {
		cfg, err := root.LoadConfig()
		if err != nil {
			return nil, err
		}
		root.AppConfig = cfg
	}

	c, err := container.NewContainer(root.AppConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize: %w", err)
	}
	return c, nil
}

// TenantContext authorizes ctx for the administrations named with --tenant.
func TenantContext(ctx context.Context) context.Context {
	return tenant.WithTenants(ctx, root.SharedFlags.Tenants...)
}

// CloseContainer closes c and logs a failure instead of returning it.
func CloseContainer(c *container.Container) {
	if err := c.Close(); err != nil {
		root.Log.WithError(err).Warn("Failed to close container")
	}
}

// WriteYAML prints v as a YAML document.
func WriteYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return enc.Close()
}
