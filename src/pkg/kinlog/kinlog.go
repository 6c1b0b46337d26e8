// FILE: src/pkg/kinlog/kinlog.go

// Package kinlog ships structured log events to a record stream through
// log/slog.
//
//	sh := kinlog.NewShipper(cfg, logger)
//	if err := sh.Start(); err != nil { ... }
//	defer sh.Stop()
//
//	klog := kinlog.NewHandler(sh).Logger("orders")
//	ctx, b := kinlog.Bind(ctx, "order_id", id)
//	defer b.Close()
//	klog.KInfo(ctx, "order_placed", "placed order {} for {}", id, customer)
package kinlog

import (
	"context"

	"kinlog/src/internal/config"
	"kinlog/src/internal/metadata"
	"kinlog/src/internal/shipper"

	"github.com/lixenwraith/log"
)

type (
	Config  = config.Config
	Shipper = shipper.Shipper
	Binding = metadata.Binding
)

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return config.Defaults()
}

// NewShipper creates an unstarted shipper from cfg
func NewShipper(cfg *Config, logger *log.Logger, opts ...shipper.Option) *Shipper {
	return shipper.NewFromConfig(cfg, logger, opts...)
}

// Bind adds key=value to every event logged with the returned context until
// the binding is closed. Chain more keys with Binding.And.
func Bind(ctx context.Context, key string, value any) (context.Context, *Binding) {
	return metadata.Bind(ctx, key, value)
}

// Fork gives a goroutine its own binding scope seeded with ctx's bindings
func Fork(ctx context.Context) context.Context {
	return metadata.Fork(ctx)
}

// AddGlobalMetadata sets a process-wide default. Bindings and call-site
// metadata override it.
func AddGlobalMetadata(key string, value any) {
	metadata.Default().Add(key, value)
}

func RemoveGlobalMetadata(key string) {
	metadata.Default().Remove(key)
}

func ClearGlobalMetadata() {
	metadata.Default().Clear()
}
