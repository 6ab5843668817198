package cmd

import (
	"fmt"

	"github.com/spf13/viper"

	"dataforge/internal/batch"
	"dataforge/internal/diag"
	"dataforge/internal/dialect"
	"dataforge/internal/schema"
	"dataforge/internal/snapshot"
	"dataforge/internal/store"
)

// stack wires the shared components on top of the DB connection opened by
// RootCmd. Every command uses the same registry, store and processor so the
// CLI and API paths cannot drift apart.
type stack struct {
	reg   *schema.Registry
	store *store.SQLStore
	proc  *batch.Processor
	snaps *snapshot.Manager
	sink  diag.Sink
}

func buildStack(withSink bool) (*stack, error) {
	reg := schema.NewRegistry()
	st := store.New(DB, dialect.GetDialect(DriverName))

	var sink diag.Sink = diag.Nop{}
	if withSink {
		fs, err := diag.OpenFileSink(viper.GetString("diagnostics.path"))
		if err != nil {
			return nil, fmt.Errorf("open diagnostics sink: %w", err)
		}
		sink = fs
	}

	return &stack{
		reg:   reg,
		store: st,
		proc:  batch.NewProcessor(reg, st, sink),
		snaps: snapshot.NewManager(st, reg, viper.GetString("backup.dir")),
		sink:  sink,
	}, nil
}

func (s *stack) close() {
	if c, ok := s.sink.(*diag.FileSink); ok {
		c.Close()
	}
}
