package submit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/goliatone/go-storeform/pkg/client"
	"github.com/goliatone/go-storeform/pkg/state"
)

// ErrLookupFailed marks a Load error caused only by lookup lists; the record
// itself, if any, was applied.
var ErrLookupFailed = errors.New("submit: lookup failed")

// maxParallelFetches bounds the record and lookup requests issued on mount.
const maxParallelFetches = 4

// Load fetches the record (when id is set) and every lookup list in
// parallel. Results are applied as they arrive and dropped once the store is
// unmounted. After everything settles, fields whose validity depends on
// lookup data are re-validated. A record failure takes precedence over lookup
// failures, which wrap ErrLookupFailed. The error is shown as a toast; the
// other fetches still complete.
func (c *Coordinator) Load(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id != "" {
		if err := c.store.SetID(id); err != nil {
			return err
		}
	}

	var (
		g         errgroup.Group
		recordErr error
	)
	g.SetLimit(maxParallelFetches)

	if id != "" && c.form.Endpoints.GetByID != "" {
		g.Go(func() error {
			record, err := c.api.GetByID(ctx, c.form.Endpoints.GetByID, id)
			if err != nil {
				recordErr = fmt.Errorf("load %s %s: %w", c.form.Entity, id, err)
				return recordErr
			}
			if err := c.store.Hydrate(record); err != nil && !errors.Is(err, state.ErrUnmounted) {
				recordErr = err
				return err
			}
			return nil
		})
	}

	for name, path := range c.form.Lookups {
		if err := c.store.BeginLookup(name); err != nil {
			return err
		}
		g.Go(func() error {
			items, err := c.api.List(ctx, path)
			if err != nil {
				_ = c.store.FailLookup(name, err)
				return fmt.Errorf("%w: %s: %w", ErrLookupFailed, name, err)
			}
			_ = c.store.ResolveLookup(name, items)
			return nil
		})
	}

	err := g.Wait()
	if recordErr != nil {
		err = recordErr
	}
	if !c.store.Mounted() {
		return nil
	}
	if err != nil {
		c.logger.Warn("load failed", zap.Error(err))
		c.sink.RemoveAll()
		c.sink.Error(loadMessage(err))
	}
	c.revalidateDependents()
	return err
}

// revalidateDependents re-checks populated lookup-backed and dependent
// fields once both the record and the lists are present.
func (c *Coordinator) revalidateDependents() {
	values := c.store.Values()
	var names []string
	for _, field := range c.form.Fields {
		if field.Lookup == "" && field.DependsOn == "" {
			continue
		}
		if text, ok := values[field.Name].(string); ok && text == "" {
			continue
		}
		names = append(names, field.Name)
	}
	if len(names) > 0 {
		c.Touch(names...)
	}
}

func loadMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	if errors.Is(err, client.ErrTransport) {
		return MessageTransport
	}
	return MessageFailed
}
