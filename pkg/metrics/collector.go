package metrics

import (
	"time"

	"github.com/cuemby/docql/pkg/storage"
)

// Collector periodically samples store-wide gauges (database/table
// counts) that nothing in the request path touches on its own,
// mirroring the teacher's Collector ticking over manager state.
type Collector struct {
	store  storage.Store
	stopCh chan struct{}
}

// NewCollector returns a Collector sampling store.
func NewCollector(store storage.Store) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins periodic collection in a background goroutine.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectDatabaseMetrics()
}

func (c *Collector) collectDatabaseMetrics() {
	dbs, err := c.store.ListDatabases()
	if err != nil {
		return
	}
	DatabasesTotal.Set(float64(len(dbs)))

	tables := 0
	for _, db := range dbs {
		ts, err := c.store.ListTables(db)
		if err != nil {
			continue
		}
		tables += len(ts)
	}
	TablesTotal.Set(float64(tables))
}
