package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/i474232898/weather-audit/internal/storage"
)

// Provisioner lazily creates the log table and blob container. The
// underlying work runs at most once per process; concurrent first
// callers all wait on that single execution, and its outcome (including
// a failure) is replayed to every later caller.
type Provisioner struct {
	logs  storage.LogStore
	blobs storage.ObjectStore
	log   *zap.Logger

	once sync.Once
	err  error
}

// NewProvisioner creates a Provisioner over the given stores.
func NewProvisioner(logs storage.LogStore, blobs storage.ObjectStore, log *zap.Logger) *Provisioner {
	return &Provisioner{
		logs:  logs,
		blobs: blobs,
		log:   log,
	}
}

// EnsureReady provisions the storage resources on first call and returns
// the memoized outcome afterwards.
func (p *Provisioner) EnsureReady(ctx context.Context) error {
	p.once.Do(func() {
		p.log.Info("checking and creating storage resources")

		if err := p.logs.EnsureTable(ctx); err != nil {
			p.err = err
			return
		}
		if err := p.blobs.EnsureContainer(ctx); err != nil {
			p.err = err
			return
		}

		p.log.Info("storage resources initialized")
	})
	return p.err
}
