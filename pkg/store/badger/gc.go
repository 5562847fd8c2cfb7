package badger

import (
	"time"

	badger "github.com/dgraph-io/badger/v4"

	"github.com/grovedata/grove/internal/logger"
)

// runValueLogGC is the background goroutine that periodically reclaims
// space in BadgerDB's value log.
//
// BadgerDB never compacts its value log on its own; deleted and
// overwritten values accumulate until RunValueLogGC rewrites the log
// files whose discardable fraction exceeds the ratio. Each tick keeps
// rewriting files until Badger reports there is nothing left worth
// rewriting (ErrNoRewrite).
//
// The goroutine runs until Close signals gcStop, and announces its exit
// on gcDone so Close can wait for in-progress rewrites to finish before
// closing the database underneath them.
func (d *BadgerDriver) runValueLogGC(interval time.Duration, ratio float64) {
	defer close(d.gcDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Debug("BadgerDB value log GC worker started: interval=%s ratio=%.2f", interval, ratio)

	for {
		select {
		case <-ticker.C:
			rewrites := 0
			for {
				err := d.db.RunValueLogGC(ratio)
				if err == nil {
					rewrites++
					continue
				}
				if err != badger.ErrNoRewrite {
					logger.Warn("BadgerDB value log GC failed: %v", err)
				}
				break
			}
			if rewrites > 0 {
				logger.Debug("BadgerDB value log GC rewrote %d file(s)", rewrites)
			}

		case <-d.gcStop:
			logger.Debug("BadgerDB value log GC worker stopping")
			return
		}
	}
}
