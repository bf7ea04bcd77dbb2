// Package bolt is a store.Store persisted in a single bbolt file, one bucket per record kind with
// JSON values.
package bolt

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sort"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"

	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/store"
)

const DBFile = "scheduler.db"

var (
	bucketNodes    = []byte("nodes")     // hostname -> store.NodeRecord
	bucketQueue    = []byte("queue")     // execution ID -> job.QueuedExecution
	bucketRunning  = []byte("running")   // execution ID -> store.ExecutionRecord
	bucketFinished = []byte("finished")  // execution ID -> store.ExecutionRecord
	bucketJobTypes = []byte("job_types") // name -> job.JobType
)

type Store struct {
	db  *bbolt.DB
	clk clock.Clock
}

var _ store.Store = (*Store)(nil)
var _ store.Seeder = (*Store)(nil)

// Open opens or creates the database in dataDir.
func Open(dataDir string, clk clock.Clock) (*Store, error) {
	path := filepath.Join(dataDir, DBFile)
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %s", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketNodes, bucketQueue, bucketRunning, bucketFinished, bucketJobTypes} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return errors.Wrapf(err, "creating bucket %s", b)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db, clk: clk}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func put(b *bbolt.Bucket, key string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return b.Put([]byte(key), data)
}

func get(b *bbolt.Bucket, key string, v interface{}) (bool, error) {
	data := b.Get([]byte(key))
	if data == nil {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errors.Wrapf(err, "decoding %s", key)
	}
	return true, nil
}

func (s *Store) LoadActiveNodes(ctx context.Context, hostnames []string) ([]store.NodeRecord, error) {
	wanted := make(map[string]bool, len(hostnames))
	for _, h := range hostnames {
		wanted[h] = true
	}
	var records []store.NodeRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketNodes).ForEach(func(k, v []byte) error {
			var rec store.NodeRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decoding node %s", k)
			}
			if rec.IsActive || wanted[rec.Hostname] {
				records = append(records, rec)
			}
			return nil
		})
	})
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, err
}

func (s *Store) CreateNodes(ctx context.Context, hostnames, agentIDs []string) ([]store.NodeRecord, error) {
	if len(hostnames) != len(agentIDs) {
		return nil, errors.Errorf("%d hostnames but %d agent IDs", len(hostnames), len(agentIDs))
	}
	var created []store.NodeRecord
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		for i, h := range hostnames {
			if b.Get([]byte(h)) != nil {
				return errors.Errorf("node %s already exists", h)
			}
			id, err := b.NextSequence()
			if err != nil {
				return errors.Wrap(err, "allocating node ID")
			}
			rec := store.NodeRecord{ID: int(id), Hostname: h, AgentID: agentIDs[i], IsActive: true}
			if err := put(b, h, rec); err != nil {
				return err
			}
			created = append(created, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) updateNode(hostname string, fn func(*store.NodeRecord)) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		var rec store.NodeRecord
		ok, err := get(b, hostname, &rec)
		if err != nil {
			return err
		}
		if !ok {
			return errors.Errorf("no node %s", hostname)
		}
		fn(&rec)
		return put(b, hostname, rec)
	})
}

func (s *Store) UpdateNodePause(ctx context.Context, hostname string, paused bool, reason string) error {
	return s.updateNode(hostname, func(rec *store.NodeRecord) {
		rec.IsPaused = paused
		rec.PauseReason = ""
		if paused {
			rec.PauseReason = reason
		}
	})
}

// SetNodeActive flips the active flag of a node record.
func (s *Store) SetNodeActive(hostname string, active bool) error {
	return s.updateNode(hostname, func(rec *store.NodeRecord) { rec.IsActive = active })
}

func (s *Store) LoadQueuedWork(ctx context.Context, filter store.QueueFilter, fn func(*job.QueuedExecution) bool) error {
	var queued []*job.QueuedExecution
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketQueue).ForEach(func(k, v []byte) error {
			q := &job.QueuedExecution{}
			if err := json.Unmarshal(v, q); err != nil {
				return errors.Wrapf(err, "decoding queued execution %s", k)
			}
			if filter.Includes(q) {
				queued = append(queued, q)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}
	sort.Slice(queued, func(i, j int) bool { return queued[i].Before(queued[j]) })
	for _, q := range queued {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !fn(q) {
			break
		}
	}
	return nil
}

func (s *Store) ScheduleWork(ctx context.Context, items []*job.QueuedExecution, assignments map[string]store.Assignment) ([]*job.RunningExecution, error) {
	now := s.clk.Now()
	var scheduled []*job.RunningExecution
	err := s.db.Update(func(tx *bbolt.Tx) error {
		queue, running := tx.Bucket(bucketQueue), tx.Bucket(bucketRunning)
		for _, item := range items {
			a, ok := assignments[item.ID]
			if !ok {
				continue
			}
			var q job.QueuedExecution
			ok, err := get(queue, item.ID, &q)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := queue.Delete([]byte(item.ID)); err != nil {
				return errors.Wrapf(err, "dequeuing %s", item.ID)
			}
			e := q.Schedule(a.AgentID, a.Hostname, now)
			if err := put(running, e.ID(), store.NewExecutionRecord(e)); err != nil {
				return err
			}
			scheduled = append(scheduled, e)
		}
		return nil
	})
	if err != nil {
		// The transaction rolled back, nothing was scheduled.
		return nil, err
	}
	return scheduled, nil
}

func (s *Store) LoadWorkTypeLimitsAndCounts(ctx context.Context) (*job.TypeLimits, error) {
	var types []*job.JobType
	counts := make(map[string]int)
	err := s.db.View(func(tx *bbolt.Tx) error {
		err := tx.Bucket(bucketJobTypes).ForEach(func(k, v []byte) error {
			jt := &job.JobType{}
			if err := json.Unmarshal(v, jt); err != nil {
				return errors.Wrapf(err, "decoding job type %s", k)
			}
			types = append(types, jt)
			return nil
		})
		if err != nil {
			return err
		}
		return tx.Bucket(bucketRunning).ForEach(func(k, v []byte) error {
			var rec store.ExecutionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decoding execution %s", k)
			}
			counts[rec.JobType]++
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return job.NewTypeLimits(types, counts), nil
}

func (s *Store) CompleteWork(ctx context.Context, finished []*job.RunningExecution) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		running, done := tx.Bucket(bucketRunning), tx.Bucket(bucketFinished)
		for _, e := range finished {
			if err := running.Delete([]byte(e.ID())); err != nil {
				return errors.Wrapf(err, "completing %s", e.ID())
			}
			if err := put(done, e.ID(), store.NewExecutionRecord(e)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) PutJobTypes(ctx context.Context, types ...*job.JobType) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketJobTypes)
		for _, jt := range types {
			if err := put(b, jt.Name, jt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) Enqueue(ctx context.Context, items ...*job.QueuedExecution) error {
	now := s.clk.Now()
	return s.db.Update(func(tx *bbolt.Tx) error {
		queue, running := tx.Bucket(bucketQueue), tx.Bucket(bucketRunning)
		for _, q := range items {
			if running.Get([]byte(q.ID)) != nil {
				return errors.Errorf("execution %s is already scheduled", q.ID)
			}
			c := *q
			if c.QueuedAt.IsZero() {
				c.QueuedAt = now
			}
			if err := put(queue, c.ID, &c); err != nil {
				return err
			}
		}
		return nil
	})
}

// Finished returns the completed execution records ordered by ID.
func (s *Store) Finished() ([]store.ExecutionRecord, error) {
	var records []store.ExecutionRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketFinished).ForEach(func(k, v []byte) error {
			var rec store.ExecutionRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return errors.Wrapf(err, "decoding execution %s", k)
			}
			records = append(records, rec)
			return nil
		})
	})
	return records, err
}
