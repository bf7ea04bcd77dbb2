// Package setup seeds a store with demo job types and queued executions, for running the
// scheduler against the simulated cluster.
package setup

import (
	"context"
	"fmt"

	uuid "github.com/nu7hatch/gouuid"
	log "github.com/sirupsen/logrus"

	"github.com/ngageoint/scale/scheduler/job"
	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/store"
)

// DemoJobTypes is the catalog seeded by SeedDemoWork.
func DemoJobTypes() []*job.JobType {
	return []*job.JobType{
		{Name: "scale-ingest", Resources: resources.Resources{Cpus: 1, Mem: 1024, DiskTotal: 2048}},
		{Name: "scale-parse", Resources: resources.Resources{Cpus: 2, Mem: 4096, DiskTotal: 1024}},
		{Name: "scale-export", MaxScheduled: 5, Resources: resources.Resources{Cpus: 0.5, Mem: 512}},
	}
}

// SeedDemoWork puts the demo catalog and n queued executions spread over its types. Ingest work
// is the most important.
func SeedDemoWork(ctx context.Context, s store.Seeder, scaleImage string, n int) error {
	types := DemoJobTypes()
	if err := s.PutJobTypes(ctx, types...); err != nil {
		return err
	}
	items := make([]*job.QueuedExecution, 0, n)
	for i := 0; i < n; i++ {
		jt := types[i%len(types)]
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		items = append(items, &job.QueuedExecution{
			ID:       id.String(),
			JobType:  jt.Name,
			Priority: 100 + 10*(i%len(types)),
			Required: jt.Resources,
			Steps:    job.DefaultSteps(scaleImage, jt.Name+":latest", fmt.Sprintf("%s --input=file-%d", jt.Name, i)),
		})
	}
	if err := s.Enqueue(ctx, items...); err != nil {
		return err
	}
	log.WithFields(log.Fields{"types": len(types), "executions": n}).Info("Seeded demo work")
	return nil
}
