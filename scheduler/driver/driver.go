// Package driver is the boundary to the cluster manager. The scheduler issues commands through
// Driver and receives offers and status updates through Callbacks.
package driver

//go:generate mockgen -source=driver.go -package=driver -destination=driver_mock.go

import (
	"context"

	"github.com/ngageoint/scale/scheduler/resources"
	"github.com/ngageoint/scale/scheduler/task"
)

// Driver sends commands to the cluster manager.
type Driver interface {
	// LaunchTasks launches tasks using every given offer, all on one agent.
	LaunchTasks(ctx context.Context, offerIDs []string, tasks []task.Spec) error

	// DeclineOffer returns an unused offer.
	DeclineOffer(ctx context.Context, offerID string) error

	KillTask(ctx context.Context, taskID string) error

	// ReconcileTasks asks for the current status of the tasks, delivered as status updates.
	ReconcileTasks(ctx context.Context, taskIDs []string) error
}

// Callbacks receives the asynchronous events of the cluster manager.
type Callbacks interface {
	OnOffers(offers []*resources.Offer)
	OnOffersRescinded(offerIDs []string)
	OnStatusUpdate(u *task.Update)
	OnAgentLost(agentID string)
}
