package stats

/*
This file defines all the metrics being collected. As new metrics are added please follow this pattern.
*/

const (
	/************************* Scheduling loop metrics **************************/
	/*
		time spent in one scheduling loop iteration
	*/
	SchedLoopLatency_ms = "schedLoopLatency_ms"

	/*
		number of loop iterations that launched nothing and backed off
	*/
	SchedIdleIterationsCounter = "schedIdleIterationsCounter"

	/*
		number of tasks (node maintenance and job) handed to the driver
	*/
	SchedLaunchedTasksCounter = "schedLaunchedTasksCounter"

	/*
		number of driver LaunchTasks calls that failed after retries
	*/
	SchedLaunchErrCounter = "schedLaunchErrCounter"

	/*
		number of offers returned to the cluster manager
	*/
	SchedDeclinedOffersCounter = "schedDeclinedOffersCounter"

	/*
		number of queued work items scheduled onto nodes
	*/
	SchedNewWorkScheduledCounter = "schedNewWorkScheduledCounter"

	/*
		number of failures persisting newly scheduled work (after retries)
	*/
	SchedScheduleWorkErrCounter = "schedScheduleWorkErrCounter"

	/*
		admission rejections, scoped by reason code
	*/
	SchedRejectedWorkCounter = "schedRejectedWorkCounter"

	/*
		number of queued items left waiting because the iteration limit was reached
	*/
	SchedQueueLimitReachedCounter = "schedQueueLimitReachedCounter"

	/*
		number of tasks that hit the staging or running timeout
	*/
	SchedTaskTimeoutsCounter = "schedTaskTimeoutsCounter"

	/*
		number of tasks sent for reconciliation
	*/
	SchedReconcileTasksCounter = "schedReconcileTasksCounter"

	/*
		number of task updates received from the driver
	*/
	SchedTaskUpdatesCounter = "schedTaskUpdatesCounter"

	/*
		number of agents reported lost
	*/
	SchedLostAgentsCounter = "schedLostAgentsCounter"

	/*
		number of running job executions
	*/
	SchedRunningExecutionsGauge = "schedRunningExecutionsGauge"

	/*
		number of launched, not yet terminal, tasks
	*/
	SchedActiveTasksGauge = "schedActiveTasksGauge"

	/************************* Cluster metrics **************************/
	/*
		number of nodes known to the scheduler, scoped by node state
	*/
	ClusterNodesGauge = "clusterNodesGauge"

	/*
		cluster-wide offered resources, scoped by resource name
	*/
	ClusterOfferedResourcesGauge = "clusterOfferedResources"

	/*
		cluster-wide resources consumed by tasks, scoped by resource name
	*/
	ClusterTaskResourcesGauge = "clusterTaskResources"

	/*
		cluster-wide watermark resources, scoped by resource name
	*/
	ClusterWatermarkResourcesGauge = "clusterWatermarkResources"

	/*
		number of offers currently held by the scheduler
	*/
	ClusterHeldOffersGauge = "clusterHeldOffersGauge"
)
