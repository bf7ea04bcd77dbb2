/*
package server provides ClusterScheduler which places queued job executions and node maintenance
tasks onto the offers of a cluster manager.

* Concepts *
Offer:
  Resources an agent makes available for a limited time. The scheduler holds offers until it launches
  with them or declines them. Offers held past the hold duration are the first ones used.

Node:
  A host known to the store. A node runs maintenance tasks (health check, cleanup, image pull) and only
  takes job executions once it is active, online, unpaused, cleaned and has the scale image.

Job execution:
  A queued item of a job type, run as pre/main/post steps on the node it was admitted on. Lower
  priority values are more important.

Reservation:
  A queued execution rejected for lack of cpus, memory or disk holds the best node against less
  important work for the rest of the iteration, so that big work is not starved by small work.

* Logic *
Scheduling Loop:
  Sync nodes with the store when agents appeared or the sync interval passed.
  Refresh the per agent resources and move new offers into the node ledgers.
  Admit node maintenance tasks, then the next step of running executions, then queued work in queue
  order on the best ranked node.
  Persist the admitted executions in one batch, then launch once per node.
  Record finished executions, time out stuck tasks and reconcile silent ones.
  An iteration that launched nothing declines every held offer and sleeps.

Node Preference:
  Ready nodes by ascending score, where the score counts the job type profiles the node could still
  fit after taking the work. Nodes reserved for more important work are skipped.
  Nodes that cannot take jobs come last so their rejection reason is reported.
*/
package server
