package offer

// Result of considering a work item on a node. Everything but Accepted is a rejection reason.
type Result int

const (
	Accepted Result = iota
	NodeOffline
	NodePaused
	NodeNotReady
	NoOffers
	NotEnoughCpus
	NotEnoughMem
	NotEnoughDisk
	NoNodesAvailable
)

func (r Result) String() string {
	return [...]string{
		"ACCEPTED",
		"NODE_OFFLINE",
		"NODE_PAUSED",
		"NODE_NOT_READY",
		"NO_OFFERS",
		"NOT_ENOUGH_CPUS",
		"NOT_ENOUGH_MEM",
		"NOT_ENOUGH_DISK",
		"NO_NODES_AVAILABLE",
	}[r]
}

func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Order in which equally common rejections are reported.
var rejectionPreference = []Result{NotEnoughCpus, NotEnoughMem, NotEnoughDisk, NoOffers, NodeNotReady, NodePaused, NodeOffline}

// mostCommonRejection picks the reason most nodes gave. With no node considered at all there
// are no nodes available.
func mostCommonRejection(counts map[Result]int) Result {
	best, bestCount := NoNodesAvailable, 0
	for _, r := range rejectionPreference {
		if counts[r] > bestCount {
			best, bestCount = r, counts[r]
		}
	}
	return best
}
