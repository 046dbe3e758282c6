package failover

import (
	"math/rand"

	"github.com/nmslite/clusterguard/internal/hostinfo"
)

// Mode selects how the writer is treated relative to readers.
type Mode int

const (
	// Normal tries active readers, then the writer, then down hosts.
	Normal Mode = iota
	// StrictReader only falls back to the writer when there are zero readers.
	StrictReader
)

// hostsByPriority builds the ordered candidate list for failover:
// shuffled active readers, then the writer (unconditionally in Normal mode,
// only if there are no readers in StrictReader mode), then shuffled down
// hosts (spec.md §4.7 step 2).
func hostsByPriority(hosts []*hostinfo.Info, mode Mode) []*hostinfo.Info {
	var activeReaders, downHosts []*hostinfo.Info
	var writer *hostinfo.Info

	for _, h := range hosts {
		if h.Role == hostinfo.Writer {
			writer = h
			continue
		}
		if h.Availability == hostinfo.Available {
			activeReaders = append(activeReaders, h)
		} else {
			downHosts = append(downHosts, h)
		}
	}

	shuffle(activeReaders)
	shuffle(downHosts)

	numReaders := len(activeReaders) + len(downHosts)
	ordered := activeReaders
	if writer != nil && (mode == Normal || numReaders == 0) {
		ordered = append(ordered, writer)
	}
	ordered = append(ordered, downHosts...)
	return ordered
}

// readerHostsByPriority builds the candidate list for get_reader_connection:
// readers only, writer excluded entirely (spec.md §4.7).
func readerHostsByPriority(hosts []*hostinfo.Info) []*hostinfo.Info {
	var activeReaders, downHosts []*hostinfo.Info
	for _, h := range hosts {
		if h.Role == hostinfo.Writer {
			continue
		}
		if h.Availability == hostinfo.Available {
			activeReaders = append(activeReaders, h)
		} else {
			downHosts = append(downHosts, h)
		}
	}
	shuffle(activeReaders)
	shuffle(downHosts)
	return append(activeReaders, downHosts...)
}

func shuffle(hosts []*hostinfo.Info) {
	rand.Shuffle(len(hosts), func(i, j int) {
		hosts[i], hosts[j] = hosts[j], hosts[i]
	})
}
