package detect

import (
	"sort"
	"sync"
	"time"
)

// webWindow is the fixed sliding window for the web-attack hit lists.
const webWindow = 60 * time.Second

// sweepIdle is how long a source may stay untouched before its state is
// evicted. Longer than every detection window, so eviction never loses a
// live window.
const sweepIdle = 5 * time.Minute

// portHit is one port access inside the port-scan window.
type portHit struct {
	port int
	ts   time.Time
}

// sourceState holds the sliding windows tracked for one source IP.
type sourceState struct {
	requestsPerPort map[int][]time.Time
	portAccess      []portHit
	synTimes        []time.Time
	ackTimes        []time.Time
	sqliHits        []time.Time
	xssHits         []time.Time

	lastTouched time.Time
}

// stateTable owns all per-source detector state. Every operation takes the
// packet timestamp explicitly so replayed captures behave like live ones.
type stateTable struct {
	mu      sync.Mutex
	sources map[string]*sourceState
}

func newStateTable() *stateTable {
	return &stateTable{sources: make(map[string]*sourceState)}
}

// get returns the state for ip, creating it on first sight. Caller holds mu.
func (t *stateTable) get(ip string, now time.Time) *sourceState {
	st, ok := t.sources[ip]
	if !ok {
		st = &sourceState{requestsPerPort: make(map[int][]time.Time)}
		t.sources[ip] = st
	}
	st.lastTouched = now
	return st
}

// pruneTimes keeps entries strictly younger than window. An entry exactly
// window old falls out.
func pruneTimes(times []time.Time, now time.Time, window time.Duration) []time.Time {
	kept := times[:0]
	for _, ts := range times {
		if now.Sub(ts) < window {
			kept = append(kept, ts)
		}
	}
	return kept
}

// appendHits adds n entries at now and prunes the window.
func appendHits(times []time.Time, n int, now time.Time, window time.Duration) []time.Time {
	for i := 0; i < n; i++ {
		times = append(times, now)
	}
	return pruneTimes(times, now, window)
}

// recordRequest notes one request to (ip, port) and returns the request
// count inside the window.
func (t *stateTable) recordRequest(ip string, port int, now time.Time, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.get(ip, now)
	st.requestsPerPort[port] = appendHits(st.requestsPerPort[port], 1, now, window)
	return len(st.requestsPerPort[port])
}

// clearRequests resets the per-port request window after a DDoS fires.
func (t *stateTable) clearRequests(ip string, port int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.sources[ip]; ok {
		delete(st.requestsPerPort, port)
	}
}

// recordPort notes one port access and returns the distinct ports (sorted)
// and the total accesses inside the window.
func (t *stateTable) recordPort(ip string, port int, now time.Time, window time.Duration) (unique []int, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.get(ip, now)
	hits := append(st.portAccess, portHit{port: port, ts: now})
	kept := hits[:0]
	for _, h := range hits {
		if now.Sub(h.ts) < window {
			kept = append(kept, h)
		}
	}
	st.portAccess = kept

	seen := make(map[int]struct{}, len(kept))
	for _, h := range kept {
		seen[h.port] = struct{}{}
	}
	unique = make([]int, 0, len(seen))
	for p := range seen {
		unique = append(unique, p)
	}
	sort.Ints(unique)
	return unique, len(kept)
}

// clearPorts resets the port-scan window after it fires.
func (t *stateTable) clearPorts(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.sources[ip]; ok {
		st.portAccess = nil
	}
}

// recordSYNACK notes the handshake flags of one TCP packet and returns both
// window counts. Packets with neither flag still prune, so the counts stay
// current on every evaluation.
func (t *stateTable) recordSYNACK(ip string, isSYN, isACK bool, now time.Time, window time.Duration) (syn, ack int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.get(ip, now)
	if isSYN {
		st.synTimes = append(st.synTimes, now)
	}
	if isACK {
		st.ackTimes = append(st.ackTimes, now)
	}
	st.synTimes = pruneTimes(st.synTimes, now, window)
	st.ackTimes = pruneTimes(st.ackTimes, now, window)
	return len(st.synTimes), len(st.ackTimes)
}

// clearSYNACK resets both handshake windows after a SYN flood fires.
func (t *stateTable) clearSYNACK(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.sources[ip]; ok {
		st.synTimes = nil
		st.ackTimes = nil
	}
}

// recordSQLi notes hits new SQLi pattern matches and returns the window count.
func (t *stateTable) recordSQLi(ip string, hits int, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.get(ip, now)
	st.sqliHits = appendHits(st.sqliHits, hits, now, webWindow)
	return len(st.sqliHits)
}

func (t *stateTable) clearSQLi(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.sources[ip]; ok {
		st.sqliHits = nil
	}
}

// recordXSS notes hits new XSS pattern matches and returns the window count.
func (t *stateTable) recordXSS(ip string, hits int, now time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	st := t.get(ip, now)
	st.xssHits = appendHits(st.xssHits, hits, now, webWindow)
	return len(st.xssHits)
}

func (t *stateTable) clearXSS(ip string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if st, ok := t.sources[ip]; ok {
		st.xssHits = nil
	}
}

// sweep evicts sources untouched for sweepIdle. All their windows are long
// empty by then.
func (t *stateTable) sweep(now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for ip, st := range t.sources {
		if now.Sub(st.lastTouched) >= sweepIdle {
			delete(t.sources, ip)
		}
	}
}

// size returns the number of tracked sources.
func (t *stateTable) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sources)
}
