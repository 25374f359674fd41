// Package dispatch implements the command dispatcher (C6): it parses
// the {cmd,key,value} triple carried in a POST /api/kv body, routes it
// to the array, hash or tree index, and formats the JSON reply.
// Message strings and embedding rules are grounded verbatim on the
// original's kvs_handle_command (src/kvs_handler.cpp) so golden
// responses match byte-for-byte.
package dispatch

import (
	"encoding/json"

	"kvwebserver/internal/metrics"
	"kvwebserver/internal/store"
)

// Engine owns the three independent indexes and answers commands
// against them. There is no cross-index atomicity: an HSET and an
// RSET may interleave arbitrarily.
type Engine struct {
	Array *store.Array
	Hash  *store.Hash
	Tree  *store.Tree
}

// NewEngine builds an Engine with the given per-index capacities (0
// means "use the backend's default").
func NewEngine(arrayCap, hashBuckets, treeCap int) *Engine {
	return &Engine{
		Array: store.NewArray(arrayCap),
		Hash:  store.NewHash(hashBuckets),
		Tree:  store.NewTree(treeCap),
	}
}

// Reply is the JSON shape of every /api/kv response.
type Reply struct {
	Status  string     `json:"status"`
	Message string     `json:"message"`
	Data    *StatsJSON `json:"data,omitempty"`
}

// StatsJSON is the JSON shape of the stats snapshot, shared by
// /api/kv replies (embedded under "data") and GET /api/stats.
type StatsJSON struct {
	Array  store.Stats `json:"array"`
	Hash   store.Stats `json:"hash"`
	Rbtree store.Stats `json:"rbtree"`
}

// StatsReply is the JSON envelope returned by GET /api/stats, matching
// kvs_handler.cpp's kvs_get_stats which wraps the three index objects
// in a {"status":"OK","data":{...}} envelope rather than returning
// them bare.
type StatsReply struct {
	Status string    `json:"status"`
	Data   StatsJSON `json:"data"`
}

// StatsEnvelope builds the GET /api/stats reply body.
func (e *Engine) StatsEnvelope() StatsReply {
	return StatsReply{Status: "OK", Data: e.Snapshot()}
}

// Snapshot reads a shared lock on each index independently; the three
// reads are not mutually consistent.
func (e *Engine) Snapshot() StatsJSON {
	return StatsJSON{
		Array:  e.Array.Stats(),
		Hash:   e.Hash.Stats(),
		Rbtree: e.Tree.Stats(),
	}
}

// ObserveMetrics pushes the current index occupancy and hash
// bucket-chain distribution into the package-level Prometheus
// collectors. Intended to be called on a short ticker, not per request.
func (e *Engine) ObserveMetrics() {
	snap := e.Snapshot()
	metrics.IndexCount.WithLabelValues("array").Set(float64(snap.Array.Count))
	metrics.IndexCount.WithLabelValues("hash").Set(float64(snap.Hash.Count))
	metrics.IndexCount.WithLabelValues("rbtree").Set(float64(snap.Rbtree.Count))

	for i := 0; i < e.Hash.Buckets(); i++ {
		metrics.HashBucketLen.WithLabelValues().Observe(float64(e.Hash.BucketLen(i)))
	}
}

// command line: name -> (index, op). op is one of set/get/mod/del/exist.
type commandSpec struct {
	index string // "array" | "hash" | "tree"
	op    string // "set" | "get" | "mod" | "del" | "exist"
}

var commands = map[string]commandSpec{
	"SET": {"array", "set"}, "GET": {"array", "get"}, "DEL": {"array", "del"}, "MOD": {"array", "mod"}, "EXIST": {"array", "exist"},
	"RSET": {"tree", "set"}, "RGET": {"tree", "get"}, "RDEL": {"tree", "del"}, "RMOD": {"tree", "mod"}, "REXIST": {"tree", "exist"},
	"HSET": {"hash", "set"}, "HGET": {"hash", "get"}, "HDEL": {"hash", "del"}, "HMOD": {"hash", "mod"}, "HEXIST": {"hash", "exist"},
}

// Dispatch parses and executes one command, returning the already
// JSON-marshalled reply body. cmd/key/value come straight from the
// request's JSON body fields; value may be empty (absent).
func (e *Engine) Dispatch(cmd, key, value string, hasValue bool) []byte {
	raw := e.dispatch(cmd, key, value, hasValue)

	var r Reply
	if err := json.Unmarshal(raw, &r); err == nil {
		metrics.CommandsTotal.WithLabelValues(commandLabel(cmd), r.Status).Inc()
	}
	return raw
}

func commandLabel(cmd string) string {
	if cmd == "" {
		return "(none)"
	}
	return cmd
}

func (e *Engine) dispatch(cmd, key, value string, hasValue bool) []byte {
	if cmd == "" || key == "" {
		return mustMarshal(Reply{Status: "ERROR", Message: "Invalid parameters"})
	}

	spec, ok := commands[cmd]
	if !ok {
		return mustMarshal(Reply{Status: "ERROR", Message: "Unknown command"})
	}

	if (spec.op == "set" || spec.op == "mod") && !hasValue {
		return mustMarshal(Reply{Status: "ERROR", Message: "Value required"})
	}

	idx := e.indexFor(spec.index)

	switch spec.op {
	case "set":
		return e.reply(idx.Set([]byte(key), []byte(value)), spec.index, setMessages)
	case "mod":
		return e.reply(idx.Mod([]byte(key), []byte(value)), spec.index, modMessages)
	case "del":
		return e.reply(idx.Del([]byte(key)), spec.index, delMessages)
	case "exist":
		return e.reply(idx.Exist([]byte(key)), spec.index, existMessages)
	case "get":
		return e.getReply(idx, key)
	default:
		return mustMarshal(Reply{Status: "ERROR", Message: "Unsupported command"})
	}
}

func (e *Engine) indexFor(name string) store.Index {
	switch name {
	case "array":
		return e.Array
	case "hash":
		return e.Hash
	default:
		return e.Tree
	}
}

var setMessages = map[store.Status]string{
	store.OK:    "Set successfully",
	store.Exist: "Key already exists",
	store.Error: "Failed to set",
}

// fullMessage names the index in the FULL reply: the original only
// ever reports this for the array backend, but the tree also enforces
// a capacity here, so it gets its own wording instead of reusing
// "Array storage full". Hash never returns Full.
func fullMessage(index string) string {
	switch index {
	case "tree":
		return "Tree storage full"
	default:
		return "Array storage full"
	}
}

var modMessages = map[store.Status]string{
	store.OK:      "Modified successfully",
	store.NoExist: "Key not found",
	store.Error:   "Failed to modify",
}

var delMessages = map[store.Status]string{
	store.OK:      "Deleted successfully",
	store.NoExist: "Key not found",
	store.Error:   "Failed to delete",
}

var existMessages = map[store.Status]string{
	store.Exist:   "Key exists",
	store.NoExist: "Key not found",
	store.Error:   "Failed to check",
}

func (e *Engine) reply(st store.Status, index string, messages map[store.Status]string) []byte {
	var msg string
	if st == store.Full {
		msg = fullMessage(index)
	} else {
		msg = messages[st]
	}
	if msg == "" {
		msg = "Failed to check"
	}
	snap := e.Snapshot()
	return mustMarshal(Reply{Status: st.String(), Message: msg, Data: &snap})
}

// getReply needs its own path because, unlike the other operations,
// its success message is the stored value rather than a fixed string;
// encoding/json already escapes it when marshaling Reply.Message, so
// there's no need to route through httpmsg.EscapeJSONString here (that
// helper is for callers assembling JSON by hand).
func (e *Engine) getReply(idx store.Index, key string) []byte {
	snap := e.Snapshot()
	value, ok := idx.Get([]byte(key))
	if !ok {
		return mustMarshal(Reply{Status: "NO_EXIST", Message: "Key not found", Data: &snap})
	}
	return mustMarshal(Reply{Status: "OK", Message: string(value), Data: &snap})
}

func mustMarshal(r Reply) []byte {
	b, err := json.Marshal(r)
	if err != nil {
		// Reply only contains marshalable types; an error here is a
		// program bug, not an expected runtime condition.
		panic(err)
	}
	return b
}
