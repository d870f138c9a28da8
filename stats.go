package basecache

/*
Count is a point-in-time snapshot of the slot table, matching the
original's sqlx_cache_count shape.

OBSERVABILITY VALUE

Tracking these numbers enables capacity planning (how close is
bases_used to the soft limit) and diagnosing heat-promotion behavior
(cold vs hot split) without exposing any slot internals.

CONCURRENCY MODEL

Count() takes a snapshot under the Cache's global mutex; the returned
struct has no further synchronization of its own, matching the
Cache's single-mutex-for-everything design.
*/

// Count is the result of Cache.Count.
type Count struct {
	Max     int32 // bases_max_hard
	SoftMax int32 // bases_max_soft
	Cold    int32 // slots in IDLE
	Hot     int32 // slots in IDLE_HOT
	Used    int32 // slots in USED
}
