/*
Package basecache implements a shared cache of opaque database handles.

It sits between a pool of goroutines and a bounded set of
expensive-to-open, single-writer embedded stores. Each database is
opened at most once across the process, reused under serialized
access, and eventually evicted to respect a fixed slot budget and a
soft memory ceiling.

================================================================================
ARCHITECTURAL OVERVIEW
================================================================================

The cache combines:

  1. A slot table: a fixed-size array of bases_max_hard slot records,
     each with its own condition variables and a per-slot rolling
     activity window.
  2. Four intrusive doubly-linked beacon lists (FREE, IDLE, IDLE_HOT,
     USED) threaded through the slot table by prev/next indices.
  3. A name index mapping a database name to its slot index.
  4. A single mutex-protected controller exposing OpenAndLock,
     UnlockAndClose, eviction, and reconfiguration.
  5. An eviction policy that prefers the coolest idle victim and runs
     the close hook outside the global lock.

================================================================================
CONCURRENCY MODEL
================================================================================

All state is protected by one sync.Mutex. Per-slot sync.Cond values
are bound to that same mutex and used for both regular and priority
waiters. The only window in which the lock is released while a slot
is "owned" is around the close hook, during which the slot sits in a
CLOSING state so no other goroutine may claim it.

This cache never opens or closes a handle itself: the caller opens
it and stores it with SetHandle, closing is delegated to a CloseHook,
and an UnlockHook runs whenever a slot is released to the idle pool,
making the engine a pure policy layer over an opaque handle.
*/
package basecache
