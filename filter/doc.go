/*
Package filter contains the shared filter cache suppressing redundant
downstream writes of definition updates.

The cache is approximate by contract: it answers "was this update issued
recently enough that reissuing it is wasteful". Entries are inserted before
the downstream write is confirmed, and eviction may silently drop entries
under pressure, so a miss only costs a redundant (idempotent) write and a
stale hit is repaired by normal event re-arrival.

The default backend is heavily inspired by Jeffrey Hodge's OppoBloom filter:
https://github.com/jmhodges/opposite_of_a_bloom_filter

It uses a fixed-size hashtable of xxHash64 values where a newer entry simply
overwrites whatever hashed to the same slot. Unlike a bloom filter it will
not falsely report an entry as present (up to the 64 bit collision rate) but
returns false negatives at the slot collision rate. A false negative costs a
redundant write; a false positive would lose updates, which is why a real
bloom filter is the wrong shape here. Overwrite-on-collision also makes the
table recency biased: updates that keep recurring keep their slot.

The bigcache backend trades more memory and per-op cost for TTL-bounded
retention, for deployments that want hits to expire on wall-clock time.
*/
package filter
