// Package kvstore is the shared key/value store behind rate limit counters,
// catalog cache entries and full sync locks.
//
// Two backends implement Store: DatabaseStore keeps entries in the kv_entries
// table of the main database, NATSStore keeps them in a JetStream KeyValue bucket.
// Both are visible to every API and worker instance; nothing here is held in
// process memory.
package kvstore
