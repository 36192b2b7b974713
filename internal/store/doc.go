// Package store provides shared database plumbing for the persistence
// layer: the DBTX abstraction over connections and transactions, common
// store errors, and a transaction runner.
package store
