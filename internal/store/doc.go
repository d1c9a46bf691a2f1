// Package store defines the persistence interfaces the scheduling engine
// depends on: card scheduling state, daily usage counters, settings
// overrides, and the review log. The engine treats them as a transactional
// key-value surface; implementations live in platform/postgres.
package store
