// Package scheduler triggers named jobs on cron specs or fixed intervals in
// a configurable timezone. A job never overlaps itself: a firing that finds
// the previous run still in progress is skipped and recorded as such.
package scheduler
