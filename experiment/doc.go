// Package experiment executes repeatable series of contention runs described in YAML plans.
//
// A plan is loaded from any afs URL (local path, file://, mem://, cloud storage):
//
//	name: coupon-drop
//	repeat: 10
//	runs:
//	  - strategy: race
//	    capacity: 2
//	    participants: 5
//	  - strategy: optimistic
//	    capacity: 2
//	    participants: 5
//
// The Runner executes every run repeat times against a Coordinator and aggregates the summaries
// into a Report, which can be uploaded as JSON to another afs URL.
package experiment
