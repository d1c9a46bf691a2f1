// Package domain defines the core entities of the scheduling engine:
// per-card scheduling state, effective study settings, daily usage
// counters, and the review log. Entities validate themselves; all
// mutation happens through the srs subpackage.
package domain
