// Package aggregate buffers per-item price samples across snapshots and
// reduces them to mean prices on a fixed snapshot cadence.
//
// Two buffers run in practice: the lowest buy-now price of each snapshot
// and the price of every completed sale. A flush reduces each key to its
// mean and sample count, publishes a FlushEvent on the Bus, and clears the
// buffer.
package aggregate
