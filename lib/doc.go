// Package lib collects small, dependency-free helpers shared by the rest
// of spanmalloc: bit-twiddling for the debug occupancy bitmap, streaming
// stats and histograms for the leak reporter, a short random id for
// tagging arenas/handlers in logs, and raw-pointer/byte-slice helpers.
// Nothing in this package imports another spanmalloc package.
package lib
