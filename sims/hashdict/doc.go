// Package hashdict records and verifies the configuration that produced a
// set of cached filter products.
//
// A Dict is a nested map of every parameter that affects output. The leader
// process writes it once to a library directory; every process then reloads
// it and compares it with its own freshly computed Dict. Any difference is a
// fatal configuration error that names the offending key, e.g.
// "super:obs_lib:nlev_t".
package hashdict
