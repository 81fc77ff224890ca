// Package subscriber validates and normalizes the rows of a detailed
// subscriber file.
//
// A file is usable only when its header names the twelve expected columns
// (aliases such as "zipcode" or "longitude" are accepted, in any order).
// Each data row is then checked on its own: speeds must be positive, the
// technology must map to a known code and the row must carry either valid
// coordinates or a complete address. Rejected rows never stop the file.
//
// Address cells are rewritten into a canonical upper-case form and every
// rewrite is returned as a Correction so it can be highlighted for the filer.
package subscriber
