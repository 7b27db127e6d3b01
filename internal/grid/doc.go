// Package grid maps an ordered card set plus filter and column criteria to
// a deterministic row-major layout. Pure functions only; no pipeline state.
package grid
