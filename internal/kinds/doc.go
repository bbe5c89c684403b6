// Package kinds registers every uploadable record kind with the pipeline
// registry: its column-mapping table and its validation rules.
// Import this package for its side effects to make the kinds available.
//
// Column headers are exact match keys against uploaded sheets: case and
// spelling must not be changed.
package kinds
