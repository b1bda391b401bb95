// Package catalog records reassembled artifacts in a local SQLite database
// so completed captures and their upload state survive daemon restarts.
package catalog
