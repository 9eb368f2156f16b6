// Package edm holds the read-only entity data model a service exposes:
// containers, entity sets, their types and key properties.
//
// The model is built once, from configuration or by hand, and then shared
// between goroutines without locking. A reload builds a new model rather
// than mutating the published one.
package edm
