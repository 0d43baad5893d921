// Package session runs one end-to-end fuzz pass over a record form.
//
// A run opens a fresh form record through the host, walks the view's field
// leaves in declaration order and, for every visible and editable field,
// generates a value, applies it and folds the fields the host reports as
// changed into an ignore set so later leaves never overwrite them. one2many
// fields receive between one and MaxRows nested rows, each applied on its
// own. The run ends by saving the record.
//
// Every host interaction goes through the interfaces in this package; the
// in-memory host in pkg/backend/memory implements all of them.
package session
