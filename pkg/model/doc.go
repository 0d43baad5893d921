// Package model defines the data shared by every formfuzz stage: the field
// metadata a form host reports, the view tree describing which fields a form
// shows, the descriptors handed to the value generator and the tagged
// GeneratedValue union produced for each field. Hosts, generators and the
// session only exchange the types declared here.
package model
