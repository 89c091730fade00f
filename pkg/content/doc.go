// Package content holds the course catalog: subjects, courses, and
// enrollments, all owned by a single workspace. Every repository query
// is qualified by workspace id, so a row belonging to another workspace
// is indistinguishable from one that does not exist.
package content
