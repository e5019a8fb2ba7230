// Package habit holds the habit model, the write-time rule set and the
// service that creates, updates and deletes habits on behalf of their owners.
//
// Validation is a fixed list of tagged rules. Every rule is evaluated, so a
// rejection lists all violated rules at once, each with a stable name.
package habit
