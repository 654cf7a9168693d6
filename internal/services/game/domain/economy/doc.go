// Package economy folds facts into the roster.
//
// Every function here is pure: it reads the roster it is given, builds a new
// roster, and returns it. Callers assign the result. Applying the same fact to
// the same input roster always yields the same output, and the input is never
// modified.
package economy
