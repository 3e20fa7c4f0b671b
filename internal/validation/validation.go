// Package validation turns an incoming request into the parameter bag a
// handler script reads.
//
// Scripts validate their own parameters; this package only rejects requests
// whose body cannot be read as a flat set of named values.
package validation
