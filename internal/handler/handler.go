// Package handler is the first layer after the router.
//
// It binds request parameters through the validation package, runs the
// matching handler script against the store accessor and writes the
// resulting envelope back to the client.
package handler
