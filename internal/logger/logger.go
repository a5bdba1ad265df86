// Package logger builds the shared zap logger.
package logger

import (
	"log"

	"go.uber.org/zap"
)

// New returns a sugared zap logger. Debug switches to the development
// encoder with DEBUG-level output.
func New(debug bool) *zap.SugaredLogger {
	var (
		l   *zap.Logger
		err error
	)
	if debug {
		l, err = zap.NewDevelopment()
	} else {
		l, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	return l.Sugar()
}
