// Package applog constructs the zap.Logger used across the worker,
// matching the zap.NewProduction()/zap.NewDevelopment() split used by
// every service entrypoint in this codebase.
package applog

import "go.uber.org/zap"

// New builds a production (JSON) or development (console) logger.
func New(jsonFormat bool) (*zap.Logger, error) {
	if jsonFormat {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
