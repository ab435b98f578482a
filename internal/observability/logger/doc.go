// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Design Decisions
//
//   - Singleton: una sola instancia global inicializada con Init().
//   - Context Scoping: cada request puede llevar su propio logger "scoped" con
//     campos adicionales (request_id, principal_id, nonce) sin crear un core nuevo.
//   - Environments: "dev" usa consola con colores, "prod" usa JSON.
//   - Levels: debug, info, warn, error (configurable via LOG_LEVEL).
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   os.Getenv("APP_ENV"),   // "dev" o "prod"
//	    Level: os.Getenv("LOG_LEVEL"), // "debug", "info", "warn", "error"
//	})
//	defer logger.L().Sync()
//
// En handlers/engine (con contexto):
//
//	log := logger.From(ctx)
//	log.Info("auth decision", logger.PrincipalID(uid), logger.Outcome("granted"))
//
// Sin contexto (fallback al singleton):
//
//	logger.L().Info("gateway started")
package logger
