// Package database provides the data access layer for the application.
//
// # Architecture
//
// The database layer is organized into domain-specific sub-packages:
//
//	database/
//	├── database.go      # Connection setup, migrations, sessions table
//	├── users/           # User records (lookup by email and id, creation)
//	└── audit/           # Authentication audit trail
//
// # Using Sub-packages
//
// Each sub-package provides a Repository type with domain-specific operations:
//
//	// Initialize database connection
//	db, err := database.NewDatabase("./passage.db")
//
//	// Create domain-specific repositories
//	usersRepo := users.NewRepository(db.DB)
//	auditRepo := audit.NewRepository(db.DB)
//
//	// Use repositories
//	user, err := usersRepo.FindUserByEmail(ctx, "alice@example.com")
//
// The sessions table used by scs/sqlite3store lives in the same database
// file and is created by NewDatabase.
package database
