// Package auth implements account registration, credential verification and
// cookie sessions for the web application.
//
// Sessions are managed by scs and stored in the application database. A
// session carries at most one user id; the token is rotated on login and the
// session is destroyed on logout.
//
// # Configuration
//
//	AUTH_SESSION_SECRET=<hex-32-bytes>     # Random per process if empty
//	AUTH_SESSION_LIFETIME=24h              # Session duration
//	AUTH_BCRYPT_COST=12                    # bcrypt cost factor
//	AUTH_SECURE_COOKIES=true               # HTTPS-only cookies
//	AUTH_MIN_PASSWORD_LENGTH=1             # Registration minimum
//	AUTH_MAX_LOGIN_ATTEMPTS=5              # Failures before lockout
//
// # Usage
//
// Middleware order matters: CSRF, then session load/save, then current-user
// resolution.
//
//	sessions := auth.NewSessionManager(sqlDB, cfg.Auth)
//	authenticator := auth.NewAuthenticator(userRepo, sessions)
//	router.Use(sessions.SessionLoadSave())
//	router.Use(authenticator.Handler())
//	router.GET("/dashboard", auth.RequireUser(), pages.Dashboard)
//
// Handlers read the user and render pages with drained flash messages:
//
//	user := auth.CurrentUser(c)
//	auth.Render(c, http.StatusOK, "dashboard.html", gin.H{"User": user})
package auth
